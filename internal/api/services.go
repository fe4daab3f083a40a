package api

import (
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth    *service.AuthService
	Session *service.SessionService
	Profile *service.ProfileService
	Author  *service.AuthorService
	Book    *service.BookService
	Loan    *service.LoanService
}
