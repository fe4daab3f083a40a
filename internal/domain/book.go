package domain

import "time"

// Language is the ISO-style code a book is written in.
type Language string

// Supported catalog languages.
const (
	LanguageEnglish Language = "EN"
	LanguageFrench  Language = "FR"
	LanguageArabic  Language = "AR"
	LanguageSpanish Language = "ES"
	LanguageCzech   Language = "CZ"
	LanguageDutch   Language = "NL"
)

// Languages lists every supported catalog language.
func Languages() []Language {
	return []Language{
		LanguageEnglish,
		LanguageFrench,
		LanguageArabic,
		LanguageSpanish,
		LanguageCzech,
		LanguageDutch,
	}
}

// IsValidLanguage reports whether l is a supported catalog language.
func IsValidLanguage(l Language) bool {
	switch l {
	case LanguageEnglish, LanguageFrench, LanguageArabic, LanguageSpanish, LanguageCzech, LanguageDutch:
		return true
	}
	return false
}

// IsValidISBN reports whether s is an ISBN in digit-string form:
// exactly 10 or 13 digits, no separators.
func IsValidISBN(s string) bool {
	if len(s) != 10 && len(s) != 13 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Book represents a physical book in the library catalog.
// ISBN is kept as a digit string; leading zeros are significant.
type Book struct {
	Record
	Title       string    `json:"title"`
	AuthorID    string    `json:"author_id,omitempty"` // empty when the author was removed
	Description string    `json:"description,omitempty"`
	ISBN        string    `json:"isbn"`
	PublishDate time.Time `json:"publish_date"`
	PageCount   int       `json:"page_count"`
	Language    Language  `json:"language"`
	IsAvailable bool      `json:"is_available"`
}
