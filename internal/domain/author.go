package domain

import (
	"errors"
	"time"
)

// Author represents a book author in the catalog.
type Author struct {
	Record
	Name        string     `json:"name"`
	Nationality string     `json:"nationality,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
}

// Age returns the author's age in whole years at the reference time.
// For deceased authors the age is capped at the date of death.
// Returns nil when the date of birth is unknown.
func (a *Author) Age(ref time.Time) *int {
	if a.DateOfBirth == nil {
		return nil
	}

	end := ref
	if a.DateOfDeath != nil {
		end = *a.DateOfDeath
	}

	age := yearsBetween(*a.DateOfBirth, end)
	if age < 0 {
		return nil
	}
	return &age
}

// ValidateDates checks the birth/death date invariants.
func (a *Author) ValidateDates(now time.Time) error {
	if a.DateOfBirth != nil && a.DateOfBirth.After(now) {
		return errors.New("date of birth cannot be in the future")
	}
	if a.DateOfDeath != nil {
		if a.DateOfDeath.After(now) {
			return errors.New("date of death cannot be in the future")
		}
		if a.DateOfBirth != nil && !a.DateOfDeath.After(*a.DateOfBirth) {
			return errors.New("date of death must be after date of birth")
		}
	}
	return nil
}

// yearsBetween computes whole years from start to end, correcting for
// whether the anniversary has passed in the final year.
func yearsBetween(start, end time.Time) int {
	years := end.Year() - start.Year()
	if end.Month() < start.Month() || (end.Month() == start.Month() && end.Day() < start.Day()) {
		years--
	}
	return years
}
