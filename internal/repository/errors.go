package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Sentinel errors for unique constraint violations that services translate into 409s.
var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrHallTicketTaken = errors.New("hall ticket already registered")
)

// uniqueViolationError maps a PostgreSQL unique violation onto a sentinel by constraint name.
func uniqueViolationError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "hall_ticket"):
		return ErrHallTicketTaken
	case strings.Contains(pqErr.Constraint, "email"):
		return ErrEmailTaken
	default:
		return nil
	}
}
