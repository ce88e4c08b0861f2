// Package store persists computed quotes and their amortization schedules.
package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/tmorand/auto-loan-calc/internal/quote"
)

// ErrQuoteNotFound is returned when no quote exists for the requested ID.
var ErrQuoteNotFound = errors.New("quote not found")

// Storage defines the interface for database operations related to quotes.
type Storage interface {
	// SaveQuote persists a quote and its full schedule, assigning its ID and
	// creation timestamp.
	SaveQuote(q *quote.Quote) error

	// GetQuote loads a quote including its schedule rows.
	GetQuote(id uuid.UUID) (*quote.Quote, error)

	// ListQuotes returns all saved quotes without their schedules, newest
	// first.
	ListQuotes() ([]*quote.Quote, error)

	// DeleteQuote removes a quote and its schedule rows.
	DeleteQuote(id uuid.UUID) error

	Close() error
}
