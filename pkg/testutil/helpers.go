// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/tmorand/auto-loan-calc/internal/quote"
)

// FindQuote finds a quote by name in the results slice.
// Returns a pointer to the quote if found, nil otherwise.
func FindQuote(quotes []*quote.Quote, name string) *quote.Quote {
	for _, q := range quotes {
		if q.Name == name {
			return q
		}
	}
	return nil
}
