// Package catalog resolves vehicle descriptions used to label quotes and
// exports. Lookups sit behind the Source interface so the calculation path
// can be exercised without network access.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrVehicleNotFound is returned by lookups that match nothing.
var ErrVehicleNotFound = errors.New("vehicle not found in catalog")

// Vehicle identifies one catalog entry.
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// Label renders the display form used on quotes and exports, e.g.
// "2024 Toyota Camry".
func (v Vehicle) Label() string {
	parts := make([]string, 0, 3)
	if v.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", v.Year))
	}
	if v.Make != "" {
		parts = append(parts, v.Make)
	}
	if v.Model != "" {
		parts = append(parts, v.Model)
	}
	return strings.Join(parts, " ")
}

// Source looks up a vehicle by make, model, and year.
type Source interface {
	Lookup(ctx context.Context, make, model string, year int) (*Vehicle, error)
}

// StaticSource serves lookups from a fixed in-memory list, typically the
// vehicles block of the configuration file.
type StaticSource struct {
	vehicles []Vehicle
}

// NewStaticSource builds a source over the given entries.
func NewStaticSource(vehicles []Vehicle) *StaticSource {
	return &StaticSource{vehicles: vehicles}
}

// Lookup matches make and model case-insensitively; a zero year matches any
// year.
func (s *StaticSource) Lookup(_ context.Context, make, model string, year int) (*Vehicle, error) {
	for _, v := range s.vehicles {
		if !strings.EqualFold(v.Make, make) || !strings.EqualFold(v.Model, model) {
			continue
		}
		if year != 0 && v.Year != year {
			continue
		}
		found := v
		return &found, nil
	}
	return nil, fmt.Errorf("%s %s %d: %w", make, model, year, ErrVehicleNotFound)
}
