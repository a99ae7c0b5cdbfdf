// Package filter holds the dashboard-wide filter selection: a year and two
// environment scopes. One Store is created at start-up and handed to every
// consumer that needs the current filters.
package filter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// All is the catch-all environment value, always on offer.
const All = "All"

// yearsBack is how many years before the current one can be selected.
const yearsBack = 2

// ErrNotOffered is returned when a value is not among the available options.
var ErrNotOffered = errors.New("value not available")

// Options is the payload of the filter-options service.
type Options struct {
	Environment       []string `json:"Environment"`
	NarrowEnvironment []string `json:"NarrowEnvironment"`
}

// OptionsSource supplies the environment lists.
type OptionsSource interface {
	FilterOptions(ctx context.Context) (Options, error)
}

// Selection is the chosen filter values.
type Selection struct {
	Year              int    `json:"year" validate:"required"`
	Environment       string `json:"environment" validate:"required"`
	NarrowEnvironment string `json:"narrow_environment" validate:"required"`
}

// State is a snapshot of the store.
type State struct {
	Selection
	AvailableYears              []int    `json:"available_years"`
	AvailableEnvironments       []string `json:"available_environments"`
	AvailableNarrowEnvironments []string `json:"available_narrow_environments"`
	Loading                     bool     `json:"loading"`
}

// Store is the global filter state.
type Store struct {
	log *zap.Logger

	mu      sync.RWMutex
	sel     Selection
	years   []int
	envs    []string
	narrows []string
	loading bool
}

// NewStore returns a store defaulting to the current year of now and the
// All environment. Environment lists stay ["All"] until Refresh succeeds.
func NewStore(now time.Time, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	year := now.Year()
	years := make([]int, 0, yearsBack+1)
	for i := 0; i <= yearsBack; i++ {
		years = append(years, year-i)
	}
	return &Store{
		log:     log.Named("filter"),
		sel:     Selection{Year: year, Environment: All, NarrowEnvironment: All},
		years:   years,
		envs:    []string{All},
		narrows: []string{All},
	}
}

// State returns a copy of the current filter state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Selection:                   s.sel,
		AvailableYears:              slices.Clone(s.years),
		AvailableEnvironments:       slices.Clone(s.envs),
		AvailableNarrowEnvironments: slices.Clone(s.narrows),
		Loading:                     s.loading,
	}
}

// Selected returns the current selection.
func (s *Store) Selected() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel
}

// SetYear selects one of the available years.
func (s *Store) SetYear(year int) error {
	return s.Update(func(sel *Selection) { sel.Year = year })
}

// SetEnvironment selects one of the available environments.
func (s *Store) SetEnvironment(env string) error {
	return s.Update(func(sel *Selection) { sel.Environment = env })
}

// SetNarrowEnvironment selects one of the available narrow environments.
func (s *Store) SetNarrowEnvironment(env string) error {
	return s.Update(func(sel *Selection) { sel.NarrowEnvironment = env })
}

// Update applies fn to a copy of the selection and stores it only if every
// value is on offer.
func (s *Store) Update(fn func(*Selection)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.sel
	fn(&next)
	if !slices.Contains(s.years, next.Year) {
		return fmt.Errorf("%w: year %d", ErrNotOffered, next.Year)
	}
	if !slices.Contains(s.envs, next.Environment) {
		return fmt.Errorf("%w: environment %q", ErrNotOffered, next.Environment)
	}
	if !slices.Contains(s.narrows, next.NarrowEnvironment) {
		return fmt.Errorf("%w: narrow environment %q", ErrNotOffered, next.NarrowEnvironment)
	}
	s.sel = next
	return nil
}

// Refresh reloads the environment lists from src. On failure the previous
// lists are kept and the error is returned after logging. A selection that
// is no longer offered falls back to All.
func (s *Store) Refresh(ctx context.Context, src OptionsSource) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	opts, err := src.FilterOptions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.log.Warn("error fetching filter options", zap.Error(err))
		return fmt.Errorf("fetch filter options: %w", err)
	}
	s.envs = withAll(opts.Environment)
	s.narrows = withAll(opts.NarrowEnvironment)
	if !slices.Contains(s.envs, s.sel.Environment) {
		s.sel.Environment = All
	}
	if !slices.Contains(s.narrows, s.sel.NarrowEnvironment) {
		s.sel.NarrowEnvironment = All
	}
	s.log.Debug("filter options refreshed",
		zap.Int("environments", len(s.envs)-1),
		zap.Int("narrow_environments", len(s.narrows)-1))
	return nil
}

func withAll(values []string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, All)
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
