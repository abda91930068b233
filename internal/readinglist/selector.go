package readinglist

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/yourusername/dayflow/internal/storage"
)

// ErrNoSelectableRecord is returned when the reading list is empty or every
// record sits at or below the weight floor.
var ErrNoSelectableRecord = errors.New("no selectable record")

// ErrWeightOverflow is returned when the eligible weights do not sum to a
// value that fits in an int.
var ErrWeightOverflow = errors.New("total weight overflows")

// Source draws a uniform integer in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	// #nosec G404 -- crypto/rand not needed for picking an article
	return rand.IntN(n)
}

// Selector performs weighted random selection with post-selection decay.
type Selector struct {
	floor int
	src   Source
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithFloor sets the weight floor. Records at or below it are never chosen
// and decay stops there.
func WithFloor(floor int) SelectorOption {
	return func(s *Selector) {
		s.floor = floor
	}
}

// WithSource replaces the random source, mainly for tests.
func WithSource(src Source) SelectorOption {
	return func(s *Selector) {
		s.src = src
	}
}

// NewSelector creates a Selector with floor 0 and the global random source.
func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{src: globalSource{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Floor returns the configured weight floor.
func (s *Selector) Floor() int {
	return s.floor
}

func (s *Selector) eligible(r storage.Record) bool {
	return r.Weight > s.floor && r.Weight > 0
}

// Select returns the index of the chosen record. The probability of index i
// is weight[i] divided by the sum of eligible weights.
func (s *Selector) Select(records []storage.Record) (int, error) {
	total, err := s.total(records)
	if err != nil {
		return -1, err
	}
	if total == 0 {
		return -1, ErrNoSelectableRecord
	}

	n := s.src.IntN(total)
	for i, r := range records {
		if !s.eligible(r) {
			continue
		}
		if n < r.Weight {
			return i, nil
		}
		n -= r.Weight
	}

	// unreachable while IntN honours its contract
	return -1, ErrNoSelectableRecord
}

// Choose selects one record and returns it together with a copy of records
// in which only the chosen record's weight is decremented by one, clamped
// at the floor.
func (s *Selector) Choose(records []storage.Record) (storage.Record, []storage.Record, error) {
	i, err := s.Select(records)
	if err != nil {
		return storage.Record{}, nil, err
	}

	updated := make([]storage.Record, len(records))
	copy(updated, records)
	updated[i].Weight = max(updated[i].Weight-1, s.floor)

	return updated[i], updated, nil
}

// Probability returns the chance that records[i] is picked next.
func (s *Selector) Probability(records []storage.Record, i int) float64 {
	total, err := s.total(records)
	if err != nil || total == 0 || !s.eligible(records[i]) {
		return 0
	}
	return float64(records[i].Weight) / float64(total)
}

func (s *Selector) total(records []storage.Record) (int, error) {
	total := 0
	for _, r := range records {
		if !s.eligible(r) {
			continue
		}
		if total > math.MaxInt-r.Weight {
			return 0, ErrWeightOverflow
		}
		total += r.Weight
	}
	return total, nil
}
