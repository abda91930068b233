// Package readinglist keeps the local reading list in step with the remote
// one and picks the next article to read.
package readinglist

import (
	"fmt"
	"strings"

	"github.com/yourusername/dayflow/internal/storage"
)

// Initial weights assigned when a record is first seen.
const (
	UnreadWeight = 100
	ReadWeight   = 50
)

// Fetched is one article as reported by the remote reading list.
type Fetched struct {
	ID   string
	URL  string
	Read bool
}

// MergePolicy decides how the read flag of an already-known record follows
// the remote value.
type MergePolicy int

const (
	// PromoteOnly lets read move from false to true but never back.
	PromoteOnly MergePolicy = iota
	// Overwrite copies the latest fetched value unconditionally.
	Overwrite
)

// ParseMergePolicy maps a configuration value to a MergePolicy. Empty means
// PromoteOnly.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "promote", "promote_only":
		return PromoteOnly, nil
	case "overwrite":
		return Overwrite, nil
	}
	return PromoteOnly, fmt.Errorf("unknown merge policy %q (want promote or overwrite)", s)
}

func (p MergePolicy) String() string {
	if p == Overwrite {
		return "overwrite"
	}
	return "promote"
}

// InitialWeight is the weight a record gets on insertion.
func InitialWeight(read bool) int {
	if read {
		return ReadWeight
	}
	return UnreadWeight
}

// MergeStats summarizes what a merge changed.
type MergeStats struct {
	Inserted int
	Updated  int
	Total    int
}

// Merge reconciles batch into current and returns the next snapshot.
//
// Unknown ids are appended in batch order. Known ids keep their weight; only
// the read flag (per policy) and a non-empty URL are refreshed. Records missing
// from the batch are kept as they are. current is not modified.
func Merge(current []storage.Record, batch []Fetched, policy MergePolicy) ([]storage.Record, MergeStats) {
	merged := make([]storage.Record, len(current), len(current)+len(batch))
	copy(merged, current)

	index := make(map[string]int, len(merged))
	for i, r := range merged {
		index[r.ID] = i
	}

	var stats MergeStats
	for _, f := range batch {
		i, ok := index[f.ID]
		if !ok {
			merged = append(merged, storage.Record{
				ID:     f.ID,
				URL:    f.URL,
				Read:   f.Read,
				Weight: InitialWeight(f.Read),
			})
			index[f.ID] = len(merged) - 1
			stats.Inserted++
			continue
		}

		rec := &merged[i]
		before := *rec
		switch policy {
		case Overwrite:
			rec.Read = f.Read
		default:
			rec.Read = rec.Read || f.Read
		}
		if f.URL != "" {
			rec.URL = f.URL
		}
		if *rec != before {
			stats.Updated++
		}
	}

	stats.Total = len(merged)
	return merged, stats
}
