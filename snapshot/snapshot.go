// Package snapshot persists the index snapshot: the jointly written pair of
// vector data and ordered record metadata. Position i in the metadata log
// always corresponds to vector i; reading one side without the other would
// corrupt lookups, so both are committed together through a manifest pointer.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/scoutdex/scoutdex/record"
)

var (
	// ErrNotFound is returned by Load when no snapshot has been saved yet.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrCorrupt is returned by Load when the persisted pair is inconsistent
	// (partial write, length mismatch, unknown codec). Callers treat the
	// snapshot as lost and rebuild from scratch.
	ErrCorrupt = errors.New("snapshot: corrupt")
)

// Entry associates one record with the vector at the same position.
// Fingerprint is the record fingerprint at the time of embedding; when it
// differs from the record's current fingerprint a re-embed is pending.
type Entry struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
}

// Snapshot is one consistent state of the corpus: ordered records, their
// embedding entries, and the vectors, all aligned by position.
type Snapshot struct {
	Dimension int             `json:"dimension"`
	CreatedAt time.Time       `json:"created_at"`
	Records   []record.Record `json:"records"`
	Entries   []Entry         `json:"entries"`
	Vectors   [][]float32     `json:"-"`
}

// Validate checks the alignment invariants.
func (s *Snapshot) Validate() error {
	if len(s.Records) != len(s.Entries) || len(s.Records) != len(s.Vectors) {
		return fmt.Errorf("%w: records=%d entries=%d vectors=%d",
			ErrCorrupt, len(s.Records), len(s.Entries), len(s.Vectors))
	}
	for i := range s.Records {
		if s.Records[i].ID != s.Entries[i].ID {
			return fmt.Errorf("%w: entry %d id %q does not match record id %q",
				ErrCorrupt, i, s.Entries[i].ID, s.Records[i].ID)
		}
		if len(s.Vectors[i]) != s.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				ErrCorrupt, i, len(s.Vectors[i]), s.Dimension)
		}
	}
	return nil
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int { return len(s.Records) }

// Fingerprints returns an ID -> current record fingerprint lookup for
// change detection.
func (s *Snapshot) Fingerprints() map[string]string {
	m := make(map[string]string, len(s.Records))
	for _, r := range s.Records {
		m[r.ID] = r.Fingerprint
	}
	return m
}
