// Package record defines the normalized startup record schema, its content
// fingerprint, and the pure change detector used by ingestion.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingID is returned when a record has neither an ID nor a
	// provenance pair to derive one from.
	ErrMissingID = errors.New("record: missing id and provenance")

	// ErrMissingName is returned when a record has an empty name.
	ErrMissingName = errors.New("record: missing name")

	// ErrMissingDescription is returned when a record has an empty description.
	ErrMissingDescription = errors.New("record: missing description")
)

// Record is one startup entity.
//
// Required core fields are validated at the ingestion boundary; everything
// the source delivers beyond the schema lands in Extra.
type Record struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Industry    string            `json:"industry"`
	Funding     string            `json:"funding"`
	Location    string            `json:"location"`
	Founded     int               `json:"founded"`
	TeamSize    int               `json:"team_size"`
	Source      string            `json:"source"`
	SourceID    string            `json:"source_id"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Extra       map[string]string `json:"extra,omitempty"`

	// Fingerprint is a pure function of the embeddable fields.
	// It is filled in by Normalize and compared during change detection.
	Fingerprint string `json:"fingerprint"`
}

// EmbedText returns the text that is sent to the embedding capability.
// Name, description, industry and location are the fields that affect
// embedding quality; changes anywhere else never trigger a re-embed.
func (r *Record) EmbedText() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s", r.Name, r.Description, r.Industry, r.Location))
}

// ComputeFingerprint hashes the embeddable fields with explicit separators
// so that field boundaries cannot alias ("ab"+"c" vs "a"+"bc").
func (r *Record) ComputeFingerprint() string {
	h := sha256.New()
	for _, field := range []string{r.Name, r.Description, r.Industry, r.Location} {
		h.Write([]byte(field))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks the required core fields.
func (r *Record) Validate() error {
	if r.ID == "" && (r.Source == "" || r.SourceID == "") {
		return ErrMissingID
	}
	if r.Name == "" {
		return ErrMissingName
	}
	if r.Description == "" {
		return ErrMissingDescription
	}
	return nil
}

// Normalize validates r, derives a stable ID from provenance when the source
// did not assign one, and fills in the fingerprint.
func Normalize(r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	if r.ID == "" {
		r.ID = r.Source + ":" + r.SourceID
	}
	r.Fingerprint = r.ComputeFingerprint()
	return r, nil
}
