package record

import "fmt"

// Store is an ordered collection of records with unique IDs.
// Order is significant: position i in the store corresponds to vector i in
// the index snapshot it is persisted with.
type Store struct {
	records []Record
	byID    map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// FromRecords builds a store from an ordered record list.
// Duplicate IDs are rejected.
func FromRecords(records []Record) (*Store, error) {
	s := NewStore()
	for _, r := range records {
		if err := s.Append(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds a record at the end of the store.
func (s *Store) Append(r Record) error {
	if _, ok := s.byID[r.ID]; ok {
		return fmt.Errorf("record: duplicate id %q", r.ID)
	}
	s.byID[r.ID] = len(s.records)
	s.records = append(s.records, r)
	return nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// At returns the record at position i.
func (s *Store) At(i int) Record { return s.records[i] }

// Records returns the ordered record list. Callers must not modify it.
func (s *Store) Records() []Record { return s.records }

// Fingerprints returns an ID -> fingerprint lookup for change detection.
func (s *Store) Fingerprints() map[string]string {
	m := make(map[string]string, len(s.records))
	for _, r := range s.records {
		m[r.ID] = r.Fingerprint
	}
	return m
}
