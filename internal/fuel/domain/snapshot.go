package fuel

import (
	"context"
	"sort"
)

// Snapshot is a point-in-time copy of every record, keyed by id.
type Snapshot map[string]Record

// Records returns the snapshot as a sequence in store key order. A nil or
// empty snapshot yields an empty, non-nil sequence.
func (s Snapshot) Records() []Record {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		record := s[id].Clone()
		if record.ID == "" {
			record.ID = id
		}
		out = append(out, record)
	}
	return out
}

// Find returns the record for id.
func (s Snapshot) Find(id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	record, ok := s[id]
	if !ok {
		return Record{}, false
	}
	record = record.Clone()
	if record.ID == "" {
		record.ID = id
	}
	return record, true
}

// Repository persists fuel records.
type Repository interface {
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, record *Record) error
	Delete(ctx context.Context, id string) error
	Snapshot(ctx context.Context) (Snapshot, error)
	// Replace swaps the whole store for snapshot.
	Replace(ctx context.Context, snapshot Snapshot) error
}
