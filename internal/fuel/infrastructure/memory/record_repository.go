package memory

import (
	"context"
	"sync"

	fuel "fuel-registry/internal/fuel/domain"
)

// RecordRepository is an in-memory record store for demos, tests and the
// memory backend.
type RecordRepository struct {
	mu   sync.RWMutex
	data map[string]fuel.Record
}

// NewRecordRepository constructs a repository, optionally seeded.
func NewRecordRepository(seed ...fuel.Record) *RecordRepository {
	repo := &RecordRepository{data: make(map[string]fuel.Record, len(seed))}
	for _, record := range seed {
		repo.data[record.ID] = record.Clone()
	}
	return repo
}

// Get loads a record by id. A missing record is (nil, nil).
func (r *RecordRepository) Get(ctx context.Context, id string) (*fuel.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	out := record.Clone()
	return &out, nil
}

// Save upserts a record.
func (r *RecordRepository) Save(ctx context.Context, record *fuel.Record) error {
	if record == nil {
		return fuel.ErrNilRecord
	}
	if record.ID == "" {
		return &fuel.ValidationError{Detail: "empty id"}
	}
	r.mu.Lock()
	r.data[record.ID] = record.Clone()
	r.mu.Unlock()
	return nil
}

// Delete removes a record. Deleting a missing id is not an error.
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of every record.
func (r *RecordRepository) Snapshot(ctx context.Context) (fuel.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(fuel.Snapshot, len(r.data))
	for id, record := range r.data {
		out[id] = record.Clone()
	}
	return out, nil
}

// Replace swaps the stored records for snapshot.
func (r *RecordRepository) Replace(ctx context.Context, snapshot fuel.Snapshot) error {
	data := make(map[string]fuel.Record, len(snapshot))
	for id, record := range snapshot {
		record = record.Clone()
		if record.ID == "" {
			record.ID = id
		}
		data[id] = record
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}
