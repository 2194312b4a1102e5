package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fuel-registry/internal/eventbus"
	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/observability/metrics"
)

var (
	// ErrLabelImmutable is returned when an update tries to rename a fuel type.
	ErrLabelImmutable = errors.New("fuel: fuel type cannot be changed")
	// ErrTypeNotAllowed is returned when a fuel type is outside the configured list.
	ErrTypeNotAllowed = errors.New("fuel: fuel type not allowed")
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator assigns record ids.
type IDGenerator func() (string, error)

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RecordInput is the editable part of a record.
type RecordInput struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Address string     `json:"address"`
	Price   fuel.Price `json:"price"`
}

// Service handles registry writes and reads.
type Service struct {
	repo         fuel.Repository
	variant      fuel.Variant
	allowedTypes []string
	bus          eventbus.EventBus
	clock        Clock
	newID        IDGenerator
	logger       *zap.Logger
}

// ServiceOption customizes the record service.
type ServiceOption func(*Service)

// WithEventBus assigns the bus RecordsChanged is published on.
func WithEventBus(bus eventbus.EventBus) ServiceOption {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides record id assignment.
func WithIDGenerator(gen IDGenerator) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithAllowedTypes restricts fuel types accepted on create.
func WithAllowedTypes(types []string) ServiceOption {
	return func(s *Service) {
		s.allowedTypes = append([]string(nil), types...)
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a record service.
func NewService(repo fuel.Repository, variant fuel.Variant, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("fuel: nil repository")
	}
	if variant != fuel.VariantStation && variant != fuel.VariantFuelType {
		return nil, fuel.ErrUnknownVariant
	}
	service := &Service{
		repo:    repo,
		variant: variant,
		clock:   systemClock{},
		newID:   newRecordID,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Variant returns the schema variant the service writes.
func (s *Service) Variant() fuel.Variant {
	return s.variant
}

// Create validates input and stores a new record with a seeded history.
func (s *Service) Create(ctx context.Context, input RecordInput) (record *fuel.Record, err error) {
	start := time.Now()
	defer func() { metrics.ObserveMutation(OpCreated, resultOf(err), time.Since(start)) }()

	candidate, err := s.fromInput(input)
	if err != nil {
		return nil, err
	}
	if s.variant == fuel.VariantFuelType && len(s.allowedTypes) > 0 && !slices.Contains(s.allowedTypes, candidate.Type) {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotAllowed, candidate.Type)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("fuel: assign id: %w", err)
	}
	candidate.ID = id
	now := s.clock.Now().UTC()
	if err := candidate.AppendPrice(input.Price, now); err != nil {
		return nil, invalidPrice(err)
	}
	if s.variant == fuel.VariantStation {
		// Station records carry no timestamp of their own.
		candidate.UpdatedAt = time.Time{}
	}
	if err := candidate.Validate(s.variant); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, &candidate); err != nil {
		return nil, err
	}
	s.publish(ctx, RecordsChanged{Op: OpCreated, RecordID: id, At: now})
	return &candidate, nil
}

// Update sets a new current price and appends it to the history. Station
// records may also change name and address; fuel-type labels are immutable.
func (s *Service) Update(ctx context.Context, id string, input RecordInput) (record *fuel.Record, err error) {
	start := time.Now()
	defer func() { metrics.ObserveMutation(OpUpdated, resultOf(err), time.Since(start)) }()

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := existing.Clone()

	switch s.variant {
	case fuel.VariantFuelType:
		if t := strings.TrimSpace(input.Type); t != "" && t != updated.Type {
			return nil, ErrLabelImmutable
		}
	case fuel.VariantStation:
		if name := strings.TrimSpace(input.Name); name != "" {
			updated.Name = name
		}
		updated.Address = strings.TrimSpace(input.Address)
	}

	now := s.clock.Now().UTC()
	if err := updated.AppendPrice(input.Price, now); err != nil {
		return nil, invalidPrice(err)
	}
	if s.variant == fuel.VariantStation {
		updated.UpdatedAt = existing.UpdatedAt
	}
	if err := updated.Validate(s.variant); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, err
	}
	s.publish(ctx, RecordsChanged{Op: OpUpdated, RecordID: updated.ID, At: now})
	return &updated, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveMutation(OpDeleted, resultOf(err), time.Since(start)) }()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, RecordsChanged{Op: OpDeleted, RecordID: id, At: s.clock.Now().UTC()})
	return nil
}

// Get loads a record by id.
func (s *Service) Get(ctx context.Context, id string) (*fuel.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fuel.ErrRecordNotFound
	}
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fuel.ErrRecordNotFound
	}
	return record, nil
}

// Snapshot returns every record keyed by id.
func (s *Service) Snapshot(ctx context.Context) (fuel.Snapshot, error) {
	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		snapshot = fuel.Snapshot{}
	}
	return snapshot, nil
}

// ReplaceSnapshot swaps the store contents for a snapshot pushed by the
// upstream record store. Records without an id or label are dropped and
// logged. Records with a malformed price are kept; the query engine skips
// them in numeric views. A missing history is seeded from the current price.
func (s *Service) ReplaceSnapshot(ctx context.Context, snapshot fuel.Snapshot) (accepted int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveMutation(OpReplaced, resultOf(err), time.Since(start)) }()

	now := s.clock.Now().UTC()
	clean := make(fuel.Snapshot, len(snapshot))
	for id, record := range snapshot {
		if record.ID == "" {
			record.ID = id
		}
		if record.ID != id {
			s.logger.Warn("snapshot record id mismatch", zap.String("key", id), zap.String("id", record.ID))
			continue
		}
		if err := record.ValidateLabel(s.variant); err != nil {
			s.logger.Warn("snapshot record rejected", zap.String("id", id), zap.Error(err))
			continue
		}
		record = record.Clone()
		record.SeedHistory(now)
		clean[id] = record
	}
	if err := s.repo.Replace(ctx, clean); err != nil {
		return 0, err
	}
	s.publish(ctx, RecordsChanged{Op: OpReplaced, At: now})
	return len(clean), nil
}

func (s *Service) fromInput(input RecordInput) (fuel.Record, error) {
	var record fuel.Record
	switch s.variant {
	case fuel.VariantStation:
		record.Name = strings.TrimSpace(input.Name)
		record.Address = strings.TrimSpace(input.Address)
		if record.Name == "" {
			return record, &fuel.ValidationError{Detail: "name is required"}
		}
	case fuel.VariantFuelType:
		record.Type = strings.TrimSpace(input.Type)
		if record.Type == "" {
			return record, &fuel.ValidationError{Detail: "type is required"}
		}
	}
	if strings.TrimSpace(string(input.Price)) == "" {
		return record, &fuel.ValidationError{Detail: "price is required"}
	}
	return record, nil
}

func (s *Service) publish(ctx context.Context, event RecordsChanged) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("publish records changed", zap.String("op", event.Op), zap.Error(err))
	}
}

func invalidPrice(err error) error {
	return &fuel.ValidationError{Detail: err.Error()}
}

func resultOf(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
