package fuel

import "errors"

var (
	// ErrInvalidRecord is returned when a record fails validation on write.
	ErrInvalidRecord = errors.New("fuel: invalid record")
	// ErrRecordNotFound is returned when no record exists for an id.
	ErrRecordNotFound = errors.New("fuel: record not found")
	// ErrMalformedPrice is returned when a price is not a non-negative decimal.
	ErrMalformedPrice = errors.New("fuel: malformed price")
	// ErrNilRecord is returned when saving a nil record.
	ErrNilRecord = errors.New("fuel: nil record")
	// ErrUnknownVariant is returned for an unsupported schema variant.
	ErrUnknownVariant = errors.New("fuel: unknown schema variant")
)
