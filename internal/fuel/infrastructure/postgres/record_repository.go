package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	fuel "fuel-registry/internal/fuel/domain"
)

const defaultRecordsTable = "fuel_records"

//go:embed schema.sql
var schemaSQL string

// DBTX is the subset of *sql.DB and *sql.Tx the repository needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// RecordRepository is a Postgres implementation for fuel records.
type RecordRepository struct {
	db    DBTX
	table string
}

// RecordOption configures the repository.
type RecordOption func(*RecordRepository)

// WithRecordTable overrides the default table name.
func WithRecordTable(table string) RecordOption {
	return func(repo *RecordRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewRecordRepository constructs a repository.
func NewRecordRepository(db DBTX, opts ...RecordOption) *RecordRepository {
	repo := &RecordRepository{db: db, table: defaultRecordsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the registry tables when missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if db == nil {
		return errors.New("fuel repo: nil db")
	}
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

// Get loads a record by id. A missing record is (nil, nil).
func (r *RecordRepository) Get(ctx context.Context, id string) (*fuel.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fuel repo: nil db")
	}
	if id == "" {
		return nil, errors.New("fuel repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, name, type, address, price, updated_at, price_history
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// Save upserts a record.
func (r *RecordRepository) Save(ctx context.Context, record *fuel.Record) error {
	if r == nil || r.db == nil {
		return errors.New("fuel repo: nil db")
	}
	if record == nil {
		return fuel.ErrNilRecord
	}
	return r.upsert(ctx, r.db, record)
}

// Delete removes a record. Deleting a missing id is not an error.
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("fuel repo: nil db")
	}
	if id == "" {
		return errors.New("fuel repo: empty id")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	return err
}

// Snapshot loads every record.
func (r *RecordRepository) Snapshot(ctx context.Context) (fuel.Snapshot, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fuel repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, type, address, price, updated_at, price_history
FROM %s
ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(fuel.Snapshot)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		snapshot[record.ID] = *record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Replace swaps every stored record for snapshot in one transaction when the
// handle supports transactions.
func (r *RecordRepository) Replace(ctx context.Context, snapshot fuel.Snapshot) (err error) {
	if r == nil || r.db == nil {
		return errors.New("fuel repo: nil db")
	}

	exec := r.db
	if beginner, ok := r.db.(txBeginner); ok {
		tx, beginErr := beginner.BeginTx(ctx, nil)
		if beginErr != nil {
			return beginErr
		}
		defer func() { err = finishTx(tx, err) }()
		exec = tx
	}

	if _, err = exec.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table)); err != nil {
		return err
	}
	for id, record := range snapshot {
		record := record
		if record.ID == "" {
			record.ID = id
		}
		if err = r.upsert(ctx, exec, &record); err != nil {
			return err
		}
	}
	return nil
}

type txFinisher interface {
	Commit() error
	Rollback() error
}

// finishTx rolls back when err is set and commits otherwise, returning the
// error the caller should report.
func finishTx(tx txFinisher, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (r *RecordRepository) upsert(ctx context.Context, exec DBTX, record *fuel.Record) error {
	if record.ID == "" {
		return errors.New("fuel repo: empty id")
	}
	history := record.PriceHistory
	if history == nil {
		history = []fuel.PricePoint{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return err
	}
	var updatedAt sql.NullTime
	if !record.UpdatedAt.IsZero() {
		updatedAt = sql.NullTime{Time: record.UpdatedAt.UTC(), Valid: true}
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	name,
	type,
	address,
	price,
	updated_at,
	price_history
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	type = EXCLUDED.type,
	address = EXCLUDED.address,
	price = EXCLUDED.price,
	updated_at = EXCLUDED.updated_at,
	price_history = EXCLUDED.price_history,
	modified_at = NOW()`, r.table)

	_, err = exec.ExecContext(
		ctx,
		query,
		record.ID,
		record.Name,
		record.Type,
		record.Address,
		string(record.Price),
		updatedAt,
		historyJSON,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*fuel.Record, error) {
	var (
		record    fuel.Record
		price     string
		updatedAt sql.NullTime
		history   []byte
	)
	if err := row.Scan(
		&record.ID,
		&record.Name,
		&record.Type,
		&record.Address,
		&price,
		&updatedAt,
		&history,
	); err != nil {
		return nil, err
	}
	record.Price = fuel.Price(price)
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time.UTC()
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &record.PriceHistory); err != nil {
			return nil, fmt.Errorf("fuel repo: decode price history for %s: %w", record.ID, err)
		}
	}
	return &record, nil
}
