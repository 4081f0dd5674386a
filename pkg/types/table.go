package types

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
)

// Table gives schema-driven tabular access to one stored table. Rows are
// matched to columns by name; columns the caller omits are stored as NULL.
//
// ReplaceAll and Upsert are deliberately separate operations: ReplaceAll
// swaps the whole table in one transaction (master data, file imports),
// Upsert inserts or overwrites the single row identified by the table key.
type Table interface {
	// Name returns the storage name of the table.
	Name() string

	// Schema returns the ordered, typed column descriptor of the table.
	Schema() dataset.Schema

	// Key returns the primary-key column name.
	Key() string

	// Read returns every row of the table in insertion order.
	Read(ctx context.Context) (*dataset.Table, error)

	// ReplaceAll deletes every row and inserts rows, atomically.
	ReplaceAll(ctx context.Context, rows *dataset.Table) error

	// Append inserts rows. Rows without a key value get a generated one on
	// tables with generated keys, and fail with ErrMissingKey elsewhere.
	Append(ctx context.Context, rows *dataset.Table) error

	// Upsert inserts row or overwrites the stored row with the same key.
	// Returns ErrMissingKey if the row carries no key value.
	Upsert(ctx context.Context, row dataset.Record) error
}

// Table operation errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrInvalidID   = errors.New("invalid entity ID")
	ErrInvalidData = errors.New("invalid entity data")
	ErrMissingKey  = errors.New("row has no key value")
)

// Entity and workflow errors.
var (
	ErrInvalidState    = errors.New("invalid state value")
	ErrAlreadyPromoted = errors.New("action already promoted to a work item")
	ErrMissingScope    = errors.New("department-scoped role requires a department")
	ErrForbidden       = errors.New("operation not permitted for this session")
	ErrUnknownReport   = errors.New("unknown report type")
)
