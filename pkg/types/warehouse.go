package types

import "errors"

// Warehouse defines backend-agnostic access to the KPI star schema.
// Callers attach to a backend, access tables by name, and detach when done.
type Warehouse interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)

	// Attach connects the Warehouse to the backend described by config.
	// Creates the DataDir if it does not exist and the schema if it is
	// missing. Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations on tables return ErrWarehouseDetached.
	Detach() error
}

// Warehouse lifecycle errors.
var (
	ErrWarehouseDetached = errors.New("warehouse is detached")
	ErrAlreadyAttached   = errors.New("warehouse is already attached")
	ErrTableNotFound     = errors.New("table not found")
)
