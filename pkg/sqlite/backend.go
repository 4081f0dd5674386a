// Package sqlite exposes the SQLite warehouse to programs outside this
// module. It returns the backend behind the types.Warehouse interface so
// callers can read and load the star schema by table name without reaching
// into internal packages.
package sqlite

import (
	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

var _ types.Warehouse = (*sqlite.Backend)(nil)

// NewBackend creates a SQLite warehouse. It is not attached; call Attach
// with a Config to open or create the database.
//
// Example:
//
//	wh := sqlite.NewBackend()
//	err := wh.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".insighthub",
//	})
//	defer wh.Detach()
//	facts, err := wh.GetTable(types.TableKPIFact)
func NewBackend() types.Warehouse {
	return sqlite.NewBackend(sqlite.WithLogger(logging.Nop()))
}
