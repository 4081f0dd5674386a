package cli

import (
	"errors"
	"strings"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/tabular"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// usageError marks a bad invocation: a flag, argument or config value.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// userErrors are sentinels caused by what the caller asked for rather than by
// the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrMissingKey,
	types.ErrInvalidState,
	types.ErrAlreadyPromoted,
	types.ErrMissingScope,
	types.ErrForbidden,
	types.ErrUnknownReport,
	types.ErrTableNotFound,
	auth.ErrInvalidCredentials,
	dateid.ErrFormat,
	dataset.ErrUnknownColumn,
	dataset.ErrNotNumeric,
	dataset.ErrInvalidSpec,
	dataset.ErrKindMismatch,
	dataset.ErrRowLength,
	dataset.ErrDuplicateColumn,
	tabular.ErrUnsupportedFormat,
	tabular.ErrNoHeader,
}

// exitCode maps err to exitUserError for caller mistakes and exitSysError
// for everything else.
func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	// cobra reports unknown subcommands and bad arguments as plain errors.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires ") || strings.HasPrefix(msg, "required flag") {
		return exitUserError
	}
	return exitSysError
}
