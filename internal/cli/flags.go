package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/insighthub/pkg/dateid"
)

// dateFlag parses an optional --name flag holding an ISO date or an
// eight-digit key. Unset flags yield fallback.
func dateFlag(cmd *cobra.Command, name string, fallback int) (int, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	id, err := dateid.ParseKey(raw)
	if err != nil {
		return 0, usageError{err}
	}
	return id, nil
}

func (a *app) today() int {
	return dateid.ToDateID(a.now())
}
