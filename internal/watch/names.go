package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/insighthub/internal/hub"
	"github.com/mesh-intelligence/insighthub/internal/tabular"
)

// Filter decides which dropped files are picked up, by glob on the base
// name. Excludes win over includes; no includes means everything.
type Filter struct {
	Include []string
	Exclude []string
}

// DefaultFilter accepts the importable formats and skips hidden files,
// editor lock files and partial downloads.
func DefaultFilter() Filter {
	return Filter{
		Include: []string{"*.csv", "*.xlsx", "*.json"},
		Exclude: []string{".*", "~$*", "*.tmp", "*.part", "*.crdownload"},
	}
}

// Matches reports whether path passes the filter.
func (f Filter) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.Exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	lower := strings.ToLower(base)
	for _, pattern := range f.Include {
		if matched, _ := filepath.Match(pattern, lower); matched {
			return true
		}
	}
	return false
}

// Target is where a dropped file goes.
type Target struct {
	Table  string
	Mode   hub.ImportMode
	Format tabular.Format
}

// ParseName derives the import target from a file name of the form
// <table>[-anything][.<mode>].<ext>, for example fact_kpi_data-june.csv or
// dim_kpi.replace.xlsx.
func ParseName(path string) (Target, error) {
	f, err := tabular.FormatOf(path)
	if err != nil {
		return Target{}, err
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	mode := hub.ImportAppend
	if i := strings.LastIndexByte(stem, '.'); i >= 0 {
		if mode, err = hub.ParseImportMode(stem[i+1:]); err != nil {
			return Target{}, err
		}
		stem = stem[:i]
	}
	if i := strings.IndexAny(stem, "- "); i >= 0 {
		stem = stem[:i]
	}
	table := strings.ToLower(stem)
	if table == "" {
		return Target{}, fmt.Errorf("no table name in %q", base)
	}
	return Target{Table: table, Mode: mode, Format: f}, nil
}
