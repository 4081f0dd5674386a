package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

var styles = struct {
	header lipgloss.Style
	border lipgloss.Style
	title  lipgloss.Style
	muted  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	err    lipgloss.Style
}{
	header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
	border: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	title:  lipgloss.NewStyle().Bold(true).Underline(true),
	muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	bad:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	err:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printTable renders rows under headers as a bordered table.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, styles.muted.Render("(no rows)"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.header
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

// printDataset renders a dataset table.
func printDataset(w io.Writer, t *dataset.Table) {
	rows := make([][]string, t.Len())
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		rows[i] = cells
	}
	printTable(w, t.Schema.Names(), rows)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes v as JSON in --json mode and calls human otherwise.
func (a *app) emit(w io.Writer, v any, human func()) error {
	if a.flags.jsonMode {
		return printJSON(w, v)
	}
	human()
	return nil
}

func severityStyle(s types.Severity) lipgloss.Style {
	switch s {
	case types.SeverityHigh:
		return styles.bad
	case types.SeverityMedium:
		return styles.warn
	}
	return styles.ok
}

func achievementStyle(s types.AchievementStatus) lipgloss.Style {
	switch s {
	case types.OnTarget:
		return styles.ok
	case types.AtRisk:
		return styles.warn
	case types.Breach:
		return styles.bad
	}
	return styles.muted
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func date(id int) string {
	if id == 0 {
		return ""
	}
	return dateid.Format(id)
}
