package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forgeutils/check-updates/domain"
)

var (
	styleHeader     = lipgloss.NewStyle().Bold(true)
	stylePatch      = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	styleMinor      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleMajor      = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	stylePrerelease = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	styleDim        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
)

// Row is one rendered line of the report. The renderer knows nothing about
// where the values came from; the service flattens its checks into rows.
type Row struct {
	Name      string
	Defined   string
	Installed string
	InRange   string
	Latest    string
	UpdateTo  string
	Severity  domain.Delta
	// NewerAvailable marks a row whose target is below the absolute latest.
	NewerAvailable bool
	Err            error
}

// Renderer writes the check report as an aligned table.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer. A nil writer renders to stdout.
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

var columns = []string{"Package", "Defined", "Installed", "In Range", "Latest", "Update To"}

// Table renders the rows under the column header. Without any rows it
// prints the all-clear line instead.
func (r *Renderer) Table(rows []Row) {
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "All dependencies are up to date!")
		return
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row.cells() {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = styleHeader.Render(pad(col, widths[i]))
	}
	fmt.Fprintln(r.out, "  "+strings.Join(header, "  "))

	for _, row := range rows {
		if row.Err != nil {
			fmt.Fprintf(r.out, "  %s  %s\n",
				pad(row.Name, widths[0]),
				styleError.Render(row.Err.Error()))
			continue
		}
		cells := row.cells()
		line := make([]string, len(cells))
		for i, cell := range cells {
			line[i] = pad(cell, widths[i])
		}
		line[len(line)-1] = severityStyle(row.Severity).Render(line[len(line)-1])
		suffix := ""
		if row.NewerAvailable {
			suffix = styleDim.Render(fmt.Sprintf("  (%s available)", row.Latest))
		}
		fmt.Fprintln(r.out, "  "+strings.Join(line, "  ")+suffix)
	}
}

func (row Row) cells() []string {
	return []string{row.Name, row.Defined, row.Installed, row.InRange, row.Latest, row.UpdateTo}
}

// Warnings prints the parse warnings collected across all files.
func (r *Renderer) Warnings(warnings []domain.ParseWarning) {
	for _, w := range warnings {
		fmt.Fprintln(r.out, styleDim.Render(
			fmt.Sprintf("  warning: %s:%d: %s (%s)", w.File, w.Line, w.Message, w.Entry)))
	}
	if len(warnings) > 0 {
		fmt.Fprintln(r.out)
	}
}

// Summary prints the closing lines of a run: which files changed, which
// could not be written, and which lock commands should follow.
func (r *Renderer) Summary(changedFiles, failedFiles, lockCommands, multiFilePackages []string) {
	if len(changedFiles) > 0 {
		fmt.Fprintf(r.out, "\nUpdated %d file(s):\n", len(changedFiles))
		for _, file := range changedFiles {
			fmt.Fprintf(r.out, "  %s\n", file)
		}
	}
	if len(failedFiles) > 0 {
		fmt.Fprintln(r.out, styleError.Render(
			fmt.Sprintf("\nFailed to update %d file(s):", len(failedFiles))))
		for _, file := range failedFiles {
			fmt.Fprintln(r.out, styleError.Render("  "+file))
		}
	}
	if len(multiFilePackages) > 0 {
		fmt.Fprintln(r.out, styleDim.Render(fmt.Sprintf(
			"\nNote: %s updated in multiple files.", strings.Join(multiFilePackages, ", "))))
	}
	if len(lockCommands) > 0 {
		fmt.Fprintln(r.out, "\nRun to refresh the lock file(s):")
		for _, cmd := range lockCommands {
			fmt.Fprintf(r.out, "  %s\n", cmd)
		}
	}
}

// UpgradePlan prints the suggested commands of a global run. Comment lines
// are prefixed like shell comments.
func (r *Renderer) UpgradePlan(lines []Row, commands []string, comments []string) {
	r.Table(lines)
	if len(commands) == 0 && len(comments) == 0 {
		return
	}
	fmt.Fprintln(r.out, "\nTo upgrade, run:")
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %s\n", cmd)
	}
	for _, comment := range comments {
		fmt.Fprintln(r.out, styleDim.Render("  # "+comment))
	}
}

func severityStyle(severity domain.Delta) lipgloss.Style {
	switch severity {
	case domain.DeltaPatch:
		return stylePatch
	case domain.DeltaMinor:
		return styleMinor
	case domain.DeltaMajor:
		return styleMajor
	case domain.DeltaPrerelease:
		return stylePrerelease
	default:
		return styleDim
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
