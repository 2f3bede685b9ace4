// Package output formats the end-of-run summary of a pidflame capture.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danpilch/pidflame/pkg/callpath"
	"github.com/danpilch/pidflame/pkg/sampler"
	"github.com/dustin/go-humanize"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Summary describes one finished run.
type Summary struct {
	PID      uint32         `json:"pid"`
	Window   time.Duration  `json:"window_ns"`
	Sampling sampler.Stats  `json:"sampling"`
	Paths    callpath.Stats `json:"paths"`
	Nodes    int            `json:"nodes"`
	Depth    int            `json:"depth"`
	Rects    int            `json:"rects"`
	Output   string         `json:"output,omitempty"`
	Bytes    int64          `json:"bytes"`
	Error    string         `json:"error,omitempty"`
}

// Formatter handles output formatting.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// Render outputs the summary in the configured format.
func (f *Formatter) Render(s Summary) error {
	switch f.format {
	case FormatJSON:
		return f.renderJSON(s)
	default:
		return f.renderTable(s)
	}
}

func (f *Formatter) renderJSON(s Summary) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func (f *Formatter) renderTable(s Summary) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Fprintln(f.writer, titleStyle.Render(fmt.Sprintf("Flame Graph Capture: pid %d", s.PID)))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	lost := humanize.Comma(int64(s.Sampling.Lost))
	if s.Sampling.Lost > 0 {
		lost = warnStyle.Render(lost)
	}
	stray := humanize.Comma(int64(s.Paths.StrayExits))
	if s.Paths.StrayExits > 0 {
		stray = warnStyle.Render(stray)
	}

	rows := [][]string{
		{"window", s.Window.String()},
		{"elapsed", s.Sampling.Elapsed.Round(time.Millisecond).String()},
		{"poll passes", humanize.Comma(int64(s.Sampling.Passes))},
		{"records", humanize.Comma(int64(s.Sampling.Records))},
		{"lost samples", lost},
		{"malformed", humanize.Comma(int64(s.Sampling.Malformed))},
		{"completed paths", humanize.Comma(int64(s.Paths.Completed))},
		{"stray exits", stray},
		{"discarded paths", humanize.Comma(int64(s.Paths.Discarded))},
		{"tree nodes", humanize.Comma(int64(s.Nodes))},
		{"tree depth", fmt.Sprint(s.Depth)},
		{"rectangles", humanize.Comma(int64(s.Rects))},
	}
	if s.Output != "" {
		rows = append(rows, []string{"output", fmt.Sprintf("%s (%s)", s.Output, humanize.Bytes(uint64(s.Bytes)))})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("METRIC", "VALUE").
		Rows(rows...)

	fmt.Fprintln(f.writer, t)
	fmt.Fprintln(f.writer)

	switch {
	case s.Error != "":
		fmt.Fprintf(f.writer, "%s %s\n", errStyle.Render("Capture failed:"), s.Error)
	case s.Sampling.Interrupted:
		fmt.Fprintln(f.writer, warnStyle.Render("Capture interrupted"))
	case s.Paths.Completed == 0:
		fmt.Fprintln(f.writer, warnStyle.Render("No call paths completed"))
	default:
		fmt.Fprintln(f.writer, okStyle.Render("Capture complete"))
	}
	return nil
}
