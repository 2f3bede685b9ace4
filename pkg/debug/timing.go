package debug

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PhaseTiming records how long one phase of a run took.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
}

// Timer collects phase timings in the order the phases ran.
type Timer struct {
	Timings []PhaseTiming
}

// Time runs fn and records its duration under name.
func (t *Timer) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.Timings = append(t.Timings, PhaseTiming{
		Name:     name,
		Duration: time.Since(start),
	})
	return err
}

// TimingReport prints a styled timing summary for all phases.
func TimingReport(w io.Writer, timings []PhaseTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Phase Timing Report"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 40)))
	fmt.Fprintf(w, "  %s  %s\n",
		debugHeader.Render("PHASE              "),
		debugHeader.Render("DURATION    "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))

	var total time.Duration
	for _, t := range timings {
		fmt.Fprintf(w, "  %-20s %v\n", t.Name, t.Duration)
		total += t.Duration
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  %-20s %v\n",
		lipgloss.NewStyle().Bold(true).Render("TOTAL"), total)
}
