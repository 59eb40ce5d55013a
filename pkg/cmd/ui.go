package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentpkg/depresolver/pkg/project"
)

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleInfo    = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleWarning.Render(iconWarning)+" "+styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, muted line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+styleDim.Render(fmt.Sprintf(format, args...)))
}

// styledReporter prints the same progress lines as project.TextReporter with
// colour added.
type styledReporter struct {
	w io.Writer
}

var _ project.Reporter = &styledReporter{}

func (r *styledReporter) Begin(phase project.Phase, total int) {
	verb := "Fetching"
	if phase == project.PhaseResolve {
		verb = "Resolving"
	}
	fmt.Fprintln(r.w, styleTitle.Render(fmt.Sprintf("%s %d dependencies:", verb, total)))
}

func (r *styledReporter) Start(o project.Outcome) {
	verb := "Fetching..."
	if o.Phase == project.PhaseResolve {
		verb = "Resolving..."
	}
	fmt.Fprintln(r.w, prefix(o)+styleInfo.Render(verb))
}

func (r *styledReporter) Done(o project.Outcome) {
	msg := project.DoneMessage(o)
	switch o.Status {
	case project.Failed:
		msg = styleError.Render(msg)
	case project.AlreadyFetched, project.Cached:
		msg = styleDim.Render(msg)
	default:
		msg = styleSuccess.Render(msg)
	}
	fmt.Fprintln(r.w, prefix(o)+msg)
}

func prefix(o project.Outcome) string {
	return fmt.Sprintf("%d-%s : ", o.Index, o.Name)
}

// printSummary reports the overall result of a phase and returns an error
// when anything failed, so the process exits non-zero.
func printSummary(w io.Writer, what string, r project.Report) error {
	if n := r.Failed(); n > 0 {
		printError(w, "%d of %d dependencies failed to %s", n, len(r), what)
		return fmt.Errorf("%d dependencies failed to %s: %w", n, what, r.Err())
	}
	printSuccess(w, "%d dependencies %s", len(r), pastTense(what))
	return nil
}

func pastTense(what string) string {
	switch what {
	case "fetch":
		return "fetched"
	case "resolve":
		return "resolved"
	default:
		return what
	}
}
