package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/spf13/cobra"
)

// planTheme styles plan output. A theme with color unset prints plain text.
type planTheme struct {
	color bool

	Title   lipgloss.Style
	Layer   lipgloss.Style
	Stage   lipgloss.Style
	Runner  lipgloss.Style
	Unbound lipgloss.Style
	Faint   lipgloss.Style
}

func plainTheme() planTheme {
	return planTheme{}
}

func colorTheme() planTheme {
	return planTheme{
		color:   true,
		Title:   lipgloss.NewStyle().Bold(true),
		Layer:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Stage:   lipgloss.NewStyle().Bold(true),
		Runner:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Unbound: lipgloss.NewStyle().Faint(true).Italic(true),
		Faint:   lipgloss.NewStyle().Faint(true),
	}
}

func (t planTheme) render(st lipgloss.Style, text string) string {
	if !t.color {
		return text
	}
	return st.Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func planCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [DIAGRAM]",
		Short: "Show the stages of a pipeline grouped into concurrent layers",
		Args:  diagramArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd, args, app.Config{})
			if err != nil {
				return err
			}
			p, err := a.Plan(cmd.Context())
			if err != nil {
				return failure(err)
			}
			out := cmd.OutOrStdout()
			theme := plainTheme()
			if isTerminal(out) {
				theme = colorTheme()
			}
			_, err = io.WriteString(out, formatPlan(p, theme))
			return err
		},
	}
}

// formatPlan lays a plan out one layer per block, one stage per line.
func formatPlan(p *app.Plan, theme planTheme) string {
	var b strings.Builder

	title := fmt.Sprintf("Pipeline %s", p.Pipeline)
	if p.Diagram != "" {
		title += " " + theme.render(theme.Faint, "("+p.Diagram+")")
	}
	fmt.Fprintln(&b, theme.render(theme.Title, title))
	fmt.Fprintf(&b, "workers: %d, fail fast: %t\n", p.Workers, p.FailFast)

	idWidth, runnerWidth := 0, 0
	for _, layer := range p.Layers {
		for _, s := range layer {
			idWidth = max(idWidth, len(s.ID))
			runnerWidth = max(runnerWidth, len(s.Runner))
		}
	}

	for i, layer := range p.Layers {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, theme.render(theme.Layer, fmt.Sprintf("Layer %d", i+1)))
		for _, s := range layer {
			runner := theme.render(theme.Runner, pad(s.Runner, runnerWidth))
			if !s.Bound {
				runner = theme.render(theme.Unbound, pad(s.Runner, runnerWidth))
			}
			line := "  " + theme.render(theme.Stage, pad(s.ID, idWidth)) + "  " + runner
			if s.Label != "" && s.Label != s.ID {
				line += "  " + s.Label
			}
			if len(s.Inputs) > 0 {
				line += "  " + theme.render(theme.Faint, "<- "+strings.Join(s.Inputs, ", "))
			}
			fmt.Fprintln(&b, strings.TrimRight(line, " "))
		}
	}
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
