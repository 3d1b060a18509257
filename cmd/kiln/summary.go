package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cpcf/kiln/engine"
)

// styles renders for one writer; colour is dropped when it is not a
// terminal.
type styles struct {
	title   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	faint   lipgloss.Style
	header  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title:   r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00875F", Dark: "#5FD787"}),
		failure: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}).Bold(true),
		faint:   r.NewStyle().Faint(true),
		header:  r.NewStyle().Bold(true).Underline(true),
	}
}

func printSummary(out io.Writer, res *engine.Result) {
	st := newStyles(out)
	var b strings.Builder

	if res.Success {
		fmt.Fprintf(&b, "%s %s %s\n",
			st.success.Render("✓ baked"),
			st.title.Render(res.Template),
			st.faint.Render("into "+res.Destination))
	} else {
		fmt.Fprintf(&b, "%s %s: %v\n",
			st.failure.Render("✗ bake failed"),
			st.title.Render(res.Template),
			res.Err)
	}

	if len(res.Files) > 0 || len(res.Skipped) > 0 || len(res.Unchanged) > 0 {
		fmt.Fprintf(&b, "  %d files written, %d skipped", len(res.Files), len(res.Skipped))
		if len(res.Unchanged) > 0 {
			fmt.Fprintf(&b, ", %d unchanged", len(res.Unchanged))
		}
		b.WriteString("\n")
	}
	for _, h := range res.Hooks {
		fmt.Fprintf(&b, "  hook %s %s\n", h.Script, st.faint.Render(fmt.Sprintf("(%s, exit %d)", h.Duration.Round(time.Millisecond), h.ExitCode)))
	}
	if res.RolledBack {
		fmt.Fprintf(&b, "  %s\n", st.faint.Render("created files were removed"))
	}
	fmt.Fprint(out, b.String())
}
