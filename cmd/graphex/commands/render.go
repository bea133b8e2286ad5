package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/graphex/query"
	"github.com/teranos/graphex/status"
	"github.com/teranos/graphex/workspace"
)

// renderBanner formats the status line with a prefix matching its tone.
func renderBanner(b status.Banner) string {
	if !b.Visible() {
		return ""
	}
	switch b.Tone {
	case status.ToneLoading:
		return pterm.Info.Sprint(b.Label)
	case status.ToneSuccess:
		return pterm.Success.Sprint(b.Label)
	case status.ToneError:
		return pterm.Error.Sprint(b.Label)
	}
	return b.Label
}

// renderTree formats top-level rows. Expanded rows list their neighbors
// underneath.
func renderTree(rows []workspace.TreeRow) string {
	if len(rows) == 0 {
		return pterm.Gray("No nodes.")
	}
	var sb strings.Builder
	for _, r := range rows {
		text := r.Text()
		if r.Selected {
			text = pterm.LightCyan(text)
		}
		toggle := ""
		switch {
		case r.Expanded:
			toggle = " [-]"
		case r.Expandable:
			toggle = " [+]"
		}
		fmt.Fprintf(&sb, "%s %s%s\n", r.Marker(), text, pterm.Gray(toggle))
		if !r.Expanded {
			continue
		}
		for i, n := range r.Neighbors {
			branch := "├─"
			if i == len(r.Neighbors)-1 {
				branch = "└─"
			}
			fmt.Fprintf(&sb, "  %s %s\n", pterm.Gray(branch), n)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderSummary formats the bird's-eye panel.
func renderSummary(s *workspace.Summary) string {
	if s == nil {
		return pterm.Gray("No graph loaded.")
	}
	lines := []string{
		fmt.Sprintf("%s %s", pterm.Gray("Graph:"), s.GraphID),
		fmt.Sprintf("%s %d", pterm.Gray("Nodes:"), s.Nodes),
		fmt.Sprintf("%s %d", pterm.Gray("Edges:"), s.Edges),
	}
	if s.Selected != nil {
		lines = append(lines,
			fmt.Sprintf("%s %s", pterm.Gray("Selected:"), pterm.LightCyan(s.Selected.ID)),
			fmt.Sprintf("%s %s", pterm.Gray("Attributes:"), s.Selected.AttributeLine()))
	}
	return strings.Join(lines, "\n")
}

// renderChips formats the applied query chips.
func renderChips(chips []query.Chip, countLabel string) string {
	if len(chips) == 0 {
		return pterm.Gray("No queries applied.")
	}
	var sb strings.Builder
	fmt.Fprintln(&sb, pterm.Gray(countLabel))
	for _, c := range chips {
		kind := pterm.Yellow(string(c.Kind))
		if c.Kind == query.KindSearch {
			kind = pterm.Green(string(c.Kind))
		}
		fmt.Fprintf(&sb, "  #%d %-6s %s\n", c.ID, kind, c.Label)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderStatus formats the status panel: banner, file and visualizer state.
func renderStatus(v workspace.View) string {
	lines := []string{}
	if b := renderBanner(v.Banner); b != "" {
		lines = append(lines, b)
	}
	lines = append(lines, fmt.Sprintf("%s %s", pterm.Gray("File:"), v.FileStatus))
	lines = append(lines, v.VisualizerNote)
	if v.RenderStatus != "" {
		lines = append(lines, fmt.Sprintf("%s %s", pterm.Gray("Render:"), v.RenderStatus))
	}
	if v.RenderError != "" {
		lines = append(lines, pterm.Red(v.RenderError))
	}
	if v.CanRetry {
		hint := "Type 'retry' to try again."
		if v.RetryDisabled {
			hint = "Retry is unavailable while a request is running."
		}
		lines = append(lines, pterm.Gray(hint))
	}
	return strings.Join(lines, "\n")
}

// renderConsole formats console history and output, newest first.
func renderConsole(c workspace.ConsoleView) string {
	var sb strings.Builder
	fmt.Fprintln(&sb, pterm.Gray("History:"))
	if len(c.History) == 0 {
		fmt.Fprintln(&sb, "  (empty)")
	}
	for _, h := range c.History {
		fmt.Fprintf(&sb, "  %s\n", h)
	}
	fmt.Fprintln(&sb, pterm.Gray("Output:"))
	if len(c.Output) == 0 {
		fmt.Fprintln(&sb, "  (empty)")
	}
	for _, o := range c.Output {
		fmt.Fprintf(&sb, "  %s\n", o)
	}
	return strings.TrimRight(sb.String(), "\n")
}
