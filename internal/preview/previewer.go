// Package preview renders a plan for review and collects the decision
package preview

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/woodgear/fmove/internal/check"
	"github.com/woodgear/fmove/internal/prompt"
	"github.com/woodgear/fmove/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#475569")).Padding(0, 1)
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

// Previewer shows a plan and asks whether to apply it. It never
// modifies the filesystem.
type Previewer struct {
	prompt  prompt.Prompter
	out     io.Writer
	checker *check.Checker
	topN    int
}

// NewPreviewer creates a previewer; topN bounds the inspect lists
func NewPreviewer(p prompt.Prompter, out io.Writer, topN int) *Previewer {
	if topN <= 0 {
		topN = 5
	}
	return &Previewer{prompt: p, out: out, checker: check.NewChecker(), topN: topN}
}

// Present prints the plan and loops until the operator proceeds or aborts.
// Plans without renames are confirmed like any other plan. End of input
// counts as abort.
func (v *Previewer) Present(p *types.Plan) (types.Decision, error) {
	report := v.checker.CheckPlan(p)
	fmt.Fprintln(v.out, Render(p, report))

	for {
		answer, err := v.prompt.Ask("Proceed? [y]es / [n]o / [i]nspect: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return types.DecisionAbort, nil
			}
			return types.DecisionAbort, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes", "j", "ja":
			return types.DecisionProceed, nil
		case "n", "no", "nein", "q":
			return types.DecisionAbort, nil
		case "i", "inspect", "d", "details":
			fmt.Fprintln(v.out, RenderInspect(Inspect(p, v.topN)))
		default:
			fmt.Fprintln(v.out, warnStyle.Render(fmt.Sprintf("unknown answer %q", answer)))
		}
	}
}

// Render formats the plan as a numbered table. report may be nil.
func Render(p *types.Plan, report *types.CheckReport) string {
	var b strings.Builder

	header := fmt.Sprintf("%s %d file(s)\nfrom %s\nto   %s\n%d renamed, %d warning(s)",
		strings.ToUpper(string(p.Mode)), len(p.Entries), p.SourceDir, p.DestinationDir, p.ChangedCount(), p.WarningCount())
	b.WriteString(boxStyle.Render(titleStyle.Render("Preview") + "\n" + header))
	b.WriteString("\n")

	if len(p.Entries) == 0 {
		b.WriteString(mutedStyle.Render("  nothing selected"))
		return b.String()
	}

	width := 0
	for _, e := range p.Entries {
		if w := lipgloss.Width(e.File.Name); w > width {
			width = w
		}
	}

	for i, e := range p.Entries {
		name := e.File.Name + strings.Repeat(" ", width-lipgloss.Width(e.File.Name))

		target := mutedStyle.Render(e.ResolvedName + " (unchanged)")
		if e.Changed {
			target = changedStyle.Render(e.ResolvedName)
		}

		line := fmt.Sprintf("%4d  %s  ->  %s", i+1, name, target)

		if e.Warning != "" {
			line += "  " + warnStyle.Render("! "+e.Warning)
		}

		if report != nil && i < len(report.Results) {
			switch r := report.Results[i]; r.Status {
			case types.EntryCollision:
				line += "  " + warnStyle.Render("stored as "+r.Expected)
			case types.EntrySourceMissing:
				line += "  " + errorStyle.Render("source missing")
			case types.EntrySamePath:
				line += "  " + mutedStyle.Render("already in place")
			}
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Inspect groups the plan by extension and picks the largest and oldest files
func Inspect(p *types.Plan, topN int) types.InspectReport {
	groups := make(map[string]*types.ExtensionGroup)
	files := make([]types.FileEntry, 0, len(p.Entries))

	for _, e := range p.Entries {
		ext := strings.ToLower(e.File.Extension)
		if ext == "" {
			ext = "(none)"
		}
		g, ok := groups[ext]
		if !ok {
			g = &types.ExtensionGroup{Extension: ext}
			groups[ext] = g
		}
		g.Count++
		g.TotalSize += e.File.SizeBytes
		files = append(files, e.File)
	}

	report := types.InspectReport{Groups: make([]types.ExtensionGroup, 0, len(groups))}
	for _, g := range groups {
		report.Groups = append(report.Groups, *g)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		a, b := report.Groups[i], report.Groups[j]
		if a.TotalSize != b.TotalSize {
			return a.TotalSize > b.TotalSize
		}
		return a.Extension < b.Extension
	})

	largest := append([]types.FileEntry(nil), files...)
	sort.SliceStable(largest, func(i, j int) bool { return largest[i].SizeBytes > largest[j].SizeBytes })
	report.Largest = head(largest, topN)

	oldest := append([]types.FileEntry(nil), files...)
	sort.SliceStable(oldest, func(i, j int) bool { return oldest[i].CreatedAt.Before(oldest[j].CreatedAt) })
	report.Oldest = head(oldest, topN)

	return report
}

func head(files []types.FileEntry, n int) []types.FileEntry {
	if len(files) > n {
		return files[:n]
	}
	return files
}

// RenderInspect formats an inspect report
func RenderInspect(r types.InspectReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("By extension"))
	b.WriteString("\n")
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "  %-10s %4d file(s)  %10s\n", g.Extension, g.Count, FormatSize(g.TotalSize))
	}

	b.WriteString(titleStyle.Render("Largest"))
	b.WriteString("\n")
	for _, f := range r.Largest {
		fmt.Fprintf(&b, "  %10s  %s\n", FormatSize(f.SizeBytes), f.Name)
	}

	b.WriteString(titleStyle.Render("Oldest"))
	b.WriteString("\n")
	for _, f := range r.Oldest {
		fmt.Fprintf(&b, "  %s  %s\n", f.CreatedAt.Format("2006-01-02 15:04"), f.Name)
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatSize renders a byte count with a binary unit
func FormatSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
