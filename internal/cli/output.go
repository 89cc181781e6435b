package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/woodgear/fmove/internal/backup"
	"github.com/woodgear/fmove/internal/config"
	"github.com/woodgear/fmove/internal/logging"
	"github.com/woodgear/fmove/pkg/types"
)

var (
	summaryBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#475569")).Padding(0, 1)
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// newLogger writes to the configured log file and mirrors warnings and
// errors (everything with -v) to stderr
func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.FileLogger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelInfo
	}

	w := cmd.ErrOrStderr()
	handler := logging.NewPrettyHandler(w, &slog.HandlerOptions{Level: level}, isTerminal(w))
	return logging.New(cfg.LogFile, slog.New(handler))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// progress draws a bar while a plan is applied. It stays silent when
// stderr is not a terminal or -v already prints every file.
type progress struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgress(cmd *cobra.Command) *progress {
	return &progress{enabled: !flagVerbose && isTerminal(cmd.ErrOrStderr())}
}

func (p *progress) update(done, total int, outcome types.Outcome) {
	if !p.enabled {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.Default(int64(total), "Applying")
	}
	p.bar.Describe(truncate(outcome.File.Name, 30))
	_ = p.bar.Set(done)
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// printSummary prints the counts of a run and every file that failed
func printSummary(w io.Writer, s *types.Summary, dryRun bool) {
	title := "Done"
	if dryRun {
		title = "Dry run"
	}

	body := fmt.Sprintf("%s\n%s  %s  %s\n%s",
		summaryTitle.Render(title),
		okStyle.Render(fmt.Sprintf("%d succeeded", s.SuccessCount)),
		failStyle.Render(fmt.Sprintf("%d failed", s.ErrorCount)),
		skipStyle.Render(fmt.Sprintf("%d skipped", s.SkippedCount)),
		fmt.Sprintf("run %s in %s", s.RunID, s.Finished.Sub(s.Started).Round(time.Millisecond)))
	fmt.Fprintln(w, summaryBox.Render(body))

	for _, o := range s.Outcomes {
		switch {
		case o.Status == types.StatusFailed:
			fmt.Fprintf(w, "[ERROR] %s: %s\n", o.File.Name, o.Detail)
		case o.Status == types.StatusSuccess && o.FinalName != o.File.Name:
			fmt.Fprintf(w, "[INFO] %s stored as %s\n", o.File.Name, o.FinalName)
		case flagVerbose && o.Status == types.StatusSkipped:
			fmt.Fprintf(w, "[INFO] %s skipped: %s\n", o.File.Name, o.Detail)
		}
	}
}

// purgeExpired removes backups past the retention period; zero keeps all.
// A failed purge is logged and does not fail the run.
func purgeExpired(svc *backup.Service, days int, log logging.Logger) {
	if svc == nil || days <= 0 {
		return
	}
	if _, err := svc.PurgeOlderThan(days); err != nil {
		log.Log(fmt.Sprintf("retention purge skipped: %v", err), logging.Warning)
	}
}
