// Package session runs the interactive select, preview and apply pipeline
package session

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/woodgear/fmove/internal/apply"
	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/internal/listing"
	"github.com/woodgear/fmove/internal/logging"
	"github.com/woodgear/fmove/internal/plan"
	"github.com/woodgear/fmove/internal/preview"
	"github.com/woodgear/fmove/internal/prompt"
	"github.com/woodgear/fmove/internal/selector"
	"github.com/woodgear/fmove/pkg/types"
)

const selectQuestion = "Select files (1,3,4 / 2-5 / *.pdf / all, q to quit): "

var (
	// ErrCancelled is returned when the operator quits the selection
	ErrCancelled = errors.New("cancelled")
	// ErrAborted is returned when the operator rejects the preview
	ErrAborted = errors.New("aborted at preview")
	// ErrNoFiles is returned for a source without selectable files
	ErrNoFiles = errors.New("no files in source directory")
	// ErrNoMatch is returned when a non-interactive selection is empty
	ErrNoMatch = errors.New("selection matched no files")
)

// Backupper snapshots a directory before it is modified
type Backupper interface {
	CreateBackup(sourceDir string) (string, error)
}

// Presenter shows a plan and returns the operator's decision
type Presenter interface {
	Present(p *types.Plan) (types.Decision, error)
}

// Deps are the collaborators of a session. Backup and Preview may be nil
// when the run does not use them.
type Deps struct {
	Prompt  prompt.Prompter
	Out     io.Writer
	Log     logging.Logger
	Backup  Backupper
	Preview Presenter
	Apply   types.ApplyOptions
}

// Result describes a finished run
type Result struct {
	Plan     *types.Plan
	Summary  *types.Summary
	BackupID string
}

// Session drives one run
type Session struct {
	deps Deps
}

// New creates a session
func New(deps Deps) *Session {
	if deps.Log == nil {
		deps.Log = logging.Nop()
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Session{deps: deps}
}

// Run lists the source, asks for a selection, optionally previews and
// backs up, then applies the plan. The listing taken at the start is the
// one every later step works on.
func (s *Session) Run(opts types.RunOptions) (*Result, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q", opts.Mode)
	}
	if !fs.DirExists(opts.SourceDir) {
		return nil, fmt.Errorf("%w: %s", apply.ErrSourceMissing, opts.SourceDir)
	}
	if opts.Backup && s.deps.Backup == nil {
		return nil, errors.New("backup requested but no backup service configured")
	}

	files, err := listing.NewScanner(opts.Exclude).Scan(opts.SourceDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, opts.SourceDir)
	}

	PrintListing(s.deps.Out, files)

	selection, err := s.selectFiles(files, opts.Selection)
	if err != nil {
		return nil, err
	}
	s.deps.Log.Log(fmt.Sprintf("selected %d of %d file(s) with %s rule", len(selection.Files), len(files), selection.Rule.Kind), logging.Info)

	p := plan.NewBuilder(opts.Rules).Build(opts.SourceDir, opts.DestinationDir, opts.Mode, selection.Files)
	for _, e := range p.Entries {
		if e.Warning != "" {
			s.deps.Log.Log(fmt.Sprintf("%s keeps its name: %s", e.File.Name, e.Warning), logging.Warning)
		}
	}

	result := &Result{Plan: p}

	if opts.Preview && s.deps.Preview != nil {
		decision, err := s.deps.Preview.Present(p)
		if err != nil {
			return result, fmt.Errorf("preview failed: %w", err)
		}
		if decision == types.DecisionAbort {
			s.deps.Log.Log("run aborted at preview", logging.Warning)
			return result, ErrAborted
		}
	}

	if opts.Backup && !s.deps.Apply.DryRun {
		id, err := s.deps.Backup.CreateBackup(opts.SourceDir)
		if err != nil {
			s.deps.Log.Log(fmt.Sprintf("backup failed, nothing was changed: %v", err), logging.Error)
			return result, fmt.Errorf("backup failed: %w", err)
		}
		result.BackupID = id
	}

	summary, err := apply.NewApplier(s.deps.Log, s.deps.Apply).Apply(p)
	if err != nil {
		return result, err
	}
	result.Summary = summary

	return result, nil
}

// selectFiles resolves expr once when set, otherwise asks until the
// operator gives a usable expression or quits
func (s *Session) selectFiles(files []types.FileEntry, expr string) (types.Selection, error) {
	if strings.TrimSpace(expr) != "" {
		sel, err := selector.Select(files, expr)
		switch {
		case err != nil:
			return sel, err
		case sel.Cancelled:
			return sel, ErrCancelled
		case sel.Empty():
			return sel, fmt.Errorf("%w: %q", ErrNoMatch, expr)
		}
		return sel, nil
	}

	for {
		answer, err := s.deps.Prompt.Ask(selectQuestion)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return types.Selection{Cancelled: true}, ErrCancelled
			}
			return types.Selection{}, err
		}

		sel, err := selector.Select(files, answer)
		if err != nil {
			fmt.Fprintf(s.deps.Out, "%v, try again\n", err)
			continue
		}
		if sel.Cancelled {
			return sel, ErrCancelled
		}
		if sel.Empty() {
			fmt.Fprintln(s.deps.Out, "no files matched, try again")
			continue
		}
		return sel, nil
	}
}

// PrintListing writes the numbered file listing
func PrintListing(w io.Writer, files []types.FileEntry) {
	width := 0
	for _, f := range files {
		if n := lipgloss.Width(f.Name); n > width {
			width = n
		}
	}

	for i, f := range files {
		pad := strings.Repeat(" ", width-lipgloss.Width(f.Name))
		fmt.Fprintf(w, "%4d  %s%s  %10s  %s\n", i+1, f.Name, pad, preview.FormatSize(f.SizeBytes), f.CreatedAt.Format("2006-01-02 15:04"))
	}
}
