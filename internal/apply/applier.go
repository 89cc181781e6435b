// Package apply handles plan execution
package apply

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/internal/logging"
	"github.com/woodgear/fmove/internal/plan"
	"github.com/woodgear/fmove/pkg/types"
)

var (
	// ErrSourceMissing aborts a run before any file is touched
	ErrSourceMissing = errors.New("source directory does not exist")
	// ErrDestination reports a destination that cannot be provisioned
	ErrDestination = errors.New("destination directory unavailable")
)

// Applier executes plans one file at a time
type Applier struct {
	log  logging.Logger
	opts types.ApplyOptions
	now  func() time.Time
}

// NewApplier creates a new plan applier
func NewApplier(log logging.Logger, opts types.ApplyOptions) *Applier {
	if log == nil {
		log = logging.Nop()
	}
	return &Applier{log: log, opts: opts, now: time.Now}
}

// Apply executes a plan. The returned error is only set when a
// precondition fails; per-file failures are reported in the Summary.
func (a *Applier) Apply(p *types.Plan) (*types.Summary, error) {
	if err := a.prepare(p); err != nil {
		return nil, err
	}

	summary := &types.Summary{
		RunID:    uuid.NewString(),
		Started:  a.now(),
		Outcomes: make([]types.Outcome, 0, len(p.Entries)),
	}

	a.log.Log(fmt.Sprintf("run %s: %s %d file(s) from %s to %s", summary.RunID, p.Mode, len(p.Entries), p.SourceDir, p.DestinationDir), logging.Info)

	total := len(p.Entries)
	for i, entry := range p.Entries {
		outcome := a.applyEntry(p, entry)
		summary.Record(outcome)
		a.logOutcome(outcome)

		if a.opts.OnProgress != nil {
			a.opts.OnProgress(i+1, total, outcome)
		}
	}

	summary.Finished = a.now()
	a.log.Log(fmt.Sprintf("run %s finished: %d succeeded, %d failed, %d skipped",
		summary.RunID, summary.SuccessCount, summary.ErrorCount, summary.SkippedCount), logging.Info)

	return summary, nil
}

// prepare validates the source and provisions the destination
func (a *Applier) prepare(p *types.Plan) error {
	if !p.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", p.Mode)
	}

	if !fs.DirExists(p.SourceDir) {
		return fmt.Errorf("%w: %s", ErrSourceMissing, p.SourceDir)
	}

	if fs.DirExists(p.DestinationDir) || a.opts.DryRun {
		return nil
	}

	if err := os.MkdirAll(p.DestinationDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDestination, p.DestinationDir, err)
	}
	a.log.Log(fmt.Sprintf("created destination directory %s", p.DestinationDir), logging.Info)

	return nil
}

// applyEntry moves or copies one file and describes what happened
func (a *Applier) applyEntry(p *types.Plan, entry types.PlanEntry) types.Outcome {
	outcome := types.Outcome{File: entry.File}

	desired := filepath.Join(p.DestinationDir, entry.ResolvedName)
	if fs.SamePath(desired, entry.File.FullPath) {
		outcome.Status = types.StatusSkipped
		outcome.FinalName = entry.ResolvedName
		outcome.Detail = "already in place"
		return outcome
	}

	target, err := fs.UniquePath(p.DestinationDir, entry.ResolvedName)
	if err != nil {
		return failed(outcome, err)
	}
	outcome.FinalName = filepath.Base(target)

	if a.opts.DryRun {
		outcome.Status = types.StatusSkipped
		outcome.Detail = fmt.Sprintf("dry-run: would %s to %s", p.Mode, target)
		return outcome
	}

	if p.Mode == types.ModeCopy {
		err = fs.CopyFile(entry.File.FullPath, target, false)
	} else {
		err = fs.MoveFile(entry.File.FullPath, target)
	}
	if err != nil {
		return failed(outcome, err)
	}

	outcome.Status = types.StatusSuccess
	if entry.Warning != "" {
		outcome.Detail = entry.Warning
	}
	return outcome
}

func failed(outcome types.Outcome, err error) types.Outcome {
	outcome.Status = types.StatusFailed
	outcome.Kind = classify(err)
	outcome.Detail = err.Error()
	return outcome
}

func classify(err error) types.ErrorKind {
	switch {
	case errors.Is(err, fs.ErrCollisionExhausted):
		return types.KindCollisionExhausted
	case errors.Is(err, iofs.ErrNotExist):
		return types.KindNotFound
	case errors.Is(err, iofs.ErrPermission):
		return types.KindPermission
	default:
		return types.KindIO
	}
}

func (a *Applier) logOutcome(o types.Outcome) {
	switch o.Status {
	case types.StatusSuccess:
		if o.FinalName != o.File.Name {
			a.log.Log(fmt.Sprintf("%s -> %s", o.File.Name, o.FinalName), logging.Success)
		} else {
			a.log.Log(o.File.Name, logging.Success)
		}
	case types.StatusSkipped:
		a.log.Log(fmt.Sprintf("%s skipped: %s", o.File.Name, o.Detail), logging.Warning)
	case types.StatusFailed:
		a.log.Log(fmt.Sprintf("%s failed (%s): %s", o.File.Name, o.Kind, o.Detail), logging.Error)
	}
}

// ApplyFromFile reads and applies a plan from a file
func (a *Applier) ApplyFromFile(planFile string) (*types.Summary, error) {
	loaded, err := plan.ReadPlan(planFile)
	if err != nil {
		return nil, err
	}

	return a.Apply(loaded)
}
