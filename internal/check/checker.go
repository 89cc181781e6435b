// Package check verifies a plan against the filesystem before it is applied
package check

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/pkg/types"
)

// Checker verifies the entries of a plan against the current filesystem
type Checker struct{}

// NewChecker creates a new checker
func NewChecker() *Checker {
	return &Checker{}
}

// CheckPlan reports, for every entry, whether it can be applied as planned.
// Entries that resolve to the same name are checked as the executor would
// store them: the later one sees the earlier one as taken. In move mode a
// file listed twice is gone by the time its second entry runs.
func (c *Checker) CheckPlan(plan *types.Plan) *types.CheckReport {
	report := &types.CheckReport{
		Total:    len(plan.Entries),
		ByStatus: make(map[types.EntryStatus]int),
		Results:  make([]types.CheckResult, 0, len(plan.Entries)),
		AllOK:    true,
	}

	claimed := make(map[string]struct{})
	moved := make(map[string]struct{})
	for _, entry := range plan.Entries {
		_, gone := moved[entry.File.FullPath]

		var result types.CheckResult
		if gone {
			result = types.CheckResult{
				Entry:    entry,
				Status:   types.EntrySourceMissing,
				Expected: entry.ResolvedName,
				Detail:   fmt.Sprintf("moved by an earlier entry: %s", entry.File.FullPath),
			}
		} else {
			result = c.checkEntry(plan.DestinationDir, entry, claimed)
		}

		if plan.Mode == types.ModeMove && (result.Status == types.EntryOK || result.Status == types.EntryCollision) {
			moved[entry.File.FullPath] = struct{}{}
		}
		report.Results = append(report.Results, result)
		report.ByStatus[result.Status]++

		if result.Status != types.EntryOK {
			report.AllOK = false
		}
	}

	return report
}

// checkEntry checks a single entry and returns its status
func (c *Checker) checkEntry(dest string, entry types.PlanEntry, claimed map[string]struct{}) types.CheckResult {
	result := types.CheckResult{
		Entry:    entry,
		Expected: entry.ResolvedName,
	}

	if _, err := os.Stat(entry.File.FullPath); err != nil {
		result.Status = types.EntrySourceMissing
		result.Detail = fmt.Sprintf("source file does not exist: %s", entry.File.FullPath)
		return result
	}

	target := filepath.Join(dest, entry.ResolvedName)
	if fs.SamePath(target, entry.File.FullPath) {
		result.Status = types.EntrySamePath
		result.Detail = "source and destination are the same file"
		return result
	}

	taken := func(name string) bool {
		if _, ok := claimed[name]; ok {
			return true
		}
		return fs.Exists(filepath.Join(dest, name))
	}

	name := entry.ResolvedName
	for n := 1; taken(name) && n <= fs.MaxSuffix; n++ {
		name = fs.SuffixedName(entry.ResolvedName, n)
	}
	claimed[name] = struct{}{}
	result.Expected = name

	if name != entry.ResolvedName {
		result.Status = types.EntryCollision
		result.Detail = fmt.Sprintf("%s exists, will be stored as %s", entry.ResolvedName, name)
		return result
	}

	result.Status = types.EntryOK
	result.Detail = "ready"
	return result
}

// PrintReport prints a formatted check report (Unix style)
func PrintReport(w io.Writer, report *types.CheckReport) {
	labels := map[types.EntryStatus]string{
		types.EntryOK:            "OK",
		types.EntrySourceMissing: "SOURCE_MISSING",
		types.EntryCollision:     "COLLISION",
		types.EntrySamePath:      "SAME_PATH",
	}

	for _, result := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", labels[result.Status], result.Entry.File.Name, result.Expected)
	}
}
