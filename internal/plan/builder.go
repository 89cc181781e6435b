// Package plan provides plan building functionality
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/woodgear/fmove/internal/clean"
	"github.com/woodgear/fmove/pkg/types"
)

// Version is written into every plan file
const Version = "1.0.0"

// Builder turns a selection into a rename/move plan
type Builder struct {
	rules types.CleaningRules
	now   func() time.Time
}

// NewBuilder creates a new plan builder
func NewBuilder(rules types.CleaningRules) *Builder {
	return &Builder{rules: rules, now: time.Now}
}

// Build computes the plan for selected. It never touches the filesystem.
// Entries follow listing order whatever order selected is in; repeated
// files stay in the plan.
//
// A file whose cleaned name is unusable stays in the plan under its
// original name with Warning set; it does not fail the plan.
func (b *Builder) Build(sourceDir, destinationDir string, mode types.Mode, selected []types.FileEntry) *types.Plan {
	entries := make([]types.PlanEntry, 0, len(selected))
	for _, f := range selected {
		entries = append(entries, b.entry(f))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].File.Index < entries[j].File.Index
	})

	return &types.Plan{
		Version:        Version,
		CreatedAt:      b.now(),
		SourceDir:      sourceDir,
		DestinationDir: destinationDir,
		Mode:           mode,
		Rules:          b.rules,
		Entries:        entries,
	}
}

func (b *Builder) entry(f types.FileEntry) types.PlanEntry {
	e := types.PlanEntry{File: f, ResolvedName: f.Name}
	if !b.rules.Enabled {
		return e
	}

	cleaned, err := clean.Clean(f.Name, b.rules)
	if err != nil {
		e.Warning = err.Error()
		return e
	}

	e.ResolvedName = cleaned
	e.Changed = cleaned != f.Name
	return e
}

// ReadPlan reads a plan from a JSON file
func ReadPlan(planFile string) (*types.Plan, error) {
	data, err := os.ReadFile(planFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p types.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}

	if !p.Mode.Valid() {
		return nil, fmt.Errorf("plan file has invalid mode %q", p.Mode)
	}

	return &p, nil
}

// WritePlan writes a plan to a JSON file
func WritePlan(planFile string, p *types.Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	if err := os.WriteFile(planFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}

	return nil
}
