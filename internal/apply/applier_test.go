package apply

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/internal/listing"
	"github.com/woodgear/fmove/internal/logging"
	"github.com/woodgear/fmove/internal/plan"
	"github.com/woodgear/fmove/internal/selector"
	"github.com/woodgear/fmove/pkg/types"
)

func writeFiles(t *testing.T, dir string, contents map[string]string) {
	t.Helper()
	for name, content := range contents {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func buildPlan(t *testing.T, src, dst, expr string, mode types.Mode, rules types.CleaningRules) *types.Plan {
	t.Helper()
	files, err := listing.NewScanner(nil).Scan(src)
	require.NoError(t, err)
	sel, err := selector.Select(files, expr)
	require.NoError(t, err)
	return plan.NewBuilder(rules).Build(src, dst, mode, sel.Files)
}

func TestApplyEndToEnd(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeFiles(t, src, map[string]string{"a.txt": "A", "b ä.txt": "B", "c.txt": "C"})

	rules := types.CleaningRules{Enabled: true, RemoveSpaces: true, ReplaceUmlauts: true}
	p := buildPlan(t, src, dst, "alle", types.ModeMove, rules)

	require.Len(t, p.Entries, 3)
	assert.Equal(t, "a.txt", p.Entries[0].ResolvedName)
	assert.False(t, p.Entries[0].Changed)
	assert.Equal(t, "b_ae.txt", p.Entries[1].ResolvedName)
	assert.True(t, p.Entries[1].Changed)
	assert.Equal(t, "c.txt", p.Entries[2].ResolvedName)
	assert.False(t, p.Entries[2].Changed)

	var progress []int
	applier := NewApplier(nil, types.ApplyOptions{OnProgress: func(done, total int, _ types.Outcome) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	}})

	summary, err := applier.Apply(p)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, 0, summary.ErrorCount)
	assert.Equal(t, 0, summary.SkippedCount)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []int{1, 2, 3}, progress)

	assert.Equal(t, []string{"a.txt", "b_ae.txt", "c.txt"}, dirNames(t, dst))
	assert.Empty(t, dirNames(t, src))
	assert.Equal(t, "B", readFile(t, filepath.Join(dst, "b_ae.txt")))
}

func TestApplyNeverOverwrites(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"report.txt": "new"})
	writeFiles(t, dst, map[string]string{"report.txt": "old"})

	summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(buildPlan(t, src, dst, "1", types.ModeMove, types.CleaningRules{}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.Equal(t, "report_1.txt", summary.Outcomes[0].FinalName)

	assert.Equal(t, "old", readFile(t, filepath.Join(dst, "report.txt")))
	assert.Equal(t, "new", readFile(t, filepath.Join(dst, "report_1.txt")))
}

func TestApplyCopyWithDuplicateSelection(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "A", "b.txt": "B"})

	summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(buildPlan(t, src, dst, "1,1,2", types.ModeCopy, types.CleaningRules{}))
	require.NoError(t, err)
	require.Equal(t, 3, summary.SuccessCount)

	assert.Equal(t, []string{"a.txt", "a_1.txt", "b.txt"}, dirNames(t, dst))
	assert.Equal(t, []string{"a.txt", "b.txt"}, dirNames(t, src))
}

func TestApplyMoveWithDuplicateSelection(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "A"})

	summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(buildPlan(t, src, dst, "1,1", types.ModeMove, types.CleaningRules{}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.Equal(t, 1, summary.ErrorCount)
	require.Equal(t, types.KindNotFound, summary.Outcomes[1].Kind)

	assert.Equal(t, []string{"a.txt"}, dirNames(t, dst))
}

func TestApplyContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "A", "b.txt": "B", "c.txt": "C"})

	p := buildPlan(t, src, dst, "all", types.ModeMove, types.CleaningRules{})
	// The snapshot is stale for b.txt
	require.NoError(t, os.Remove(filepath.Join(src, "b.txt")))

	log := new(logging.MockLogger)
	log.On("Log", mock.Anything, mock.Anything).Return()

	summary, err := NewApplier(log, types.ApplyOptions{}).Apply(p)
	require.NoError(t, err)
	require.Equal(t, 2, summary.SuccessCount)
	require.Equal(t, 1, summary.ErrorCount)

	require.Equal(t, types.StatusSuccess, summary.Outcomes[0].Status)
	require.Equal(t, types.StatusFailed, summary.Outcomes[1].Status)
	require.Equal(t, types.KindNotFound, summary.Outcomes[1].Kind)
	require.Contains(t, summary.Outcomes[1].Detail, "b.txt")
	require.Equal(t, types.StatusSuccess, summary.Outcomes[2].Status)

	assert.Equal(t, []string{"a.txt", "c.txt"}, dirNames(t, dst))
	log.AssertCalled(t, "Log", mock.MatchedBy(func(msg string) bool {
		return strings.HasPrefix(msg, "b.txt failed")
	}), logging.Error)
}

func TestApplyCollisionExhausted(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"r.txt": "R", "s.txt": "S"})
	writeFiles(t, dst, map[string]string{"r.txt": "old"})
	for n := 1; n <= fs.MaxSuffix; n++ {
		writeFiles(t, dst, map[string]string{fs.SuffixedName("r.txt", n): "old"})
	}

	summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(buildPlan(t, src, dst, "all", types.ModeCopy, types.CleaningRules{}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.Equal(t, 1, summary.ErrorCount)

	require.Equal(t, types.StatusFailed, summary.Outcomes[0].Status)
	require.Equal(t, types.KindCollisionExhausted, summary.Outcomes[0].Kind)
	require.Equal(t, types.StatusSuccess, summary.Outcomes[1].Status)

	assert.Equal(t, "S", readFile(t, filepath.Join(dst, "s.txt")))
	assert.Equal(t, "old", readFile(t, filepath.Join(dst, "r.txt")))
}

func TestApplyPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "A", "b.txt": "B"})
	require.NoError(t, os.Chmod(filepath.Join(src, "a.txt"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(src, "a.txt"), 0o644) })

	summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(buildPlan(t, src, dst, "all", types.ModeCopy, types.CleaningRules{}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.ErrorCount)
	require.Equal(t, 1, summary.SuccessCount)
	require.Equal(t, types.KindPermission, summary.Outcomes[0].Kind)
	require.Equal(t, []string{"b.txt"}, dirNames(t, dst))
}

func TestApplyPreconditions(t *testing.T) {
	t.Parallel()

	t.Run("missing source is fatal", func(t *testing.T) {
		p := &types.Plan{SourceDir: filepath.Join(t.TempDir(), "nope"), DestinationDir: t.TempDir(), Mode: types.ModeMove}
		_, err := NewApplier(nil, types.ApplyOptions{}).Apply(p)
		require.ErrorIs(t, err, ErrSourceMissing)
	})

	t.Run("destination is created", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "a", "b")
		p := &types.Plan{SourceDir: t.TempDir(), DestinationDir: dst, Mode: types.ModeCopy}
		summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(p)
		require.NoError(t, err)
		require.Empty(t, summary.Outcomes)
		require.DirExists(t, dst)
	})

	t.Run("destination blocked by a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		p := &types.Plan{SourceDir: t.TempDir(), DestinationDir: filepath.Join(blocker, "out"), Mode: types.ModeCopy}
		_, err := NewApplier(nil, types.ApplyOptions{}).Apply(p)
		require.ErrorIs(t, err, ErrDestination)
	})

	t.Run("invalid mode", func(t *testing.T) {
		p := &types.Plan{SourceDir: t.TempDir(), DestinationDir: t.TempDir(), Mode: "link"}
		_, err := NewApplier(nil, types.ApplyOptions{}).Apply(p)
		require.Error(t, err)
	})
}

func TestApplySkipsFileAlreadyInPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "A", "b c.txt": "B"})

	rules := types.CleaningRules{Enabled: true, RemoveSpaces: true}
	summary, err := NewApplier(nil, types.ApplyOptions{}).Apply(buildPlan(t, dir, dir, "all", types.ModeMove, rules))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)
	require.Equal(t, 1, summary.SuccessCount)
	require.Equal(t, []string{"a.txt", "b_c.txt"}, dirNames(t, dir))
}

func TestApplyDryRun(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeFiles(t, src, map[string]string{"a.txt": "A"})

	summary, err := NewApplier(nil, types.ApplyOptions{DryRun: true}).Apply(buildPlan(t, src, dst, "all", types.ModeMove, types.CleaningRules{}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)
	require.Contains(t, summary.Outcomes[0].Detail, "dry-run")
	require.NoDirExists(t, dst)
	require.FileExists(t, filepath.Join(src, "a.txt"))
}

func TestApplyFromFile(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{"x y.txt": "X"})

	p := buildPlan(t, src, dst, "all", types.ModeCopy, types.CleaningRules{Enabled: true, RemoveSpaces: true})
	planFile := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, plan.WritePlan(planFile, p))

	summary, err := NewApplier(nil, types.ApplyOptions{}).ApplyFromFile(planFile)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.FileExists(t, filepath.Join(dst, "x_y.txt"))
}
