package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seed(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestCreateListRestore(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	seed(t, src, map[string]string{"a.txt": "aaa", "b ä.txt": "bb", "sub/c.txt": "c"})

	svc := NewService(filepath.Join(t.TempDir(), "backups"), nil)
	svc.now = fixedClock(time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC))

	id, err := svc.CreateBackup(src)
	require.NoError(t, err)
	assert.Equal(t, "backup_20261019_091500", id)

	list, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, src, list[0].SourcePath)
	assert.Equal(t, "2026-10-19T09:15:00Z", list[0].CreatedAt)
	assert.Equal(t, 3, list[0].FileCount)
	assert.Equal(t, int64(6), list[0].TotalSizeBytes)

	// Lose the originals, then restore
	require.NoError(t, os.RemoveAll(src))
	count, err := svc.RestoreBackup(id, src)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	data, err := os.ReadFile(filepath.Join(src, "b ä.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(data))
	assert.FileExists(t, filepath.Join(src, "sub", "c.txt"))
}

func TestRestoreOverwrites(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	seed(t, src, map[string]string{"a.txt": "original"})

	svc := NewService(t.TempDir(), nil)
	id, err := svc.CreateBackup(src)
	require.NoError(t, err)

	seed(t, src, map[string]string{"a.txt": "modified"})
	_, err = svc.RestoreBackup(id, src)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(src, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestCreateBackupSameSecond(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	seed(t, src, map[string]string{"a.txt": "a"})

	svc := NewService(t.TempDir(), nil)
	svc.now = fixedClock(time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC))

	first, err := svc.CreateBackup(src)
	require.NoError(t, err)
	second, err := svc.CreateBackup(src)
	require.NoError(t, err)

	assert.Equal(t, "backup_20261019_091500", first)
	assert.Equal(t, "backup_20261019_091500_1", second)

	list, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
}

func TestCreateBackupSkipsNestedRoot(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	seed(t, src, map[string]string{"a.txt": "a"})

	svc := NewService(filepath.Join(src, ".backups"), nil)
	_, err := svc.CreateBackup(src)
	require.NoError(t, err)
	id, err := svc.CreateBackup(src)
	require.NoError(t, err)

	m, err := svc.Manifest(id)
	require.NoError(t, err)
	assert.Equal(t, 1, m.FileCount)
}

func TestCreateBackupMissingSource(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), nil)
	_, err := svc.CreateBackup(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestListBackupsOrderAndSkips(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	seed(t, src, map[string]string{"a.txt": "a"})

	root := t.TempDir()
	svc := NewService(root, nil)

	var ids []string
	for _, day := range []int{3, 10, 5} {
		svc.now = fixedClock(time.Date(2026, 10, day, 12, 0, 0, 0, time.UTC))
		id, err := svc.CreateBackup(src)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, os.Mkdir(filepath.Join(root, "not-a-backup"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), nil, 0o644))

	list, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[1], list[0].ID)
	assert.Equal(t, ids[2], list[1].ID)
	assert.Equal(t, ids[0], list[2].ID)
}

func TestListBackupsMissingRoot(t *testing.T) {
	t.Parallel()

	list, err := NewService(filepath.Join(t.TempDir(), "none"), nil).ListBackups()
	require.NoError(t, err)
	assert.Empty(t, list)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, err = NewService(blocker, nil).ListBackups()
	require.Error(t, err)
}

func TestPurgeOlderThan(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	seed(t, src, map[string]string{"a.txt": "a"})

	svc := NewService(t.TempDir(), nil)
	for _, day := range []int{1, 10, 18} {
		svc.now = fixedClock(time.Date(2026, 10, day, 12, 0, 0, 0, time.UTC))
		_, err := svc.CreateBackup(src)
		require.NoError(t, err)
	}

	svc.now = fixedClock(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	removed, err := svc.PurgeOlderThan(7)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "backup_20261018_120000", list[0].ID)

	_, err = svc.PurgeOlderThan(-1)
	require.Error(t, err)
}

func TestRestoreUnknownBackup(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), nil)

	_, err := svc.RestoreBackup("backup_19990101_000000", t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RestoreBackup("../etc", t.TempDir())
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestRestoreEmptyBackup(t *testing.T) {
	t.Parallel()

	svc := NewService(t.TempDir(), nil)
	id, err := svc.CreateBackup(t.TempDir())
	require.NoError(t, err)

	count, err := svc.RestoreBackup(id, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
