package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/woodgear/fmove/internal/backup"
	"github.com/woodgear/fmove/internal/logging"
)

func TestPurgeExpiredLogsFailure(t *testing.T) {
	// A regular file where the backup root should be
	root := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	log := new(logging.MockLogger)
	log.On("Log", mock.MatchedBy(func(msg string) bool {
		return strings.HasPrefix(msg, "retention purge skipped") && strings.Contains(msg, root)
	}), logging.Warning).Return().Once()

	purgeExpired(backup.NewService(root, log), 30, log)
	log.AssertExpectations(t)
}

func TestPurgeExpiredDisabled(t *testing.T) {
	log := new(logging.MockLogger)

	purgeExpired(nil, 30, log)
	purgeExpired(backup.NewService(filepath.Join(t.TempDir(), "backups"), log), 0, log)
	log.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
}
