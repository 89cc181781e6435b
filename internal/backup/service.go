// Package backup captures and restores timestamped copies of a source directory
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/internal/logging"
	"github.com/woodgear/fmove/pkg/types"
)

const (
	// ManifestFileName is stored at the top of every backup directory
	ManifestFileName = "manifest.json"

	idPrefix   = "backup_"
	idLayout   = "20060102_150405"
	filesDir   = "files"
	timeLayout = time.RFC3339
)

var (
	// ErrNotFound reports an unknown backup id
	ErrNotFound = errors.New("backup not found")
	// ErrInvalidID reports an id that is not a plain directory name
	ErrInvalidID = errors.New("invalid backup id")
)

// Service manages the backups stored below one root directory
type Service struct {
	root string
	log  logging.Logger
	now  func() time.Time
}

// NewService creates a backup service rooted at root
func NewService(root string, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{root: root, log: log, now: time.Now}
}

// Root returns the backup root directory
func (s *Service) Root() string {
	return s.root
}

// CreateBackup copies every regular file below sourceDir into a new backup
// and returns its id. Files that cannot be copied are logged and left out.
func (s *Service) CreateBackup(sourceDir string) (string, error) {
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", sourceDir, err)
	}
	if !fs.DirExists(absSource) {
		return "", fmt.Errorf("source directory does not exist: %s", absSource)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup root %s: %w", s.root, err)
	}

	created := s.now()
	id, dir, err := s.reserve(created)
	if err != nil {
		return "", err
	}

	absRoot, _ := filepath.Abs(s.root)
	manifest := types.Manifest{
		ID:         id,
		SourcePath: absSource,
		CreatedAt:  created.Format(timeLayout),
	}

	walkErr := filepath.WalkDir(absSource, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			s.log.Log(fmt.Sprintf("backup: cannot read %s: %v", path, err), logging.Warning)
			if d != nil && d.IsDir() && path != absSource {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absSource && fs.SamePath(path, absRoot) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(absSource, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			s.log.Log(fmt.Sprintf("backup: cannot stat %s: %v", rel, err), logging.Warning)
			return nil
		}

		if err := fs.CopyFile(path, filepath.Join(dir, filesDir, rel), false); err != nil {
			s.log.Log(fmt.Sprintf("backup: failed to copy %s: %v", rel, err), logging.Error)
			return nil
		}

		manifest.FileCount++
		manifest.TotalSizeBytes += info.Size()
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to walk %s: %w", absSource, walkErr)
	}

	if err := writeManifest(dir, manifest); err != nil {
		return "", err
	}

	s.log.Log(fmt.Sprintf("backup %s created: %d file(s), %d bytes from %s", id, manifest.FileCount, manifest.TotalSizeBytes, absSource), logging.Success)
	return id, nil
}

// reserve creates a fresh backup directory named after t
func (s *Service) reserve(t time.Time) (string, string, error) {
	base := idPrefix + t.Format(idLayout)
	for n := 0; n <= fs.MaxSuffix; n++ {
		id := base
		if n > 0 {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		dir := filepath.Join(s.root, id)

		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, iofs.ErrExist) {
			return "", "", fmt.Errorf("failed to create backup directory %s: %w", dir, err)
		}
	}
	return "", "", fmt.Errorf("%w for backup %s", fs.ErrCollisionExhausted, base)
}

// RestoreBackup copies the files of a backup into destinationDir,
// replacing files with the same relative path. It returns the number of
// files restored.
func (s *Service) RestoreBackup(id, destinationDir string) (int, error) {
	manifest, err := s.Manifest(id)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", destinationDir, err)
	}

	filesRoot := filepath.Join(s.root, id, filesDir)
	count := 0
	walkErr := filepath.WalkDir(filesRoot, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) && path == filesRoot {
				// Backup of an empty directory
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(filesRoot, path)
		if err != nil {
			return err
		}

		if err := fs.CopyFile(path, filepath.Join(destinationDir, rel), true); err != nil {
			s.log.Log(fmt.Sprintf("restore: failed to copy %s: %v", rel, err), logging.Error)
			return nil
		}
		count++
		return nil
	})
	if walkErr != nil {
		return count, fmt.Errorf("failed to restore %s: %w", id, walkErr)
	}

	s.log.Log(fmt.Sprintf("backup %s restored to %s: %d of %d file(s)", manifest.ID, destinationDir, count, manifest.FileCount), logging.Success)
	return count, nil
}

// Manifest reads the manifest of one backup
func (s *Service) Manifest(id string) (types.Manifest, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return types.Manifest{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	data, err := os.ReadFile(filepath.Join(s.root, id, ManifestFileName))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return types.Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return types.Manifest{}, fmt.Errorf("failed to read manifest of %s: %w", id, err)
	}

	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return types.Manifest{}, fmt.Errorf("failed to parse manifest of %s: %w", id, err)
	}
	// The directory name is authoritative
	m.ID = id
	return m, nil
}

// ListBackups returns all readable backups, most recent first. A missing
// root yields an empty list; an unreadable one is an error.
func (s *Service) ListBackups() ([]types.Manifest, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup root %s: %w", s.root, err)
	}

	manifests := make([]types.Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := s.Manifest(entry.Name())
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}

	sort.SliceStable(manifests, func(i, j int) bool {
		ti, errI := time.Parse(timeLayout, manifests[i].CreatedAt)
		tj, errJ := time.Parse(timeLayout, manifests[j].CreatedAt)
		if errI != nil || errJ != nil || ti.Equal(tj) {
			return manifests[i].ID > manifests[j].ID
		}
		return ti.After(tj)
	})

	return manifests, nil
}

// PurgeOlderThan deletes backups created more than days days ago and
// returns how many were removed
func (s *Service) PurgeOlderThan(days int) (int, error) {
	if days < 0 {
		return 0, fmt.Errorf("days cannot be negative: %d", days)
	}

	manifests, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().AddDate(0, 0, -days)
	removed := 0
	for _, m := range manifests {
		created, err := time.Parse(timeLayout, m.CreatedAt)
		if err != nil || !created.Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.root, m.ID)); err != nil {
			s.log.Log(fmt.Sprintf("purge: failed to remove %s: %v", m.ID, err), logging.Error)
			continue
		}
		removed++
		s.log.Log(fmt.Sprintf("purged backup %s from %s", m.ID, m.CreatedAt), logging.Info)
	}

	return removed, nil
}

func writeManifest(dir string, m types.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
