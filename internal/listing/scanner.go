// Package listing captures the file snapshot a run operates on
package listing

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/woodgear/fmove/internal/config"
	"github.com/woodgear/fmove/pkg/types"
)

// Scanner lists the regular files of a directory
type Scanner struct {
	exclude []string
}

// NewScanner creates a new scanner. Exclude holds glob patterns matched
// case-insensitively against base names.
func NewScanner(exclude []string) *Scanner {
	patterns := make([]string, 0, len(exclude))
	for _, p := range exclude {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, strings.ToLower(p))
		}
	}
	return &Scanner{exclude: patterns}
}

// Scan returns the top-level regular files of dir sorted by name.
// Subdirectories, symlinks and the profile file are not listed.
func (s *Scanner) Scan(dir string) ([]types.FileEntry, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", dir, err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", absDir, err)
	}

	files := make([]types.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		if name == config.ProfileFileName || s.excluded(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}

		files = append(files, types.FileEntry{
			Index:     len(files) + 1,
			Name:      name,
			FullPath:  filepath.Join(absDir, name),
			SizeBytes: uint64(info.Size()),
			CreatedAt: info.ModTime(),
			Extension: filepath.Ext(name),
		})
	}

	return files, nil
}

func (s *Scanner) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range s.exclude {
		if ok, _ := path.Match(p, lower); ok {
			return true
		}
	}
	return false
}
