// Package fs provides the filesystem operations used by apply and backup
package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// MaxSuffix bounds the collision-suffix search of UniquePath
const MaxSuffix = 10000

// ErrCollisionExhausted is returned when no free suffixed name exists
var ErrCollisionExhausted = errors.New("no free file name")

// Exists reports whether anything (file, dir, broken symlink) is at path
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// DirExists checks if path is an existing directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SuffixedName returns name with _n inserted before its extension
func SuffixedName(name string, n int) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// UniquePath returns dir/name, or the first dir/{stem}_{n}{ext} with
// n in 1..MaxSuffix that does not exist yet
func UniquePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if !Exists(candidate) {
		return candidate, nil
	}

	for n := 1; n <= MaxSuffix; n++ {
		candidate = filepath.Join(dir, SuffixedName(name, n))
		if !Exists(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w for %s in %s after %d attempts", ErrCollisionExhausted, name, dir, MaxSuffix)
}

// CopyFile copies a regular file, keeping its permission bits.
// dst is created exclusively unless overwrite is set.
func CopyFile(src, dst string, overwrite bool) error {
	input, err := os.Open(src)
	if err != nil {
		return err
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}

	output, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(output, input)
	closeErr := output.Close()
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(dst)
		return closeErr
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// MoveFile renames src to dst, falling back to copy and remove when the
// two paths are on different devices
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return err
	}

	if err := CopyFile(src, dst, false); err != nil {
		return err
	}

	return os.Remove(src)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && strings.Contains(strings.ToLower(linkErr.Err.Error()), "cross-device") {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "cross-device")
}

// ExpandPath expands ~ and returns an absolute, cleaned path
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", errors.New("empty path")
	}
	return filepath.Abs(expanded)
}

// SamePath reports whether a and b name the same location after cleaning
func SamePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
