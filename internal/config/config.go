// Package config handles environment defaults and .fmove.conf.json profiles
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"

	"github.com/woodgear/fmove/pkg/types"
)

const ProfileFileName = ".fmove.conf.json"

// Config holds the environment-level defaults
type Config struct {
	SourceDir      string
	DestinationDir string
	BackupRoot     string
	LogFile        string
	RetentionDays  int
	Mode           types.Mode
	PreviewTop     int
}

// Load reads .env (if present) and the FMOVE_* environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SourceDir:      getEnv("FMOVE_SOURCE_DIR", ""),
		DestinationDir: getEnv("FMOVE_DEST_DIR", ""),
		BackupRoot:     getEnv("FMOVE_BACKUP_ROOT", "~/.fmove/backups"),
		LogFile:        getEnv("FMOVE_LOG_FILE", "~/.fmove/fmove.log"),
		RetentionDays:  getInt("FMOVE_RETENTION_DAYS", 30),
		Mode:           types.Mode(strings.ToLower(getEnv("FMOVE_MODE", string(types.ModeMove)))),
		PreviewTop:     getInt("FMOVE_PREVIEW_TOP", 5),
	}

	var err error
	for _, p := range []*string{&cfg.SourceDir, &cfg.DestinationDir, &cfg.BackupRoot, &cfg.LogFile} {
		if *p, err = homedir.Expand(*p); err != nil {
			return nil, fmt.Errorf("failed to expand path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackupRoot) == "" {
		return fmt.Errorf("FMOVE_BACKUP_ROOT cannot be empty")
	}

	if !c.Mode.Valid() {
		return fmt.Errorf("FMOVE_MODE must be %q or %q, got %q", types.ModeMove, types.ModeCopy, c.Mode)
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("FMOVE_RETENTION_DAYS cannot be negative")
	}

	if c.PreviewTop <= 0 {
		return fmt.Errorf("FMOVE_PREVIEW_TOP must be positive")
	}

	return nil
}

// Loader handles profile file loading
type Loader struct{}

// NewLoader creates a new profile loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load loads the profile of a source directory
func (l *Loader) Load(sourcePath string) (*types.Profile, error) {
	profilePath := filepath.Join(sourcePath, ProfileFileName)

	data, err := os.ReadFile(profilePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No profile, return empty one
			return &types.Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", profilePath, err)
	}

	var profile types.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", profilePath, err)
	}

	if profile.Mode != "" && !profile.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q in %s", profile.Mode, profilePath)
	}

	return &profile, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
