// Package config manages MVC configuration and the .mvc directory structure.
// It handles loading, saving, and initializing the workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	MVCDir        = ".mvc"
	ConfigFile    = "config"
	DatabaseFile  = "mvc.db"
	ChangesetsDir = "changesets"
)

// Config represents the MVC workspace configuration
type Config struct {
	CurrentSnapshot string `toml:"current_snapshot"`
	TargetSnapshot  string `toml:"target_snapshot"`
	Changesets      string `toml:"changesets_dir,omitempty"`   // empty means .mvc/changesets
	EntryChunkSize  int    `toml:"entry_chunk_size,omitempty"` // 0 picks the engine default
	path            string // path to .mvc directory
}

// FindMVCRoot finds the .mvc directory by walking up from current directory
func FindMVCRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		mvcPath := filepath.Join(dir, MVCDir)
		if info, err := os.Stat(mvcPath); err == nil && info.IsDir() {
			return mvcPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not an mvc workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .mvc directory
func Load() (*Config, error) {
	mvcPath, err := FindMVCRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(mvcPath)
}

// LoadFrom loads the configuration from a specific .mvc directory
func LoadFrom(mvcPath string) (*Config, error) {
	configPath := filepath.Join(mvcPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = mvcPath
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// MVCPath returns the path to the .mvc directory
func (c *Config) MVCPath() string {
	return c.path
}

// DatabasePath returns the path to the bbolt result cache
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// ChangesetsPath returns the path to the changesets directory
func (c *Config) ChangesetsPath() string {
	if c.Changesets != "" {
		return c.resolvePath(c.Changesets)
	}
	return filepath.Join(c.path, ChangesetsDir)
}

// resolvePath expands a snapshot path relative to the workspace root
func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), p)
}

// CurrentSnapshotPath returns the absolute path to the current snapshot file
func (c *Config) CurrentSnapshotPath() string {
	return c.resolvePath(c.CurrentSnapshot)
}

// TargetSnapshotPath returns the absolute path to the target snapshot file
func (c *Config) TargetSnapshotPath() string {
	return c.resolvePath(c.TargetSnapshot)
}

// Initialize creates a new .mvc directory with initial configuration
func Initialize(currentSnapshot, targetSnapshot, changesets string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	mvcPath := filepath.Join(cwd, MVCDir)

	// Check if already initialized
	if _, err := os.Stat(mvcPath); err == nil {
		return nil, fmt.Errorf("mvc workspace already exists")
	}

	// Create directories
	if err := os.MkdirAll(mvcPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .mvc directory: %w", err)
	}

	if changesets == "" {
		changesetsPath := filepath.Join(mvcPath, ChangesetsDir)
		if err := os.MkdirAll(changesetsPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create changesets directory: %w", err)
		}
	}

	cfg := &Config{
		CurrentSnapshot: currentSnapshot,
		TargetSnapshot:  targetSnapshot,
		Changesets:      changesets,
		path:            mvcPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(mvcPath)
		return nil, err
	}

	return cfg, nil
}
