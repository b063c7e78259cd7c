package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/intake/internal/catalog"
)

//go:embed sample_config.toml
var sampleConfig string

// Store locates the SQLite database holding the catalog, ledger and
// passphrase digest.
type Store struct {
	Path string `toml:"path"`
}

// Columns maps catalog fields to 0-based column positions.
type Columns struct {
	Name          int `toml:"name"`
	Price         int `toml:"price"`
	SecondaryCode int `toml:"secondary_code"`
	PrimaryCode   int `toml:"primary_code"`
}

// Catalog describes the product file loaded at station start.
type Catalog struct {
	Path    string  `toml:"path"`
	Sheet   string  `toml:"sheet"`
	Header  string  `toml:"header"` // auto, always or never
	Columns Columns `toml:"columns"`
}

// Scan contains scanner input settings.
type Scan struct {
	DebounceMS int    `toml:"debounce_ms"`
	Device     string `toml:"device"` // empty means stdin
}

// Session contains passphrase settings.
type Session struct {
	// BootstrapOnFirstUse trusts the first passphrase ever entered.
	BootstrapOnFirstUse bool `toml:"bootstrap_on_first_use"`
}

// Export contains output settings for xlsx and print exports.
type Export struct {
	Currency  string `toml:"currency"`
	Symbology string `toml:"symbology"`
	Directory string `toml:"directory"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"` // text or json
	Level  string `toml:"level"`  // debug, info, warn or error
}

// Config encapsulates all configuration values for intake.
type Config struct {
	Store   Store   `toml:"store"`
	Catalog Catalog `toml:"catalog"`
	Scan    Scan    `toml:"scan"`
	Session Session `toml:"session"`
	Export  Export  `toml:"export"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. An empty path
// searches the default locations. The returned config has all paths expanded;
// exists reports whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// ColumnMap returns the catalog column layout.
func (c *Config) ColumnMap() catalog.ColumnMap {
	return catalog.ColumnMap{
		Name:          c.Catalog.Columns.Name,
		Price:         c.Catalog.Columns.Price,
		SecondaryCode: c.Catalog.Columns.SecondaryCode,
		PrimaryCode:   c.Catalog.Columns.PrimaryCode,
	}
}

// HeaderMode returns the parsed catalog header mode. Validate guarantees it
// parses.
func (c *Config) HeaderMode() catalog.HeaderMode {
	mode, err := catalog.ParseHeaderMode(c.Catalog.Header)
	if err != nil {
		return catalog.HeaderAuto
	}
	return mode
}

// Debounce returns the scan debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Scan.DebounceMS) * time.Millisecond
}

// EnsureDirectories creates the directories holding the database and exports.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{filepath.Dir(c.Store.Path), c.Export.Directory} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
