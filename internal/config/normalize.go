package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Path != ":memory:" {
		if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
	}

	if c.Catalog.Path, err = expandPath(strings.TrimSpace(c.Catalog.Path)); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	c.Catalog.Sheet = strings.TrimSpace(c.Catalog.Sheet)
	c.Catalog.Header = strings.ToLower(strings.TrimSpace(c.Catalog.Header))
	if c.Catalog.Header == "" {
		c.Catalog.Header = defaultHeaderMode
	}

	c.Scan.Device = strings.TrimSpace(c.Scan.Device)
	if c.Scan.Device != "" && c.Scan.Device != "-" {
		if c.Scan.Device, err = expandPath(c.Scan.Device); err != nil {
			return fmt.Errorf("scan.device: %w", err)
		}
	}

	c.Export.Currency = strings.ToUpper(strings.TrimSpace(c.Export.Currency))
	if c.Export.Currency == "" {
		c.Export.Currency = defaultCurrency
	}
	c.Export.Symbology = strings.ToLower(strings.TrimSpace(c.Export.Symbology))
	if c.Export.Symbology == "" {
		c.Export.Symbology = defaultSymbology
	}
	if strings.TrimSpace(c.Export.Directory) == "" {
		c.Export.Directory = defaultExportDir
	}
	if c.Export.Directory, err = expandPath(c.Export.Directory); err != nil {
		return fmt.Errorf("export.directory: %w", err)
	}

	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
