package config

import (
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"

	"github.com/roach88/intake/internal/barcode"
	"github.com/roach88/intake/internal/catalog"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if _, err := catalog.ParseHeaderMode(c.Catalog.Header); err != nil {
		return fmt.Errorf("catalog.header: %w", err)
	}
	if err := c.ColumnMap().Validate(); err != nil {
		return fmt.Errorf("catalog.columns: %w", err)
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.DebounceMS < 0 {
		return errors.New("scan.debounce_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateExport() error {
	if money.GetCurrency(c.Export.Currency) == nil {
		return fmt.Errorf("export.currency: unknown currency code %q", c.Export.Currency)
	}
	if _, err := barcode.ParseSymbology(c.Export.Symbology); err != nil {
		return fmt.Errorf("export.symbology: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
