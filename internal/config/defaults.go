package config

const (
	defaultConfigPath    = "~/.config/intake/config.toml"
	projectConfigName    = "intake.toml"
	defaultStorePath     = "~/.local/share/intake/intake.db"
	defaultCatalogPath   = "products.xlsx"
	defaultHeaderMode    = "auto"
	defaultDebounceMS    = 800
	defaultCurrency      = "USD"
	defaultSymbology     = "code128"
	defaultExportDir     = "."
	defaultLogFormat     = "text"
	defaultLogLevel      = "info"
	defaultBootstrapMode = false
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store: Store{
			Path: defaultStorePath,
		},
		Catalog: Catalog{
			Path:   defaultCatalogPath,
			Header: defaultHeaderMode,
			Columns: Columns{
				Name:          0,
				Price:         1,
				SecondaryCode: 2,
				PrimaryCode:   3,
			},
		},
		Scan: Scan{
			DebounceMS: defaultDebounceMS,
		},
		Session: Session{
			BootstrapOnFirstUse: defaultBootstrapMode,
		},
		Export: Export{
			Currency:  defaultCurrency,
			Symbology: defaultSymbology,
			Directory: defaultExportDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
