package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/config"
	"github.com/roach88/intake/internal/ledger"
	"github.com/roach88/intake/internal/session"
	"github.com/roach88/intake/internal/station"
	"github.com/roach88/intake/internal/store"
	"github.com/roach88/intake/internal/tabular"
)

const memoryDatabase = ":memory:"

// app is one opened station: config, locked database, ledger, session and
// station, restored from the database.
type app struct {
	cfg     *config.Config
	store   *store.Store
	lock    *flock.Flock
	session *session.Session
	ledger  *ledger.Ledger
	station *station.Station
	logger  *slog.Logger
	out     *OutputFormatter

	notices []station.Notice
}

// loadConfig loads the config named by the root flags and applies the
// --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, _, _, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		if opts.Database == memoryDatabase {
			cfg.Store.Path = memoryDatabase
		} else {
			path, err := config.ExpandPath(opts.Database)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "invalid database path", err)
			}
			cfg.Store.Path = path
		}
	}
	return cfg, nil
}

// newFormatter builds the output formatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openApp opens the station described by the config. The database is locked
// for the lifetime of the app; a second process gets ExitCommandError.
func openApp(cmd *cobra.Command, opts *RootOptions, extra ...station.Option) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Logging, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, out: newFormatter(opts, cmd)}

	if cfg.Store.Path != memoryDatabase {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
		a.lock = flock.New(cfg.Store.Path + ".lock")
		ok, err := a.lock.TryLock()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to acquire database lock", err)
		}
		if !ok {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("database %s is in use by another intake process", cfg.Store.Path))
		}
	}

	logger.Debug("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		a.unlock()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	a.store = st

	a.session = session.New(st,
		session.WithBootstrapOnFirstUse(cfg.Session.BootstrapOnFirstUse),
		session.WithLogger(logger),
	)
	a.ledger = ledger.New(st, a.session, ledger.WithLogger(logger))

	stationOpts := []station.Option{
		station.WithCatalogFile(cfg.Catalog.Path, tabular.Options{Sheet: cfg.Catalog.Sheet}),
		station.WithColumns(cfg.ColumnMap()),
		station.WithHeaderMode(cfg.HeaderMode()),
		station.WithDebounce(cfg.Debounce(), nil),
		station.WithLogger(logger),
	}
	a.station = station.New(st, a.ledger, a.session, append(stationOpts, extra...)...)
	a.station.Subscribe(func(u station.Update) {
		if u.Kind == station.UpdateNotice {
			a.notices = append(a.notices, u.Notice)
			a.out.Notice(u.Notice)
		}
	})

	// Restore failures are reported as notices; the station stays usable.
	if err := a.station.Restore(cmd.Context()); err != nil {
		logger.Warn("restore incomplete", "error", err)
	}
	return a, nil
}

// Close releases the database and its lock.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("error closing database", "error", err)
		}
	}
	a.unlock()
}

func (a *app) unlock() {
	if a.lock == nil {
		return
	}
	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("failed to release database lock", "error", err)
	}
}

// authorize grants the session with passphrase, taken from the flag or the
// INTAKE_PASSPHRASE environment variable.
func (a *app) authorize(ctx context.Context, passphrase string) error {
	if passphrase == "" {
		passphrase = os.Getenv(passphraseEnv)
	}
	if passphrase == "" {
		return NewExitError(ExitFailure, fmt.Sprintf("a passphrase is required (--passphrase or %s)", passphraseEnv))
	}
	if err := a.station.Authorize(ctx, passphrase); err != nil {
		return failure(err)
	}
	return nil
}

const passphraseEnv = "INTAKE_PASSPHRASE"

// failure maps a domain error to an ExitError. A persistence failure exits
// with ExitCommandError: a one-shot command loses its in-memory state on exit.
func failure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrPersistence) {
		return WrapExitError(ExitCommandError, "not saved", err)
	}
	return WrapExitError(ExitFailure, "failed", err)
}
