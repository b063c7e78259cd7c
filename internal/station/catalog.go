package station

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
	"github.com/roach88/intake/internal/match"
	"github.com/roach88/intake/internal/store"
	"github.com/roach88/intake/internal/tabular"
)

// LoadConfiguredCatalog loads the catalog file given by WithCatalogFile.
func (s *Station) LoadConfiguredCatalog(ctx context.Context) error {
	if s.catalogPath == "" {
		return s.fail(ErrNoCatalogFile)
	}
	return s.LoadCatalogFile(ctx, s.catalogPath)
}

// LoadCatalogFile reads the tabular file at path and replaces the catalog.
//
// A missing file returns ErrNoCatalogFile; any other failure returns a
// *CatalogLoadError. In both cases the previous catalog stays loaded.
func (s *Station) LoadCatalogFile(ctx context.Context, path string) error {
	rows, err := tabular.Read(path, s.tabularOpts)
	if errors.Is(err, fs.ErrNotExist) {
		return s.fail(fmt.Errorf("%w: %s", ErrNoCatalogFile, path))
	}
	if err != nil {
		return s.fail(&CatalogLoadError{Path: path, Err: err})
	}
	return s.LoadCatalog(ctx, rows)
}

// LoadCatalog replaces the catalog with rows and persists its snapshot.
// A persistence failure is returned as a *ledger.PersistenceError; the new
// catalog is loaded regardless.
func (s *Station) LoadCatalog(ctx context.Context, rows [][]string) error {
	idx := catalog.Load(rows, catalog.WithColumns(s.columns), catalog.WithHeaderMode(s.header))
	s.setIndex(idx)

	s.logger.Info("catalog loaded", "rows", idx.DataLen(), "data_start", idx.DataStart())
	s.notify(Notice{Level: LevelInfo, Code: NoticeCatalogLoaded,
		Message: fmt.Sprintf("catalog loaded: %d rows", idx.DataLen())})

	return s.fail(s.persistCatalog(ctx))
}

func (s *Station) setIndex(idx *catalog.Index) {
	s.index = idx
	s.engine = match.New(idx)
	s.workflow.SetRows(idx)
	s.results = nil
	s.publish(Update{Kind: UpdateCatalog})
}

func (s *Station) persistCatalog(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(s.index.Snapshot())
	if err != nil {
		return &ledger.PersistenceError{Op: "save catalog", Err: err}
	}
	if err := s.store.Set(ctx, store.KeyCatalog, string(data)); err != nil {
		return &ledger.PersistenceError{Op: "save catalog", Err: err}
	}
	return nil
}

func (s *Station) restoreCatalog(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	raw, ok, err := s.store.Get(ctx, store.KeyCatalog)
	if err != nil {
		return &ledger.PersistenceError{Op: "restore catalog", Err: err}
	}
	if !ok || raw == "" {
		return nil
	}
	var snap catalog.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return &ledger.PersistenceError{Op: "restore catalog", Err: err}
	}
	s.setIndex(catalog.FromSnapshot(snap))
	return nil
}
