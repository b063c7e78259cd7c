// Package snapshot exports and imports the ledger as a standalone JSON
// document. Imports are checked against an embedded CUE schema before
// anything touches the ledger.
package snapshot

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/natefinch/atomic"

	"github.com/roach88/intake/internal/ledger"
)

//go:embed schema.cue
var schemaSource string

// Version is the current document version.
const Version = 1

// Document is the exported form of a ledger.
type Document struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Entries    []ledger.Entry `json:"entries"`
}

// Problem is one schema violation.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every schema violation in a document.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid snapshot: " + e.Problems[0].Message
	}
	return fmt.Sprintf("invalid snapshot: %d problems, first: %s", len(e.Problems), e.Problems[0].Message)
}

// Lister is the read side of the ledger.
type Lister interface {
	List(includeCancelled bool) []ledger.Entry
}

// Replacer is the write side of the ledger used by Import.
type Replacer interface {
	Replace(ctx context.Context, entries []ledger.Entry) error
}

// New captures every entry of l, cancelled ones included.
func New(l Lister, now time.Time) Document {
	entries := l.List(true)
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return Document{Version: Version, ExportedAt: now.UTC(), Entries: entries}
}

// Marshal encodes doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes doc to path atomically.
func Save(path string, doc Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	return nil
}

// Parse validates data against the schema and decodes it.
// Schema violations are reported as *ValidationError.
func Parse(data []byte) (Document, error) {
	if err := Validate(data); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Entries == nil {
		return Document{}, &ValidationError{Problems: []Problem{{Path: "entries", Message: "entries is required"}}}
	}
	return doc, nil
}

// Load reads and parses the snapshot at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Parse(data)
}

// Import loads the snapshot at path and replaces the ledger with it.
func Import(ctx context.Context, path string, l Replacer) (Document, error) {
	doc, err := Load(path)
	if err != nil {
		return Document{}, err
	}
	return doc, l.Replace(ctx, doc.Entries)
}

// Validate checks data against the #Snapshot schema.
func Validate(data []byte) error {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Snapshot"))

	doc := cctx.CompileBytes(data, cue.Filename("snapshot.json"))
	if err := doc.Err(); err != nil {
		return &ValidationError{Problems: problems(err)}
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Problems: problems(err)}
	}
	return nil
}

func problems(err error) []Problem {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []Problem{{Message: err.Error()}}
	}
	out := make([]Problem, 0, len(errs))
	for _, e := range errs {
		out = append(out, Problem{
			Path:    strings.Join(e.Path(), "."),
			Message: e.Error(),
		})
	}
	return out
}
