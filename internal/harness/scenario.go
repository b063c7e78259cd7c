package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/station"
)

// DefaultStepGap is how far the clock moves before a step that sets no
// "after" duration. It is longer than the scan debounce window.
const DefaultStepGap = time.Second

// Scenario defines a receiving scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog holds the raw catalog rows, header included.
	Catalog [][]string `yaml:"catalog,omitempty"`

	// CatalogFile is a tabular file loaded instead of Catalog. Relative
	// paths are resolved against the scenario file's directory.
	CatalogFile string `yaml:"catalog_file,omitempty"`

	// Header is the header detection mode: auto, always or never.
	Header string `yaml:"header,omitempty"`

	// Passphrase provisions the session before the steps run. The session
	// starts unauthorized either way.
	Passphrase string `yaml:"passphrase,omitempty"`

	// Steps are the operator actions, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operator action.
type Step struct {
	// Action is a station event name, e.g. "submit" or "confirm".
	Action string `yaml:"action"`

	// Text is the query, code, quantity, passphrase or file path.
	Text string `yaml:"text,omitempty"`

	// Index is the zero-based search result for pick.
	Index int `yaml:"index,omitempty"`

	// Key is the identity key for edit, cancel_entry and delete.
	Key string `yaml:"key,omitempty"`

	// Flag is the filter state for filter.
	Flag bool `yaml:"flag,omitempty"`

	// After is the clock advance before the step, e.g. "100ms".
	// Empty means DefaultStepGap.
	After string `yaml:"after,omitempty"`

	// Expect checks the step outcome. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Outcome is "ok" or "error". Empty means not checked.
	Outcome string `yaml:"outcome,omitempty"`

	// Notice is a notice code the step must publish.
	Notice string `yaml:"notice,omitempty"`

	// Prompt is the workflow state after the step.
	Prompt string `yaml:"prompt,omitempty"`

	// Results is the number of search results after the step.
	Results *int `yaml:"results,omitempty"`

	// Prefill is the quantity pre-filled in the open prompt.
	Prefill *string `yaml:"prefill,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type (see the Assert* constants).
	Type string `yaml:"type"`

	// Key is the identity key (ledger_contains, ledger_absent).
	Key string `yaml:"key,omitempty"`

	// Quantity is the expected quantity (ledger_contains).
	Quantity string `yaml:"quantity,omitempty"`

	// Status is the expected status (ledger_contains).
	Status string `yaml:"status,omitempty"`

	// Count is the expected entry count (ledger_count).
	Count int `yaml:"count,omitempty"`

	// IncludeCancelled counts cancelled entries too (ledger_count).
	IncludeCancelled bool `yaml:"include_cancelled,omitempty"`

	// State is the expected workflow state (prompt_state).
	State string `yaml:"state,omitempty"`

	// Code is the notice code (notice_seen).
	Code string `yaml:"code,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertLedgerContains = "ledger_contains"
	AssertLedgerAbsent   = "ledger_absent"
	AssertLedgerCount    = "ledger_count"
	AssertPromptState    = "prompt_state"
	AssertNoticeSeen     = "notice_seen"
	AssertTraceOrder     = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file. A relative
// catalog_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// catalog_file and load_catalog paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		scenario.CatalogFile = resolve(basePath, scenario.CatalogFile)
		for i, step := range scenario.Steps {
			if step.Action == station.EventLoadCatalog.String() {
				scenario.Steps[i].Text = resolve(basePath, step.Text)
			}
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Catalog) > 0 && s.CatalogFile != "" {
		return fmt.Errorf("catalog and catalog_file are mutually exclusive")
	}
	if s.Header != "" {
		if _, err := catalog.ParseHeaderMode(s.Header); err != nil {
			return fmt.Errorf("header: %w", err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if _, ok := station.ParseEventType(step.Action); !ok {
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.After != "" {
			d, err := time.ParseDuration(step.After)
			if err != nil {
				return fmt.Errorf("steps[%d]: after: %w", i, err)
			}
			if d < 0 {
				return fmt.Errorf("steps[%d]: after must be non-negative", i)
			}
		}
		if e := step.Expect; e != nil {
			if e.Outcome != "" && e.Outcome != OutcomeOK && e.Outcome != OutcomeError {
				return fmt.Errorf("steps[%d].expect: outcome must be %q or %q", i, OutcomeOK, OutcomeError)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLedgerContains, AssertLedgerAbsent:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertLedgerCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for ledger_count", index)
		}
	case AssertPromptState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for prompt_state", index)
		}
	case AssertNoticeSeen:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for notice_seen", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
