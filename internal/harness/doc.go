// Package harness runs receiving scenarios against a station.
//
// A scenario loads a catalog, replays operator actions through the same
// event dispatch the interactive station uses, and then checks assertions
// against the trace and the final ledger.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog:
//	  - [Name, Price, Description, Barcode]
//	  - [Milk, "10", "", "890123"]
//	passphrase: secret          # optional; provisions the session
//	steps:
//	  - action: submit
//	    text: "890123"
//	    expect:
//	      prompt: open_for_receive
//	  - action: confirm
//	    text: "3"
//	    after: 500ms             # clock advance before the step (default 1s)
//	assertions:
//	  - type: ledger_contains
//	    key: primary::890123
//	    quantity: "3"
//	  - type: ledger_count
//	    count: 1
//
// catalog_file may be given instead of catalog; it is resolved relative to
// the scenario file.
//
// # Actions
//
// Step actions are the station event names (query, submit, scan, pick, edit,
// confirm, cancel_prompt, dismiss_prompt, cancel_entry, delete, clear,
// authorize, revoke, filter, load_catalog).
//
// # Assertion Types
//
//   - ledger_contains: an entry exists for key with the given quantity/status
//   - ledger_absent: no entry exists for key
//   - ledger_count: the number of listed entries (include_cancelled optional)
//   - prompt_state: the workflow state after the last step
//   - notice_seen: a notice with code was published during the run
//   - trace_order: actions appear in order in the trace
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a manual clock
// starting at testutil.Epoch and sequential entry IDs, so the same scenario
// always produces the same trace and ledger. RunWithGolden compares both
// against testdata/golden/<name>.golden.
package harness
