// Package station wires the catalog, match engine, receiving workflow,
// ledger and session into one application state object.
//
// Input arrives from three independent sources: typed queries, submitted
// codes and scanner reads. Each becomes an Event on a FIFO queue drained by
// Run, the single writer for all component state:
//
//	typed query ──┐
//	submit code ──┼──► eventQueue ──► Run ──► Dispatch ──► workflow / ledger
//	scanner ──────┘                                   └──► Update subscribers
//
// One-shot callers (the CLI subcommands) may call the same methods directly
// as long as Run is not running.
//
// Rendering is a subscriber: the station publishes Updates (search results,
// prompt transitions, ledger changes, notices) and never prints anything.
package station
