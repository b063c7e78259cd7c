// Package ledger implements the receiving ledger: the persisted mapping from
// catalog identity key to the quantity received for that item.
//
// Lifecycle of an entry:
//
//	Upsert ──► received ──Cancel──► cancelled
//	   ▲           │                    │
//	   └───────────┴────── Upsert ──────┘
//	HardDelete / ClearAll remove entries outright (session required).
//
// Re-receiving an item REPLACES its quantity; quantities never accumulate.
//
// Every mutation writes the whole mapping to storage before returning. When
// that write fails the mutation still stands in memory and the caller gets a
// *PersistenceError, which should be surfaced as a warning, not a failure.
//
// A Ledger is not safe for concurrent use. The station event loop is its only
// writer.
package ledger
