// Package store provides SQLite-backed durable storage for intake.
//
// The store is a small key/value table. Each logical snapshot lives under one
// key and is written whole on every change:
//   - catalog.v1: the last loaded catalog rows and column map (JSON)
//   - ledger.v1: the receiving ledger mapping (JSON)
//   - session.digest: the provisioned passphrase digest
//
// # Write Semantics
//
// Set replaces the value for a key and bumps its revision counter inside the
// same statement. Readers never observe a partially written snapshot.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The station holds a single connection; SQLite only supports one writer.
package store
