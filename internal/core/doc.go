// Package core implements the laminate-stock inventory engine.
//
// The engine ingests spreadsheet uploads into per-file Company trees, keeps a
// registry of ingested files, applies validated stock mutations, answers
// substring search and low-stock queries across all files, exports the whole
// store as CSV, and evicts stale files on a retention policy.
//
// This package has no transport or UI dependencies and can be driven by any
// frontend. All state lives in the Service; persistence is delegated to a
// Persister so the engine itself stays storage-agnostic.
//
// Concurrency model: stored trees are immutable. A mutation deep-clones the
// tree, edits the clone, persists it, and swaps the pointer, so readers that
// grabbed the old pointer keep a consistent snapshot. Mutations against the
// same file path are serialized by a per-path lock; different paths proceed
// independently. Cross-file scans collect tree pointers under a short read
// lock and iterate without holding it.
package core
