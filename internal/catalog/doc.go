// Package catalog keeps a SQLite ledger of every image the pipeline persists.
//
// Each saved file becomes one row keyed by run ID, sequence index and stage
// ("original" or "processed"), carrying the source identifier, origin URL,
// buffer kind and breed tags. The CLI's history command reads it back.
package catalog
