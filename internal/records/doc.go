// Package records turns raw intake files into canonical IntakeRecords.
//
// Record identifiers are derived from the file path and a SHA-256 content
// hash, so re-submitting an unchanged file after a crash reproduces the same
// id. This determinism is the idempotency anchor for the whole pipeline:
// enqueue deduplication keys off the record id.
package records
