// Package dispatch runs the worker pool that claims queued tasks and
// routes them to registered processors.
//
// Failure classification follows the processors sentinels: permanent
// errors end a task immediately, everything else retries with backoff
// until the configured attempt ceiling.
package dispatch
