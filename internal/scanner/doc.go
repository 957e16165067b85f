// Package scanner drives intake cycles: list the watched folder, build
// records, persist documents, enqueue their tasks, and archive the sources.
//
// Cycles are single-flight. The interval timer, filesystem events, and the
// operator trigger all funnel into the same guarded cycle, and a file is
// archived only after its document row and tasks are durable.
package scanner
