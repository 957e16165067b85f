// Package daemon ties the scanner, dispatcher, and HTTP API together into
// a single-instance background service guarded by a lock file.
package daemon
