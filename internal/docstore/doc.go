// Package docstore abstracts access to the watched intake directory and the
// archive location processed files move to.
//
// The scanner only sees the Store interface; tests substitute an in-memory
// fake so cycle behavior can be exercised without touching the filesystem.
package docstore
