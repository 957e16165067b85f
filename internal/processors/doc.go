// Package processors implements the built-in task handlers: document
// processing, compliance audit, term indexing, and content analysis.
package processors
