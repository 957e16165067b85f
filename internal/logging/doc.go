// Package logging builds the slog loggers used across kaitiaki.
//
// Two output formats are supported: a console handler emitting
// "timestamp LEVEL component: message key=value" lines, and a JSON handler
// for machine consumption. Field name constants keep structured attributes
// consistent between the scanner, dispatcher, and queue store.
package logging
