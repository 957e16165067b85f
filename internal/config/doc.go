// Package config loads, validates, and defaults kaitiaki configuration.
//
// Configuration lives in a TOML file (default ~/.config/kaitiaki/config.toml)
// layered over built-in defaults, an optional .env file, and KAITIAKI_*
// environment overrides. Load returns a fully normalized and validated
// Config; callers never see partially-populated values.
package config
