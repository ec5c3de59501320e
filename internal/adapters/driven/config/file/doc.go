// Package file provides the TOML configuration adapter.
//
// The configuration file is read once at startup and projected into an
// immutable domain.Settings value. A missing file yields the defaults.
package file
