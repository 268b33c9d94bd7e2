// Package config defines the steward service catalog and provides helpers
// to load, validate and save it.
//
// The catalog is YAML on disk, read through Viper so scalar settings accept
// STEWARD_* environment overrides. The package also centralizes the on-disk
// layout derived from the state root: per-service install directories,
// install receipts, launchd manifests, and the shell profile location.
package config
