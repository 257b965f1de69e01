// Package config loads, normalizes, and validates the mangamatch TOML
// configuration, layering environment overrides on top of the file.
//
// Use Load to obtain a Config snapshot for a run; it is treated as read-only
// by every component that receives it.
package config
