// Package config loads, normalizes, and validates subflow's TOML
// configuration.
//
// Load decodes the file over Default(), expands paths, applies environment
// overrides, and validates the result. Validation failures carry the
// services.ErrConfiguration marker so callers can abort before any video is
// touched.
package config
