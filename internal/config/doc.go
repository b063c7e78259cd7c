// Package config loads, normalizes, and validates intake configuration.
//
// Settings come from a TOML file (~/.config/intake/config.toml, or
// ./intake.toml in the working directory) layered over Default(). Paths are
// tilde-expanded and made absolute, enum-like values are lower-cased, and
// Validate reports the first unusable setting with its TOML key.
package config
