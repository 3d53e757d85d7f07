// Package config loads, normalizes, and validates scenetrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// CONFIDENCE_THRESHOLD and ANNOTATION_API_KEY. The Config type centralizes
// every knob the daemon and CLI need, from the bucket layout to the
// annotation service endpoint, so they are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
