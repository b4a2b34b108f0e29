// Package config loads, normalizes, and validates Textifier configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN, TEXTIFIER_MODELS_DIR and TEXTIFIER_LOG_LEVEL. The Config type centralizes every knob the
// CLI needs: device candidates, decoding thresholds, translation batching,
// worker commands and versioned save naming.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical format names, and clear validation errors.
package config
