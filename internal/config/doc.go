// Package config loads, normalizes, and validates cpelink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), resolves relative input/model/labelled-data paths against the
// data directory, and reads TOML files. Stage schemas (key, feature, attribute
// and output columns) live here so the candidate tables, the labelled data
// and the classifier artifacts are all checked against a single ordered list.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
