// Package config loads, normalizes, and validates songline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YOUTUBE_API_KEY and SPOTIFY_CLIENT_SECRET. The Config type centralizes every
// knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
