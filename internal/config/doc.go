// Package config loads, normalizes, and validates slidecast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SLIDECAST_API_URL and GEMINI_API_KEY. The Config type centralizes every knob
// the wizard and CLI need: where the backend lives, how long network calls may
// take, how often jobs are polled, and the default TTS/avatar/LLM parameters
// sent with job-start requests.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
