// Package config provides configuration loading and validation for the Nabrah
// voice triage service. It handles YAML-based configuration with per-section
// validation, defaults for omitted keys and an environment override for the
// transcription API key.
package config
