// Package server implements the Nabrah HTTP API: acoustic analysis and
// transcription of uploaded recordings, the clinician review queue with its
// CSV export and live websocket event stream, health and Prometheus metrics.
package server
