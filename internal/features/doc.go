// Package features extracts the voice-quality feature set (perturbation,
// harmonicity, pauses, speech rate and voice breaks) from a decoded
// recording and its active region.
package features
