// Package audio validates and decodes uploaded WAV recordings into mono
// float signals, resamples them to the analysis rate, and encodes PCM-16
// WAV for fixtures and transcription uploads.
package audio
