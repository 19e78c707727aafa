// Package transcription turns speech recordings into text through a
// pluggable Provider. It ships a multipart HTTP client for self-hosted
// Whisper servers and an OpenAI-compatible client, caches one provider per
// model, and summarizes segment log-probabilities into a confidence score.
package transcription
