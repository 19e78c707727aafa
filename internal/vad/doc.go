// Package vad detects voiced speech in a pitch contour and derives the
// active region used as the denominator for percentage-based features.
package vad
