// Package analysis runs a recording through the acoustic pipeline: quality
// estimation, active-region detection, feature extraction and optional SNR
// correction.
package analysis
