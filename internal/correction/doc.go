// Package correction compensates perturbation, harmonicity and pause
// features for background noise using the recording's SNR.
package correction
