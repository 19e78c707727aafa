// Package acoustics provides the acoustic primitives used by voice
// analysis: intensity and pitch contours, glottal pulse trains with jitter
// and shimmer, harmonicity, and silence segmentation. Analyzer is a native
// implementation of Provider; other engines can be plugged in behind the
// same interface.
package acoustics
