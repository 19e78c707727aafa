// Package quality estimates the signal-to-noise ratio of a recording from
// its intensity contour and grades it for analysis reliability.
package quality
