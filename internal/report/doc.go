// Package report renders analysis results and queue listings for the
// terminal.
package report
