// Package queue holds triaged cases awaiting clinician review.
//
// Cases are ordered so the most urgent work comes first: by status (pending,
// reviewing, referred, completed), then by priority (1 is most urgent), then
// by arrival. Two persistent stores are provided, SQLite and Badger, behind
// the Store interface, and a Manager that stamps, counts and broadcasts
// changes on top of either.
package queue
