// Package schedule owns the recurring-trigger registry and the background
// poll loop that fires pipeline operations when entries come due.
//
// The scheduler is an explicit value (no process globals): construct one, add
// entries, Start it. The poll loop checks due entries once per PollInterval
// and runs due jobs synchronously on its own goroutine; a slow job delays the
// next poll. Manual triggers run on the caller's goroutine with no mutual
// exclusion against the poller — concurrent runs are possible by design.
package schedule
