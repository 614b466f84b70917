// Package runner executes crawl runs in the background.
//
// A Runner accepts at most one run at a time. Each run builds a fresh
// pipeline through a Factory, executes it on its own goroutine and delivers
// exactly one Result on the returned channel, whether the run completed,
// returned an error or panicked. Finished runs are written to the history
// store when one is configured.
package runner
