package util

import (
	"time"
)

// ResetTimer stops, drains and resets the given timer for reuse
//
// Must be called from the goroutine owning the timer channel, or a concurrent receive could
// swallow the pending tick and block the drain here
func ResetTimer(timer *time.Timer, duration time.Duration) {
	StopTimer(timer)
	timer.Reset(duration)
}

// StopTimer stops the given timer and drains its channel so a stale tick can never be observed
func StopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
