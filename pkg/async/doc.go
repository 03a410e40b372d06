// Package async provides supervised goroutine spawning for fire-and-continue
// work such as webhook deliveries.
//
// Use Go instead of a bare `go func()` so a panicking or failing task is
// logged by its supervisor instead of crashing the process or disappearing
// silently. Tasks are detached from the caller: they run to completion
// regardless of what happens to the goroutine that spawned them.
package async
