// Package kernel implements the Flux runtime kernel.
//
// The kernel owns the mutable simulation state of one document: a flat,
// row-major cell array per grid plus the current parameter values. It
// evolves that state one docstep at a time and projects it into immutable
// snapshots for rendering.
//
// EVOLUTION CONTRACT:
//
// Within one docstep every rule reads from the same frozen "before" view of
// all grids and parameters (cellular-automaton semantics). A rule never
// observes another rule's write in the same docstep. Writes land in
// declaration order, so the last rule to write a field wins.
//
// random() is a pure function of (seed, docstep, rule index, cell index),
// so a fixed seed reproduces a run exactly.
//
// RESILIENCE:
//
// Unknown or malformed events are logged and reported as an EventOutcome
// with Applied=false. They never return an error or panic. InitError is the
// only hard failure and is raised before a session starts.
//
// CONCURRENCY:
//
// State is single-threaded. Runtime adds a per-instance mutex so Step,
// ApplyEvent and Reset never overlap, and an optional timer clock whose
// Stop waits for the timer goroutine to exit.
package kernel
