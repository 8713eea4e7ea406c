// Package patch computes and applies incremental slot updates.
//
// A render's slots are hashed under the flux/slot/v1 domain. Diffing two
// hash maps yields the slots whose content changed; only those are sent,
// as inner markup keyed by slot id. Removed slots are never reported: a
// slot that disappears keeps its last content until the next full page.
//
// Applying a patch touches only the data-flux-slot-inner container of the
// target slot, so reserved geometry is stable. Incoming markup is
// sanitised with bluemonday before it is parsed. Missing targets are
// collected in the Report and logged, never fatal.
package patch
