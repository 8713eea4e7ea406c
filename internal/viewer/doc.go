// Package viewer hosts live Flux documents over HTTP.
//
// A Manager owns one Session per opened document. Each session wraps a
// render.Renderer and a patch.Tracker: the first GET of the page sends the
// full HTML, and every later step, tick or event returns only the slots
// whose content hash changed.
//
// # ROUTES
//
//	GET    /                          redirect to the only session, or list
//	GET    /sessions                  session statuses
//	GET    /sessions/{id}             full page with the viewer script
//	DELETE /sessions/{id}             close the session
//	GET    /sessions/{id}/status      docstep, time, seed and interval hint
//	GET    /sessions/{id}/patches     slots changed since the last response
//	POST   /sessions/{id}/step?n=     advance n docsteps
//	POST   /sessions/{id}/tick?seconds=
//	POST   /sessions/{id}/events      apply an event
//	GET    /sessions/{id}/diagnostics missing-slot reports
//	POST   /sessions/{id}/diagnostics report missing slots
//	GET    /sessions/{id}/files/*     files next to the document
//
// # JOURNAL
//
// With WithStore every session is journaled: a snapshot at docstep 0 and
// at every docstep reached afterwards, plus each event with the docstep
// it was applied at. store.Replay re-runs the journal.
package viewer
