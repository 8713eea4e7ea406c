// Package render builds the render IR from a document and a kernel snapshot.
//
// Build is pure: the same document, snapshot, seed, docstep and time give
// byte-identical canonical output. Renderer wraps a kernel runtime with a
// continuous clock so hosts can tick, step and render one session.
//
// NODE IDENTITY:
//
// A node keeps its declared id. Nodes without one get a positional id
// ("n0", "n0.1") derived from their path in the body tree, so ids are
// stable across renders of the same document.
//
// REFRESH:
//
// Static content never refreshes. Parameter, docstep, grid and random
// asset content refresh per docstep. Time content refreshes every second,
// and per-second choose/cycle content every period. An explicit slot
// refresh overrides the inferred policy.
package render
