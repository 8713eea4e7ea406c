// Package ast defines the Flux document model: the already-validated input
// the kernel and render builder consume.
//
// Expressions, actions, body nodes and content are closed sums. Each is a
// sealed interface whose implementations live in this package, decoded from
// JSON by a "kind" discriminator (or by shape, for content). Callers switch
// over the concrete types exhaustively.
package ast
