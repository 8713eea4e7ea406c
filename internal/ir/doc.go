// Package ir provides the render intermediate representation for Flux.
//
// This package contains the value union, the render node tree, canonical
// JSON, and content hashing. All other internal packages may import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - Node kinds, fit policies and refresh policies are closed sets
//   - Canonical JSON (sorted keys, NFC strings, shortest floats) is the only
//     serialization used for hashing
//   - Hashes are SHA-256 with a versioned domain prefix
//   - A Document is a value: it never aliases kernel storage
package ir
