package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/ast"
)

// GrowthJSON is a 3x3 grid whose centre cell is tagged "alive". The rule
// "spread" tags any cell with an alive orthogonal neighbour and bumps its
// density; "generation" counts docsteps in a parameter.
const GrowthJSON = `{
  "meta": {"title": "Growth", "version": "1"},
  "state": {"params": [{"name": "generation", "type": "number", "init": 0}]},
  "grids": [{
    "name": "main",
    "topology": "grid",
    "size": {"rows": 3, "cols": 3},
    "cells": [
      {"id": "c0"}, {"id": "c1"}, {"id": "c2"},
      {"id": "c3"}, {"id": "c4", "tags": ["alive"], "density": 1}, {"id": "c5"},
      {"id": "c6"}, {"id": "c7"}, {"id": "c8"}
    ]
  }],
  "rules": [{
    "name": "spread",
    "grid": "main",
    "when": {"kind": "binary", "op": ">",
             "left": {"kind": "neighbors", "tag": "alive", "scope": "orth"},
             "right": 0},
    "then": [
      {"kind": "addTag", "tag": "alive"},
      {"kind": "set", "target": "cell.density",
       "value": {"kind": "binary", "op": "+", "left": {"kind": "ref", "path": "cell.density"}, "right": 1}}
    ]
  }, {
    "name": "generation",
    "grid": "main",
    "then": [{"kind": "set", "target": "param.generation",
              "value": {"kind": "binary", "op": "+", "left": {"kind": "ref", "path": "param.generation"}, "right": 1}}]
  }]
}`

// MissingGridJSON binds rule "growNoise" to a grid "main" that does not exist.
const MissingGridJSON = `{
  "meta": {"title": "Broken"},
  "grids": [{"name": "field", "topology": "grid", "cells": [{"id": "a"}, {"id": "b"}]}],
  "rules": [{
    "name": "growNoise",
    "grid": "main",
    "then": [{"kind": "set", "target": "cell.salience", "value": {"kind": "random"}}]
  }]
}`

// ShowcaseJSON exercises every body node kind, dynamic content, assets and
// a one-second timer advance.
const ShowcaseJSON = `{
  "meta": {"title": "Showcase", "version": "0.3"},
  "state": {"params": [
    {"name": "mood", "type": "string", "init": "calm"},
    {"name": "level", "type": "number", "init": 3}
  ]},
  "grids": [{
    "name": "strip",
    "topology": "linear",
    "cells": [
      {"id": "s0", "content": "alpha", "tags": ["lit"]},
      {"id": "s1", "content": "beta", "mediaId": "fern"},
      {"id": "s2", "content": "gamma"}
    ]
  }],
  "rules": [{
    "name": "shimmer",
    "grid": "strip",
    "then": [{"kind": "set", "target": "cell.salience", "value": {"kind": "random"}}]
  }, {
    "name": "pass",
    "grid": "strip",
    "when": {"kind": "binary", "op": ">",
             "left": {"kind": "neighbors", "tag": "lit"}, "right": 0},
    "then": [{"kind": "addTag", "tag": "lit"}],
    "else": [{"kind": "removeTag", "tag": "lit"}]
  }, {
    "name": "onNudge",
    "grid": "strip",
    "mode": "event",
    "on": "nudge",
    "then": [{"kind": "set", "target": "param.level",
              "value": {"kind": "ref", "path": "event.payload.level"}}]
  }],
  "runtime": {"docstepAdvance": {"kind": "timer", "amount": 1, "unit": "s"}},
  "page": {"size": "A4", "orientation": "portrait", "margin": "20mm"},
  "assets": {"banks": [{
    "name": "plants",
    "root": "media/plants",
    "tags": ["green"],
    "entries": [
      {"name": "fern", "path": "fern.png", "kind": "image", "tags": ["leafy"]},
      {"name": "moss", "path": "moss.png", "kind": "image"},
      {"name": "vine", "path": "sub/vine.png", "kind": "image", "tags": ["leafy"]}
    ]
  }]},
  "body": [
    {"kind": "section", "id": "intro", "title": "Intro", "children": [
      {"kind": "text", "content": "Mood: "},
      {"kind": "inline_slot", "id": "mood", "reserve": {"width": "8ch"}, "fit": "ellipsis",
       "content": {"param": "mood"}},
      {"kind": "text", "content": " at step "},
      {"kind": "inline_slot", "id": "step", "reserve": {"width": "4ch"}, "content": {"docstep": true}}
    ]},
    {"kind": "grid", "id": "cells", "grid": "strip"},
    {"kind": "slot", "id": "clock", "refresh": "every(1s)", "fit": "shrink",
     "reserve": {"width": "10ch", "height": "1em"}, "content": {"time": {"precision": 1}}},
    {"kind": "slot", "id": "word", "fit": "scaleDown",
     "content": {"cycle": ["one", "two", "three"]}},
    {"kind": "image", "id": "hero", "asset": {"bank": "plants", "pick": "random", "tags": ["leafy"]}},
    {"kind": "slot", "id": "plate", "refresh": "never", "asset": {"bank": "plants", "pick": "moss"}}
  ]
}`

// Document decodes src or fails the test.
func Document(t testing.TB, src string) *ast.Document {
	t.Helper()
	doc, err := ast.Decode([]byte(src))
	require.NoError(t, err)
	return doc
}

// Growth returns the decoded GrowthJSON document.
func Growth(t testing.TB) *ast.Document { return Document(t, GrowthJSON) }

// MissingGrid returns the decoded MissingGridJSON document.
func MissingGrid(t testing.TB) *ast.Document { return Document(t, MissingGridJSON) }

// Showcase returns the decoded ShowcaseJSON document.
func Showcase(t testing.TB) *ast.Document { return Document(t, ShowcaseJSON) }

// WriteDocument writes src to name inside a fresh temp directory and
// returns the file path.
func WriteDocument(t testing.TB, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}
