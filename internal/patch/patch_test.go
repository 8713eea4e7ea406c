package patch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/cbassuarez/flux/internal/fit"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/markup"
	"github.com/cbassuarez/flux/internal/render"
	"github.com/cbassuarez/flux/internal/testutil"
)

func newRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.NewRenderer(testutil.Showcase(t))
	require.NoError(t, err)
	return r
}

func pageDOM(t *testing.T, doc *ir.Document) *html.Node {
	t.Helper()
	page, err := markup.Page(doc)
	require.NoError(t, err)
	root, err := markup.Parse(bytes.NewReader(page))
	require.NoError(t, err)
	return root
}

func innerText(t *testing.T, root *html.Node, id string) string {
	t.Helper()
	slot := markup.FindByID(root, id)
	require.NotNil(t, slot, id)
	return markup.TextContent(markup.InnerContainer(slot))
}

func TestCollectSlotHashesOnlySlots(t *testing.T) {
	doc, err := newRenderer(t).Render()
	require.NoError(t, err)

	hashes, err := CollectSlotHashes(doc)
	require.NoError(t, err)
	assert.Len(t, hashes, 5)
	for _, id := range []string{"mood", "step", "clock", "word", "plate"} {
		assert.Len(t, hashes[id], 64, id)
	}
	assert.NotContains(t, hashes, "hero")
	assert.NotContains(t, hashes, "intro")
}

func TestCollectSlotHashesNested(t *testing.T) {
	inner := &ir.Node{ID: "inner", Kind: ir.KindInlineSlot, Props: ir.Object{"content": ir.String("x")}, Slot: &ir.SlotSpec{}}
	outer := &ir.Node{ID: "outer", Kind: ir.KindSlot, Props: ir.Object{}, Children: []*ir.Node{inner}, Slot: &ir.SlotSpec{}}
	doc := &ir.Document{Body: []*ir.Node{outer}}

	before, err := CollectSlotHashes(doc)
	require.NoError(t, err)
	require.Len(t, before, 2)

	inner.Props["content"] = ir.String("y")
	after, err := CollectSlotHashes(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "outer"}, DiffSlotIDs(before, after))
}

func TestDiffSlotIDs(t *testing.T) {
	prev := map[string]string{"a": "1", "b": "2", "gone": "3"}
	next := map[string]string{"b": "2", "a": "9", "new": "4"}

	assert.Equal(t, []string{"a", "new"}, DiffSlotIDs(prev, next))
	assert.Empty(t, DiffSlotIDs(next, next))
	assert.Equal(t, []string{"a", "b", "new"}, DiffSlotIDs(nil, next))
	assert.Empty(t, DiffSlotIDs(prev, nil))
}

func TestDiffAfterStep(t *testing.T) {
	r := newRenderer(t)
	d0, err := r.Render()
	require.NoError(t, err)
	d1, err := r.Step(1)
	require.NoError(t, err)

	h0, err := CollectSlotHashes(d0)
	require.NoError(t, err)
	h1, err := CollectSlotHashes(d1)
	require.NoError(t, err)
	assert.Equal(t, []string{"step", "word"}, DiffSlotIDs(h0, h1))
}

func TestBuildPatchSet(t *testing.T) {
	doc, err := newRenderer(t).Step(1)
	require.NoError(t, err)

	ps, err := BuildPatchSet(doc, []string{"step", "word"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ps.Docstep)
	assert.Equal(t, map[string]string{"step": "1", "word": "two"}, ps.SlotPatches)
	assert.Equal(t, []string{"step", "word"}, ps.IDs())

	_, err = BuildPatchSet(doc, []string{"nope"})
	assert.Error(t, err)
	_, err = BuildPatchSet(doc, []string{"intro"})
	assert.Error(t, err)
}

func TestApplySlotPatches(t *testing.T) {
	r := newRenderer(t)
	d0, err := r.Render()
	require.NoError(t, err)
	root := pageDOM(t, d0)

	d1, err := r.Step(1)
	require.NoError(t, err)
	ps, err := BuildPatchSet(d1, []string{"step", "word"})
	require.NoError(t, err)
	ps.SlotPatches["ghost"] = "boo"

	report := ApplySlotPatches(root, ps.SlotPatches)
	assert.Equal(t, []string{"step", "word"}, report.Applied)
	assert.Equal(t, []string{"ghost"}, report.Missing)
	assert.Equal(t, "1", innerText(t, root, "step"))
	assert.Equal(t, "two", innerText(t, root, "word"))
	assert.Equal(t, "calm", innerText(t, root, "mood"), "untouched")

	// The patched page matches a fresh render of the new document.
	fresh := pageDOM(t, d1)
	for _, id := range []string{"step", "word", "mood", "clock", "plate"} {
		assert.Equal(t, innerText(t, fresh, id), innerText(t, root, id), id)
	}
}

func TestApplySlotPatchesIdempotent(t *testing.T) {
	doc, err := newRenderer(t).Render()
	require.NoError(t, err)
	root := pageDOM(t, doc)
	patches := map[string]string{"mood": "<b>stormy</b>", "plate": `<img src="media/plants/vine.png" alt="vine"/>`}

	ApplySlotPatches(root, patches)
	var once bytes.Buffer
	require.NoError(t, html.Render(&once, root))

	ApplySlotPatches(root, patches)
	var twice bytes.Buffer
	require.NoError(t, html.Render(&twice, root))

	assert.Equal(t, once.String(), twice.String())
	assert.Equal(t, "stormy", innerText(t, root, "mood"))
}

func TestApplySlotPatchesSanitises(t *testing.T) {
	doc, err := newRenderer(t).Render()
	require.NoError(t, err)
	root := pageDOM(t, doc)

	ApplySlotPatches(root, map[string]string{
		"mood": `<script>alert(1)</script><span onclick="x()">ok</span>`,
	})

	inner := markup.InnerContainer(markup.FindByID(root, "mood"))
	got, err := markup.InnerHTML(inner)
	require.NoError(t, err)
	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "onclick")
	assert.Equal(t, "ok", markup.TextContent(inner))
}

func TestApplySlotPatchesWithoutPolicy(t *testing.T) {
	doc, err := newRenderer(t).Render()
	require.NoError(t, err)
	root := pageDOM(t, doc)

	ApplySlotPatches(root, map[string]string{"mood": `<em data-x="1">raw</em>`}, WithPolicy(nil))
	got, err := markup.InnerHTML(markup.InnerContainer(markup.FindByID(root, "mood")))
	require.NoError(t, err)
	assert.Equal(t, `<em data-x="1">raw</em>`, got)
}

func nestedDoc(word string) *ir.Document {
	inner := &ir.Node{
		ID: "inner", Kind: ir.KindInlineSlot,
		Props: ir.Object{"content": ir.String(word)},
		Slot:  &ir.SlotSpec{Reserve: ir.Reserve{Width: ir.Length{Value: 4, Unit: ir.UnitCh}}, Fit: ir.FitEllipsis},
	}
	cells := &ir.Node{
		ID: "cells", Kind: ir.KindGrid,
		Props: ir.Object{"grid": ir.String("main"), "cols": ir.Int(1), "cells": ir.Array{
			ir.Object{"id": ir.String("c0"), "row": ir.Int(0), "col": ir.Int(0), "density": ir.Float(0.25), "salience": ir.Float(0.5)},
		}},
	}
	outer := &ir.Node{ID: "outer", Kind: ir.KindSlot, Props: ir.Object{}, Children: []*ir.Node{inner, cells}, Slot: &ir.SlotSpec{}}
	return &ir.Document{Body: []*ir.Node{outer}}
}

func TestApplySlotPatchesKeepsNestedReservations(t *testing.T) {
	root := pageDOM(t, nestedDoc("alpha"))

	next := nestedDoc("a much longer word")
	ps, err := BuildPatchSet(next, []string{"outer"})
	require.NoError(t, err)
	report := ApplySlotPatches(root, ps.SlotPatches)
	require.Equal(t, []string{"outer"}, report.Applied)

	got, err := markup.InnerHTML(markup.InnerContainer(markup.FindByID(root, "outer")))
	require.NoError(t, err)
	want, err := markup.InnerHTML(markup.InnerContainer(markup.FindByID(pageDOM(t, next), "outer")))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Contains(t, got, "width:4ch")
	assert.Contains(t, got, "text-overflow:ellipsis")
	assert.Contains(t, got, "--density:0.25")
}

func TestApplySlotPatchesResolvesFit(t *testing.T) {
	doc, err := newRenderer(t).Render()
	require.NoError(t, err)
	root := pageDOM(t, doc)

	report := ApplySlotPatches(root, map[string]string{
		"clock": "a clock reading far too long for ten cells",
		"mood":  "a mood that overflows",
		"word":  "w",
	}, WithMeasurer(fit.TextMeasurer{FontSize: 16}))

	require.Contains(t, report.Fits, "clock")
	assert.Less(t, report.Fits["clock"].FontSize, 16.0)
	assert.GreaterOrEqual(t, report.Fits["clock"].FontSize, fit.MinFontSize)
	style, _ := markup.Attr(markup.InnerContainer(markup.FindByID(root, "clock")), "style")
	assert.Contains(t, style, "font-size:")

	assert.NotContains(t, report.Fits, "mood", "ellipsis is static")
	require.Contains(t, report.Fits, "word")
	assert.Equal(t, 1.0, report.Fits["word"].Scale)
}

func TestTracker(t *testing.T) {
	r := newRenderer(t)
	tr := NewTracker()

	d0, err := r.Render()
	require.NoError(t, err)
	first, err := tr.Next(d0)
	require.NoError(t, err)
	assert.Equal(t, []string{"clock", "mood", "plate", "step", "word"}, first.IDs())

	again, err := tr.Next(d0)
	require.NoError(t, err)
	assert.True(t, again.Empty())

	d1, err := r.Step(1)
	require.NoError(t, err)
	next, err := tr.Next(d1)
	require.NoError(t, err)
	assert.Equal(t, []string{"step", "word"}, next.IDs())

	tr.Reset()
	all, err := tr.Next(d1)
	require.NoError(t, err)
	assert.Len(t, all.SlotPatches, 5)

	tr2 := NewTracker()
	require.NoError(t, tr2.Prime(d1))
	none, err := tr2.Next(d1)
	require.NoError(t, err)
	assert.True(t, none.Empty())
}
