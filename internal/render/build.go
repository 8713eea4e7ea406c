package render

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/kernel"
)

// Options parameterize one Build call.
type Options struct {
	Seed     int64
	Time     float64 // seconds of continuous time
	Docstep  int64
	AssetCwd string // base directory for asset bank roots
}

// Build turns a document and a snapshot into a render IR tree.
//
// Build is a pure function of (doc, snap, opts): identical inputs give a
// document whose canonical bytes are identical.
func Build(doc *ast.Document, snap kernel.Snapshot, opts Options) (*ir.Document, error) {
	if opts.Time < 0 || math.IsNaN(opts.Time) || math.IsInf(opts.Time, 0) {
		return nil, fmt.Errorf("render: time must be finite and non-negative, got %v", opts.Time)
	}
	if opts.Docstep < 0 {
		return nil, fmt.Errorf("render: docstep must be non-negative, got %d", opts.Docstep)
	}
	if dups := ast.DuplicateIDs(doc.Body); len(dups) > 0 {
		return nil, fmt.Errorf("render: node id %q is declared more than once", dups[0])
	}
	b := &builder{doc: doc, snap: snap, opts: opts}

	out := &ir.Document{
		Meta:    ir.Meta{Title: doc.Meta.Title, Version: doc.Meta.Version},
		Seed:    opts.Seed,
		Docstep: opts.Docstep,
		Time:    opts.Time,
		Page:    pageValue(doc.Page),
		Body:    make([]*ir.Node, 0, len(doc.Body)),
	}
	for i, n := range doc.Body {
		out.Body = append(out.Body, b.node(n, "n"+strconv.Itoa(i)))
	}
	return out, nil
}

func pageValue(p ast.Page) ir.Object {
	size, orientation := p.Size, p.Orientation
	if size == "" {
		size = "A4"
	}
	if orientation == "" {
		orientation = "portrait"
	}
	page := ir.Object{"size": ir.String(size), "orientation": ir.String(orientation)}
	if p.Margin != "" {
		page["margin"] = ir.String(p.Margin)
	}
	return page
}

type builder struct {
	doc  *ast.Document
	snap kernel.Snapshot
	opts Options
}

var (
	refreshNever   = ir.RefreshPolicy{Kind: ir.RefreshNever}
	refreshDocstep = ir.RefreshPolicy{Kind: ir.RefreshDocstep}
)

// node builds one IR node. pos is the positional path id ("n0.1"), used
// when the author declared no id.
func (b *builder) node(n ast.BodyNode, pos string) *ir.Node {
	id := n.DeclaredID()
	if id == "" {
		id = pos
	}

	switch x := n.(type) {
	case ast.Section:
		props := ir.Object{}
		if x.Title != "" {
			props["title"] = ir.String(x.Title)
		}
		return &ir.Node{ID: id, Kind: ir.KindSection, Props: props, Refresh: refreshNever, Children: b.children(x.Children, pos)}

	case ast.Text:
		text, refresh := b.content(x.Content, id)
		return &ir.Node{ID: id, Kind: ir.KindText, Props: ir.Object{"content": ir.String(text)}, Refresh: refresh}

	case ast.GridView:
		return &ir.Node{ID: id, Kind: ir.KindGrid, Props: b.gridProps(x.Grid), Refresh: refreshDocstep}

	case ast.Image:
		asset, refresh := b.asset(x.Asset, id)
		return &ir.Node{ID: id, Kind: ir.KindImage, Props: ir.Object{"asset": asset}, Refresh: refresh}

	case ast.Slot:
		return b.slot(x, id, pos)
	}
	return &ir.Node{ID: id, Kind: ir.KindText, Props: ir.Object{"content": ir.String("")}, Refresh: refreshNever}
}

func (b *builder) children(body ast.Body, pos string) []*ir.Node {
	out := make([]*ir.Node, 0, len(body))
	for i, c := range body {
		out = append(out, b.node(c, pos+"."+strconv.Itoa(i)))
	}
	return out
}

func (b *builder) slot(s ast.Slot, id, pos string) *ir.Node {
	kind := ir.KindSlot
	if s.Inline {
		kind = ir.KindInlineSlot
	}

	props := ir.Object{}
	refresh := refreshNever
	if s.Content != nil {
		text, r := b.content(s.Content, id)
		props["content"] = ir.String(text)
		refresh = r
	}
	if s.Asset != nil {
		asset, r := b.asset(*s.Asset, id)
		props["asset"] = asset
		if r.Kind == ir.RefreshDocstep {
			refresh = r
		}
	}

	refresh, err := ir.ParseRefreshPolicy(s.Refresh, refresh)
	if err != nil {
		props["refreshError"] = ir.String(err.Error())
		refresh = refreshDocstep
	}

	fit, err := ir.ParseFitPolicy(s.Fit)
	if err != nil {
		props["fitError"] = ir.String(err.Error())
		fit = ir.FitClip
	}
	width, werr := ir.ParseLength(s.Reserve.Width)
	height, herr := ir.ParseLength(s.Reserve.Height)
	if werr != nil || herr != nil {
		props["reserveError"] = ir.String(fmt.Sprintf("invalid reserve %q x %q", s.Reserve.Width, s.Reserve.Height))
	}

	return &ir.Node{
		ID:       id,
		Kind:     kind,
		Props:    props,
		Refresh:  refresh,
		Children: b.children(s.Children, pos),
		Slot: &ir.SlotSpec{
			Reserve: ir.Reserve{Width: width, Height: height},
			Fit:     fit,
		},
	}
}

// content resolves node content to text and the refresh policy it implies.
func (b *builder) content(c ast.Content, id string) (string, ir.RefreshPolicy) {
	switch x := c.(type) {
	case nil:
		return "", refreshNever
	case ast.Literal:
		return string(x), refreshNever
	case ast.ParamContent:
		return b.snap.Param(x.Name).String(), refreshDocstep
	case ast.DocstepContent:
		return strconv.FormatInt(b.opts.Docstep, 10), refreshDocstep
	case ast.TimeContent:
		return strconv.FormatFloat(b.opts.Time, 'f', x.Precision, 64), ir.RefreshPolicy{Kind: ir.RefreshInterval, Seconds: 1}
	case ast.ChooseContent:
		k, refresh := b.period(x.Per, x.Period)
		i := int(kernel.Unit(b.opts.Seed, "choose:"+id, k) * float64(len(x.Options)))
		return x.Options[i], refresh
	case ast.CycleContent:
		k, refresh := b.period(x.Per, x.Period)
		return x.Options[int(k%int64(len(x.Options)))], refresh
	}
	return "", refreshNever
}

// period returns the index of the current period for choose and cycle.
func (b *builder) period(per ast.Per, length float64) (int64, ir.RefreshPolicy) {
	if per == ast.PerSeconds {
		return int64(math.Floor(b.opts.Time / length)), ir.RefreshPolicy{Kind: ir.RefreshInterval, Seconds: length}
	}
	return int64(math.Floor(float64(b.opts.Docstep) / length)), refreshDocstep
}

func (b *builder) gridProps(name string) ir.Object {
	g, ok := b.snap.Grid(name)
	if !ok {
		return ir.Object{"grid": ir.String(name), "unresolved": ir.Bool(true), "cells": ir.Array{}}
	}

	cells := make(ir.Array, len(g.Cells))
	for i, c := range g.Cells {
		cell := c.ToValue()
		if c.MediaID != nil {
			if media, ok := b.findAsset(*c.MediaID); ok {
				cell["media"] = media
			}
		}
		cells[i] = cell
	}
	return ir.Object{
		"grid":     ir.String(g.Name),
		"topology": ir.String(g.Topology),
		"rows":     ir.Int(g.Rows),
		"cols":     ir.Int(g.Cols),
		"cells":    cells,
	}
}

// asset resolves a reference to a descriptor. Unresolvable references
// yield an object carrying the reason instead of failing the render.
func (b *builder) asset(ref ast.AssetRef, id string) (ir.Value, ir.RefreshPolicy) {
	if ref.Material != "" {
		return ir.Object{"kind": ir.String("material"), "material": ir.String(ref.Material)}, refreshNever
	}

	bank, ok := b.doc.FindBank(ref.Bank)
	if !ok {
		return unresolved(fmt.Sprintf("unknown bank %q", ref.Bank)), refreshNever
	}
	candidates := candidates(bank, ref.Tags)
	if len(candidates) == 0 {
		return unresolved(fmt.Sprintf("bank %q has no matching assets", ref.Bank)), refreshNever
	}

	switch ref.Pick {
	case "", "random":
		i := int(kernel.Unit(b.opts.Seed, "asset:"+id, b.opts.Docstep) * float64(len(candidates)))
		return b.descriptor(bank, candidates[i]), refreshDocstep
	case "cycle":
		i := int(b.opts.Docstep % int64(len(candidates)))
		return b.descriptor(bank, candidates[i]), refreshDocstep
	}
	for _, e := range candidates {
		if e.Name == ref.Pick {
			return b.descriptor(bank, e), refreshNever
		}
	}
	return unresolved(fmt.Sprintf("bank %q has no asset named %q", ref.Bank, ref.Pick)), refreshNever
}

func unresolved(reason string) ir.Object {
	return ir.Object{"unresolved": ir.String(reason)}
}

// candidates returns bank entries carrying every tag in want, in
// declaration order. Bank tags count as tags of every entry.
func candidates(bank *ast.Bank, want []string) []ast.Asset {
	var out []ast.Asset
	for _, e := range bank.Entries {
		ok := true
		for _, t := range want {
			if !slices.Contains(e.Tags, t) && !slices.Contains(bank.Tags, t) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func (b *builder) findAsset(name string) (ir.Object, bool) {
	for i := range b.doc.Assets.Banks {
		bank := &b.doc.Assets.Banks[i]
		for _, e := range bank.Entries {
			if e.Name == name {
				return b.descriptor(bank, e), true
			}
		}
	}
	return nil, false
}

// descriptor describes a concrete asset. The path is cleaned and joined
// under AssetCwd and the bank root, with forward slashes on every OS.
func (b *builder) descriptor(bank *ast.Bank, e ast.Asset) ir.Object {
	kind := e.Kind
	if kind == "" {
		kind = "image"
	}
	path := filepath.ToSlash(filepath.Clean(filepath.Join(b.opts.AssetCwd, bank.Root, e.Path)))
	return ir.Object{
		"bank": ir.String(bank.Name),
		"name": ir.String(e.Name),
		"kind": ir.String(kind),
		"path": ir.String(path),
	}
}
