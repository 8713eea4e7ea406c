package patch

import (
	"fmt"
	"sort"

	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/markup"
)

// PatchSet is the unit a host sends to a viewer: the new inner markup of
// every slot that changed.
type PatchSet struct {
	Docstep     int64             `json:"docstep"`
	Time        float64           `json:"time"`
	SlotPatches map[string]string `json:"slotPatches"`
}

// Empty reports whether the set carries no patches.
func (p PatchSet) Empty() bool { return len(p.SlotPatches) == 0 }

// IDs returns the patched slot ids in sorted order.
func (p PatchSet) IDs() []string {
	ids := make([]string, 0, len(p.SlotPatches))
	for id := range p.SlotPatches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CollectSlotHashes hashes every slot and inline slot in doc, keyed by
// node id. Each hash covers the slot's full subtree, and nested slots are
// hashed on their own as well.
func CollectSlotHashes(doc *ir.Document) (map[string]string, error) {
	hashes := make(map[string]string)
	var err error
	doc.Walk(func(n *ir.Node) bool {
		if err != nil {
			return false
		}
		if !n.Kind.IsSlot() {
			return true
		}
		h, herr := ir.SlotHash(n)
		if herr != nil {
			err = fmt.Errorf("slot %q: %w", n.ID, herr)
			return false
		}
		hashes[n.ID] = h
		return true
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

// DiffSlotIDs returns the sorted ids whose hash in next is new or
// different from prev. Ids present only in prev are not reported.
func DiffSlotIDs(prev, next map[string]string) []string {
	changed := []string{}
	for id, h := range next {
		if old, ok := prev[id]; !ok || old != h {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

// BuildPatchSet renders the inner markup of the given slots. Ids that do
// not name a slot in doc are an error.
func BuildPatchSet(doc *ir.Document, ids []string) (PatchSet, error) {
	ps := PatchSet{Docstep: doc.Docstep, Time: doc.Time, SlotPatches: make(map[string]string, len(ids))}
	for _, id := range ids {
		n := doc.Find(id)
		if n == nil {
			return PatchSet{}, fmt.Errorf("patch: no node %q", id)
		}
		inner, err := markup.SlotInner(n)
		if err != nil {
			return PatchSet{}, fmt.Errorf("patch: %w", err)
		}
		ps.SlotPatches[id] = inner
	}
	return ps, nil
}
