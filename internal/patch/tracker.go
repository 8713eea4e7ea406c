package patch

import (
	"sync"

	"github.com/cbassuarez/flux/internal/ir"
)

// Tracker remembers the slot hashes last sent to a viewer so each render
// only ships the slots that changed.
type Tracker struct {
	mu   sync.Mutex
	last map[string]string
}

// NewTracker returns a tracker that has sent nothing, so the first Next
// patches every slot.
func NewTracker() *Tracker {
	return &Tracker{last: map[string]string{}}
}

// Next diffs doc against the last sent hashes, builds the patch set and
// records doc's hashes as sent. On error the stored hashes are unchanged.
func (t *Tracker) Next(doc *ir.Document) (PatchSet, error) {
	hashes, err := CollectSlotHashes(doc)
	if err != nil {
		return PatchSet{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ps, err := BuildPatchSet(doc, DiffSlotIDs(t.last, hashes))
	if err != nil {
		return PatchSet{}, err
	}
	t.last = hashes
	return ps, nil
}

// Prime records doc's hashes without producing patches, for a viewer that
// just loaded the full page.
func (t *Tracker) Prime(doc *ir.Document) error {
	hashes, err := CollectSlotHashes(doc)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.last = hashes
	t.mu.Unlock()
	return nil
}

// Reset forgets every sent hash.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.last = map[string]string{}
	t.mu.Unlock()
}
