package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainFormat(t *testing.T) {
	expected := sha256.Sum256(append([]byte("flux/slot/v1\x00"), []byte("abc")...))
	assert.Equal(t, hex.EncodeToString(expected[:]), HashWithDomain(DomainSlot, []byte("abc")))
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, HashWithDomain(DomainSlot, data), HashWithDomain(DomainSnapshot, data))
}

func TestSlotHashDeterminism(t *testing.T) {
	h1, err := SlotHash(sampleDocument().Find("clock"))
	require.NoError(t, err)
	h2, err := SlotHash(sampleDocument().Find("clock"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestSlotHashChangesWithSubtree(t *testing.T) {
	base := MustSlotHash(sampleDocument().Find("clock"))

	content := sampleDocument().Find("clock")
	content.Props["content"] = String("4")

	fit := sampleDocument().Find("clock")
	fit.Slot.Fit = FitShrink

	refresh := sampleDocument().Find("clock")
	refresh.Refresh = RefreshPolicy{Kind: RefreshInterval, Seconds: 1}

	child := sampleDocument().Find("clock")
	child.Children = []*Node{{ID: "x", Kind: KindText}}

	assert.NotEqual(t, base, MustSlotHash(content), "content change")
	assert.NotEqual(t, base, MustSlotHash(fit), "fit change")
	assert.NotEqual(t, base, MustSlotHash(refresh), "refresh change")
	assert.NotEqual(t, base, MustSlotHash(child), "child change")
}

func TestSlotHashRejectsNonFinite(t *testing.T) {
	n := &Node{ID: "a", Kind: KindSlot, Props: Object{"size": Float(math.Inf(1))}}
	_, err := SlotHash(n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainSlot)
}

func TestDocumentHashChangesWithDocstep(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.Docstep++

	ha, err := DocumentHash(a)
	require.NoError(t, err)
	hb, err := DocumentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestSourceHash(t *testing.T) {
	data := []byte(`{"meta":{}}`)
	assert.Equal(t, HashWithDomain(DomainSource, data), SourceHash(data))
	assert.NotEqual(t, SourceHash(data), HashWithDomain(DomainDocument, data))
}
