package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSlot     = "flux/slot/v1"
	DomainSnapshot = "flux/snapshot/v1"
	DomainDocument = "flux/document/v1"
	DomainSource   = "flux/source/v1"
)

// HashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashValue canonically marshals v and hashes it under domain.
func HashValue(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return HashWithDomain(domain, canonical), nil
}

// SlotHash hashes the full subtree rooted at n.
// Any change to a prop, child, refresh policy or slot contract changes it.
func SlotHash(n *Node) (string, error) {
	return HashValue(DomainSlot, n.ToValue())
}

// DocumentHash hashes an entire render document.
func DocumentHash(d *Document) (string, error) {
	return HashValue(DomainDocument, d.ToValue())
}

// SourceHash hashes the raw bytes of a source document file.
func SourceHash(data []byte) string {
	return HashWithDomain(DomainSource, data)
}

// MustSlotHash is like SlotHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSlotHash(n *Node) string {
	h, err := SlotHash(n)
	if err != nil {
		panic(err)
	}
	return h
}
