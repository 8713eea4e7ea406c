package kernel

import (
	"crypto/sha256"
	"encoding/binary"
)

// Unit returns a deterministic number in [0, 1) derived from the seed, a
// label and a list of integers. Identical inputs give identical outputs on
// every platform.
func Unit(seed int64, label string, nums ...int64) float64 {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(label))
	h.Write([]byte{0x00})
	for _, n := range nums {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	// Top 53 bits fill a float64 mantissa exactly.
	return float64(binary.BigEndian.Uint64(sum[:8])>>11) / (1 << 53)
}

// ruleRandom is random() inside a rule: a function of the seed, docstep,
// rule index, cell index, and how many draws the evaluation already made.
func ruleRandom(seed, docstep int64, rule, cell, draw int) float64 {
	return Unit(seed, "rule", docstep, int64(rule), int64(cell), int64(draw))
}
