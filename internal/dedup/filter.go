// Package dedup provides a probabilistic duplicate detector for Miller
// indices. Merged data is expected to carry one observation per unique
// triple; the filter lets conversion flag likely violations without
// keeping every index in memory.
package dedup

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"

	"github.com/reflbase/reflbase/pkg/types"
)

// HKLFilter is a bloom filter keyed on packed Miller-index triples.
// A hit may be a false positive at the configured rate; a miss is exact.
// Conversion is single-threaded, so the filter is not synchronized.
type HKLFilter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
}

// NewHKLFilter sizes a filter for the expected number of distinct
// reflections and the target false-positive rate.
//
// m = -n * ln(p) / ln(2)^2, k = (m/n) * ln(2)
func NewHKLFilter(expected int, targetFPR float64) *HKLFilter {
	if expected <= 0 {
		expected = 1024
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.001
	}

	m := -float64(expected) * math.Log(targetFPR) / (math.Ln2 * math.Ln2)
	k := m / float64(expected) * math.Ln2

	numBits := uint64(math.Ceil(m))
	if numBits < 64 {
		numBits = 64
	}
	numHashes := uint64(math.Ceil(k))
	if numHashes < 1 {
		numHashes = 1
	}

	numWords := (numBits + 63) / 64
	return &HKLFilter{
		bits:      make([]uint64, numWords),
		numBits:   numWords * 64,
		numHashes: numHashes,
	}
}

// TestAndAdd records the triple and reports whether it was possibly seen
// before.
func (f *HKLFilter) TestAndAdd(hkl types.HKL) bool {
	h1, h2 := hashHKL(hkl)
	seen := true
	for i := uint64(0); i < f.numHashes; i++ {
		// Double hashing: h(i) = h1 + i*h2
		pos := (h1 + i*h2) % f.numBits
		word, bit := pos/64, pos%64
		if f.bits[word]&(1<<bit) == 0 {
			seen = false
			f.bits[word] |= 1 << bit
		}
	}
	f.count++
	return seen
}

// Count returns the number of triples added.
func (f *HKLFilter) Count() uint64 {
	return f.count
}

// hashHKL packs the triple into 12 little-endian bytes and computes its
// murmur3 128-bit hash.
func hashHKL(hkl types.HKL) (uint64, uint64) {
	var key [12]byte
	for i, v := range hkl {
		binary.LittleEndian.PutUint32(key[4*i:], uint32(int32(v)))
	}
	return murmur3.Sum128(key[:])
}
