// Package bloom implements the membership filter a master shares with its replicas.
//
// A Filter never yields false negatives. False positives occur at roughly the
// configured rate as long as no more items are inserted than the capacity hint
// it was sized for; past that point the rate degrades gracefully.
package bloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/bits-and-blooms/bitset"
	"github.com/spaolacci/murmur3"
)

var ErrInvalidFalsePositiveRate = errors.New("false positive rate must be in (0, 1)")

// Filter is a Bloom filter over int32 items.
// It is built once, then only queried; Add and Contains must not run concurrently.
type Filter struct {
	bits     *bitset.BitSet
	m        uint64 // number of bits
	k        uint32 // number of probes per item
	count    uint64 // items inserted
	capacity uint64
	fpRate   float64
}

// New sizes an empty filter for capacityHint items at the target false positive rate.
// A zero capacity hint is treated as one item.
func New(capacityHint uint, fpRate float64) (*Filter, error) {
	if !(fpRate > 0 && fpRate < 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFalsePositiveRate, fpRate)
	}

	n := uint64(capacityHint)
	if n == 0 {
		n = 1
	}
	m, k := optimalParams(n, fpRate)

	return &Filter{
		bits:     bitset.New(uint(m)),
		m:        m,
		k:        k,
		capacity: n,
		fpRate:   fpRate,
	}, nil
}

// Build creates a filter holding every item of set.
func Build(set *itemset.ItemSet, capacityHint uint, fpRate float64) (*Filter, error) {
	return BuildSorted(set.Sorted(), capacityHint, fpRate)
}

// BuildSorted creates a filter holding items. Order does not matter.
func BuildSorted(items []int32, capacityHint uint, fpRate float64) (*Filter, error) {
	f, err := New(capacityHint, fpRate)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		f.Add(item)
	}
	if f.Overloaded() {
		logger.Warnw("Bloom filter holds more items than its capacity hint, false positive rate degraded",
			"items", f.count,
			"capacity_hint", f.capacity,
			"target_fp_rate", f.fpRate,
			"estimated_fp_rate", f.EstimatedFalsePositiveRate())
	}
	return f, nil
}

// optimalParams returns the bit count m and probe count k for n items at rate p:
// m = ceil(-n ln p / (ln 2)^2), k = round(m/n ln 2).
func optimalParams(n uint64, p float64) (uint64, uint32) {
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	if m == 0 {
		m = 1
	}
	k := uint32(math.Round(float64(m) / float64(n) * math.Ln2))
	if k == 0 {
		k = 1
	}
	return m, k
}

// Add inserts item.
func (f *Filter) Add(item int32) {
	h1, h2 := hashItem(item)
	for i := uint32(0); i < f.k; i++ {
		f.bits.Set(uint(f.probe(h1, h2, i)))
	}
	f.count++
}

// Contains reports whether item may have been inserted.
// A false answer is exact; a true answer may be a false positive.
func (f *Filter) Contains(item int32) bool {
	if f.count == 0 {
		return false
	}
	h1, h2 := hashItem(item)
	for i := uint32(0); i < f.k; i++ {
		if !f.bits.Test(uint(f.probe(h1, h2, i))) {
			return false
		}
	}
	return true
}

// probe returns the i-th bit index using Kirsch-Mitzenmacher double hashing.
func (f *Filter) probe(h1, h2 uint64, i uint32) uint64 {
	return (h1 + uint64(i)*h2) % f.m
}

func hashItem(item int32) (uint64, uint64) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(item))
	return murmur3.Sum128(buf[:])
}

// Count returns the number of items inserted.
func (f *Filter) Count() uint64 {
	return f.count
}

// Capacity returns the item count the filter was sized for.
func (f *Filter) Capacity() uint64 {
	return f.capacity
}

// Overloaded reports whether more items were inserted than the capacity hint.
func (f *Filter) Overloaded() bool {
	return f.count > f.capacity
}

// Bits returns the size of the bit array.
func (f *Filter) Bits() uint64 {
	return f.m
}

// Probes returns the number of hash probes per item.
func (f *Filter) Probes() uint32 {
	return f.k
}

// TargetFalsePositiveRate returns the rate the filter was sized for.
func (f *Filter) TargetFalsePositiveRate() float64 {
	return f.fpRate
}

// EstimatedFalsePositiveRate returns (1 - e^(-kn/m))^k for the current item count.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	k := float64(f.k)
	return math.Pow(1-math.Exp(-k*float64(f.count)/float64(f.m)), k)
}
