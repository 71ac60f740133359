package digest

import (
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func TestCompute_InsertionOrderIndependent(t *testing.T) {
	a := itemset.Of("a", 1, 2, 3, 40, -7)
	b := itemset.Of("b", -7, 40, 3, 2, 1)

	assert.True(t, Equal(Compute(a), Compute(b)))
}

func TestCompute_RandomPermutations(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	items := make([]int32, 200)
	for i := range items {
		items[i] = rng.Int32() - 1<<30
	}

	want := Compute(itemset.Of("base", items...))
	for i := 0; i < 20; i++ {
		shuffled := append([]int32(nil), items...)
		rng.Shuffle(len(shuffled), func(x, y int) { shuffled[x], shuffled[y] = shuffled[y], shuffled[x] })
		assert.Equal(t, want, Compute(itemset.Of("perm", shuffled...)))
	}
}

func TestCompute_Sensitivity(t *testing.T) {
	tests := []struct {
		name string
		a, b []int32
	}{
		{name: "DifferentElement", a: []int32{1, 2, 3}, b: []int32{1, 2, 4}},
		{name: "StrictSubset", a: []int32{1, 2, 3}, b: []int32{1, 2}},
		{name: "EmptyVsNonEmpty", a: nil, b: []int32{0}},
		{name: "SignMatters", a: []int32{1}, b: []int32{-1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			da := Compute(itemset.Of("a", tt.a...))
			db := Compute(itemset.Of("b", tt.b...))
			assert.False(t, Equal(da, db))
		})
	}
}

func TestFromSorted_BigEndianEncoding(t *testing.T) {
	items := []int32{-2, 1, 258}

	var raw []byte
	for _, item := range items {
		raw = binary.BigEndian.AppendUint32(raw, uint32(item))
	}
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xfe, 0, 0, 0, 1, 0, 0, 1, 2}, raw)

	assert.Equal(t, Digest(blake3.Sum256(raw)), FromSorted(items))
}

func TestDigest_EmptySet(t *testing.T) {
	d := Compute(itemset.New("empty"))
	assert.Equal(t, Digest(blake3.Sum256(nil)), d)
	assert.False(t, d.IsZero())
	assert.True(t, Digest{}.IsZero())
	assert.Len(t, d.String(), 2*Size)
}

func TestDigest_TextRoundTrip(t *testing.T) {
	d := Compute(itemset.Of("a", 1, 2, 3))

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, d.String(), string(text))

	var back Digest
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, d, back)

	assert.Error(t, back.UnmarshalText([]byte("abcd")))
}
