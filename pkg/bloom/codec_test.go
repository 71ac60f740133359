package bloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_PreservesMembership(t *testing.T) {
	items := []int32{-40, 3, 17, 99, 1 << 20}
	f, err := BuildSorted(items, 50, 0.001)
	require.NoError(t, err)

	blob, err := f.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte("BLM1"), blob[:4])

	decoded, err := Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, f.Bits(), decoded.Bits())
	assert.Equal(t, f.Probes(), decoded.Probes())
	assert.Equal(t, f.Count(), decoded.Count())
	assert.Equal(t, f.Capacity(), decoded.Capacity())
	assert.Equal(t, f.TargetFalsePositiveRate(), decoded.TargetFalsePositiveRate())

	for i := int32(-100); i < 200; i++ {
		assert.Equal(t, f.Contains(i), decoded.Contains(i), "item %d", i)
	}
	for _, item := range items {
		assert.True(t, decoded.Contains(item))
	}
}

func TestCodec_RejectsMalformed(t *testing.T) {
	f, err := BuildSorted([]int32{1, 2, 3}, 10, 0.01)
	require.NoError(t, err)
	blob, err := f.MarshalBinary()
	require.NoError(t, err)

	corrupt := func(mutate func(b []byte) []byte) []byte {
		c := append([]byte(nil), blob...)
		return mutate(c)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Empty", data: nil},
		{name: "TruncatedHeader", data: blob[:headerSize-1]},
		{name: "BadMagic", data: corrupt(func(b []byte) []byte { b[0] = 'X'; return b })},
		{name: "ZeroProbes", data: corrupt(func(b []byte) []byte { copy(b[4:8], []byte{0, 0, 0, 0}); return b })},
		{name: "BitLengthMismatch", data: corrupt(func(b []byte) []byte { b[15]++; return b })},
		{name: "RateOutOfRange", data: corrupt(func(b []byte) []byte { copy(b[32:40], []byte{0x3f, 0xf0, 0, 0, 0, 0, 0, 0}); return b })},
		{name: "MissingBitset", data: blob[:headerSize]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrInvalidEncoding)
		})
	}
}
