package bloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
)

var ErrInvalidEncoding = errors.New("invalid bloom filter encoding")

var magic = [4]byte{'B', 'L', 'M', '1'}

// headerSize: magic(4) k(4) m(8) count(8) capacity(8) fpRate(8)
const headerSize = 4 + 4 + 8 + 8 + 8 + 8

// MarshalBinary encodes the filter as an opaque blob for transmission to replicas.
// All header fields are big-endian.
func (f *Filter) MarshalBinary() ([]byte, error) {
	bits, err := f.bits.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode bitset: %w", err)
	}

	buf := make([]byte, headerSize, headerSize+len(bits))
	copy(buf[0:4], magic[:])
	binary.BigEndian.PutUint32(buf[4:8], f.k)
	binary.BigEndian.PutUint64(buf[8:16], f.m)
	binary.BigEndian.PutUint64(buf[16:24], f.count)
	binary.BigEndian.PutUint64(buf[24:32], f.capacity)
	binary.BigEndian.PutUint64(buf[32:40], math.Float64bits(f.fpRate))

	return append(buf, bits...), nil
}

// UnmarshalBinary restores a filter produced by MarshalBinary.
func (f *Filter) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("%w: %d bytes is shorter than header", ErrInvalidEncoding, len(data))
	}
	if [4]byte(data[0:4]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidEncoding, data[0:4])
	}

	k := binary.BigEndian.Uint32(data[4:8])
	m := binary.BigEndian.Uint64(data[8:16])
	count := binary.BigEndian.Uint64(data[16:24])
	capacity := binary.BigEndian.Uint64(data[24:32])
	fpRate := math.Float64frombits(binary.BigEndian.Uint64(data[32:40]))

	if k == 0 || m == 0 || capacity == 0 {
		return fmt.Errorf("%w: zero k, m or capacity", ErrInvalidEncoding)
	}
	if !(fpRate > 0 && fpRate < 1) {
		return fmt.Errorf("%w: false positive rate %v", ErrInvalidEncoding, fpRate)
	}

	bits := &bitset.BitSet{}
	if err := bits.UnmarshalBinary(data[headerSize:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if uint64(bits.Len()) != m {
		return fmt.Errorf("%w: bitset length %d, header says %d", ErrInvalidEncoding, bits.Len(), m)
	}

	f.bits = bits
	f.k = k
	f.m = m
	f.count = count
	f.capacity = capacity
	f.fpRate = fpRate
	return nil
}

// Decode is a convenience wrapper around UnmarshalBinary.
func Decode(data []byte) (*Filter, error) {
	f := &Filter{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}
