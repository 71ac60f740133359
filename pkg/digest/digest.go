// Package digest computes the content fingerprint nodes compare before reconciling.
//
// The digest is BLAKE3-256 over the set's items in ascending order, each
// encoded as 4-byte big-endian two's complement. The encoding is fixed by the
// protocol, so nodes on different architectures agree on the same digest.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// ItemWidth is the encoded width of a single item.
const ItemWidth = 4

// Digest is a fixed-size fingerprint of a set's sorted contents.
type Digest [Size]byte

// Compute returns the digest of the set's current contents.
// The result goes stale as soon as the set is mutated.
func Compute(set *itemset.ItemSet) Digest {
	return FromSorted(set.Sorted())
}

// FromSorted digests items that are already in ascending order.
func FromSorted(items []int32) Digest {
	h := blake3.New()
	var buf [ItemWidth]byte
	for _, item := range items {
		binary.BigEndian.PutUint32(buf[:], uint32(item))
		_, _ = h.Write(buf[:])
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Equal reports byte-wise equality.
func Equal(a, b Digest) bool {
	return a == b
}

// IsZero reports whether d is the zero value, i.e. it was never computed.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns the hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex.
func (d Digest) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(Size))
	hex.Encode(out, d[:])
	return out, nil
}

// UnmarshalText decodes a hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != Size {
		return fmt.Errorf("digest must be %d hex characters, got %d", 2*Size, len(text))
	}
	_, err := hex.Decode(d[:], text)
	return err
}
