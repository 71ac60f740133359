package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/anthanhphan/go-set-reconciliation/pkg/digest"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/blake3"
)

var ErrInvalidBucketCount = errors.New("numLeaves must be a power of 2 and >= 2")

// Tree implements a fixed-size heap-based Merkle Tree over item buckets.
// Every item maps to one leaf bucket; a leaf holds the content digest of the
// items in that bucket. The tree is stored as a flattened array where:
// - Index 0 is the root.
// - Left Child of i: 2i + 1
// - Right Child of i: 2i + 2
// - Parent of i: (i-1) / 2
type Tree struct {
	mu         sync.RWMutex
	nodes      []digest.Digest // zero digest marks an empty subtree
	numLeaves  int
	treeSize   int
	leafOffset int
}

// NewTree creates an empty tree with the specified number of leaves.
func NewTree(numLeaves int) (*Tree, error) {
	if numLeaves < 2 || (numLeaves&(numLeaves-1)) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBucketCount, numLeaves)
	}

	treeSize := 2*numLeaves - 1
	return &Tree{
		nodes:      make([]digest.Digest, treeSize),
		numLeaves:  numLeaves,
		treeSize:   treeSize,
		leafOffset: numLeaves - 1,
	}, nil
}

// Build creates a tree whose leaves digest items partitioned by Bucket.
// items must be in ascending order; each bucket keeps that order.
func Build(items []int32, numLeaves int) (*Tree, error) {
	t, err := NewTree(numLeaves)
	if err != nil {
		return nil, err
	}

	buckets := Partition(items, numLeaves)
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		t.nodes[t.leafOffset+i] = digest.FromSorted(bucket)
	}
	for idx := t.leafOffset - 1; idx >= 0; idx-- {
		t.nodes[idx] = hashPair(t.nodes[2*idx+1], t.nodes[2*idx+2])
	}
	return t, nil
}

// Bucket returns the leaf bucket an item belongs to.
func Bucket(item int32, numLeaves int) int {
	var buf [digest.ItemWidth]byte
	binary.BigEndian.PutUint32(buf[:], uint32(item))
	return int(murmur3.Sum32(buf[:]) & uint32(numLeaves-1))
}

// Partition splits ascending items into per-bucket ascending slices.
func Partition(items []int32, numLeaves int) [][]int32 {
	buckets := make([][]int32, numLeaves)
	for _, item := range items {
		b := Bucket(item, numLeaves)
		buckets[b] = append(buckets[b], item)
	}
	return buckets
}

// UpdateBucket updates the hash of a specific leaf (bucket) and propagates it to the root.
func (t *Tree) UpdateBucket(bucketID int, leaf digest.Digest) error {
	if bucketID < 0 || bucketID >= t.numLeaves {
		return fmt.Errorf("bucketID out of range: %d", bucketID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.leafOffset + bucketID
	t.nodes[idx] = leaf

	for idx > 0 {
		parentIdx := (idx - 1) / 2
		t.nodes[parentIdx] = hashPair(t.nodes[2*parentIdx+1], t.nodes[2*parentIdx+2])
		idx = parentIdx
	}

	return nil
}

// Root returns the current root hash of the tree.
func (t *Tree) Root() digest.Digest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[0]
}

// Node returns the hash at a specific index.
func (t *Tree) Node(idx int) (digest.Digest, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx < 0 || idx >= t.treeSize {
		return digest.Digest{}, fmt.Errorf("index out of range: %d", idx)
	}
	return t.nodes[idx], nil
}

// NumLeaves returns the bucket count of the tree.
func (t *Tree) NumLeaves() int {
	return t.numLeaves
}

// DiffBuckets returns, in ascending order, the buckets whose leaves differ from other.
// Matching subtrees are skipped without visiting their leaves.
func (t *Tree) DiffBuckets(other *Tree) ([]int, error) {
	if other.numLeaves != t.numLeaves {
		return nil, fmt.Errorf("bucket count mismatch: %d vs %d", t.numLeaves, other.numLeaves)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if other != t {
		other.mu.RLock()
		defer other.mu.RUnlock()
	}

	var out []int
	t.diffNode(other, 0, &out)
	return out, nil
}

func (t *Tree) diffNode(other *Tree, idx int, out *[]int) {
	if t.nodes[idx] == other.nodes[idx] {
		return
	}
	if idx >= t.leafOffset {
		*out = append(*out, idx-t.leafOffset)
		return
	}
	t.diffNode(other, 2*idx+1, out)
	t.diffNode(other, 2*idx+2, out)
}

// ExportState returns the entire nodes array for transmission.
func (t *Tree) ExportState() []digest.Digest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state := make([]digest.Digest, len(t.nodes))
	copy(state, t.nodes)
	return state
}

// ImportState restores the tree from an exported nodes array.
func (t *Tree) ImportState(nodes []digest.Digest) error {
	if len(nodes) != t.treeSize {
		return fmt.Errorf("state size mismatch: expected %d, got %d", t.treeSize, len(nodes))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	copy(t.nodes, nodes)
	return nil
}

// hashPair hashes two child hashes together. Two empty children give an empty parent.
func hashPair(left, right digest.Digest) digest.Digest {
	if left.IsZero() && right.IsZero() {
		return digest.Digest{}
	}

	h := blake3.New()
	_, _ = h.Write(left[:])
	_, _ = h.Write(right[:])

	var d digest.Digest
	copy(d[:], h.Sum(nil))
	return d
}
