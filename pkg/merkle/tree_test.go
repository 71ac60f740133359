package merkle

import (
	"testing"

	"github.com/anthanhphan/go-set-reconciliation/pkg/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_UpdateBucket(t *testing.T) {
	tree, err := NewTree(4)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.NumLeaves())
	assert.Equal(t, 7, len(tree.nodes)) // 2*4 - 1

	// Initially all empty
	assert.True(t, tree.Root().IsZero())

	h0 := digest.FromSorted([]int32{1})
	require.NoError(t, tree.UpdateBucket(0, h0))
	root1 := tree.Root()
	assert.False(t, root1.IsZero())

	h1 := digest.FromSorted([]int32{2})
	require.NoError(t, tree.UpdateBucket(1, h1))
	root2 := tree.Root()
	assert.NotEqual(t, root1, root2)

	// Right half of the tree is still empty.
	right, err := tree.Node(2)
	require.NoError(t, err)
	assert.True(t, right.IsZero())

	leaf, err := tree.Node(3)
	require.NoError(t, err)
	assert.Equal(t, h0, leaf)

	assert.Error(t, tree.UpdateBucket(4, h0))
	_, err = tree.Node(7)
	assert.Error(t, err)
}

func TestTree_PowerOfTwo(t *testing.T) {
	_, err := NewTree(3)
	assert.ErrorIs(t, err, ErrInvalidBucketCount)

	_, err = NewTree(1)
	assert.ErrorIs(t, err, ErrInvalidBucketCount)

	_, err = NewTree(1024)
	assert.NoError(t, err)
}

func TestBuild_MatchesIncrementalUpdates(t *testing.T) {
	items := []int32{-9, 1, 2, 3, 10, 55, 1000}
	const leaves = 8

	built, err := Build(items, leaves)
	require.NoError(t, err)

	manual, err := NewTree(leaves)
	require.NoError(t, err)
	for b, bucket := range Partition(items, leaves) {
		if len(bucket) > 0 {
			require.NoError(t, manual.UpdateBucket(b, digest.FromSorted(bucket)))
		}
	}

	assert.Equal(t, manual.Root(), built.Root())
	assert.Equal(t, manual.ExportState(), built.ExportState())
}

func TestPartition_KeepsOrderAndCoversItems(t *testing.T) {
	items := []int32{-5, -1, 0, 4, 8, 16, 23, 42}
	buckets := Partition(items, 4)

	total := 0
	for b, bucket := range buckets {
		for i, item := range bucket {
			assert.Equal(t, b, Bucket(item, 4))
			if i > 0 {
				assert.Less(t, bucket[i-1], item)
			}
		}
		total += len(bucket)
	}
	assert.Equal(t, len(items), total)
}

func TestDiffBuckets(t *testing.T) {
	const leaves = 16
	master := []int32{1, 2, 3, 4, 5, 6, 7, 8}
	replica := []int32{1, 2, 3, 4, 5, 6, 7, 99}

	mt, err := Build(master, leaves)
	require.NoError(t, err)
	rt, err := Build(replica, leaves)
	require.NoError(t, err)

	diff, err := rt.DiffBuckets(mt)
	require.NoError(t, err)

	want := map[int]bool{Bucket(8, leaves): true, Bucket(99, leaves): true}
	assert.Len(t, diff, len(want))
	for _, b := range diff {
		assert.True(t, want[b], "unexpected bucket %d", b)
	}

	same, err := mt.DiffBuckets(mt)
	require.NoError(t, err)
	assert.Empty(t, same)

	other, err := NewTree(8)
	require.NoError(t, err)
	_, err = mt.DiffBuckets(other)
	assert.Error(t, err)
}

func TestTree_Persistence(t *testing.T) {
	tree, err := Build([]int32{1, 2, 3}, 4)
	require.NoError(t, err)

	tree2, err := NewTree(4)
	require.NoError(t, err)
	require.NoError(t, tree2.ImportState(tree.ExportState()))
	assert.Equal(t, tree.Root(), tree2.Root())

	assert.Error(t, tree2.ImportState(make([]digest.Digest, 3)))
}
