package service

import (
	"fmt"
	"slices"

	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/domain"
	"github.com/anthanhphan/go-set-reconciliation/pkg/bloom"
	"github.com/anthanhphan/go-set-reconciliation/pkg/digest"
	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
	"github.com/anthanhphan/go-set-reconciliation/pkg/merkle"
)

// SnapshotOptions tunes the artifacts a master publishes for a round.
type SnapshotOptions struct {
	// CapacityHint sizes the filter. Zero sizes it from the master's cardinality.
	CapacityHint uint
	// FalsePositiveRate is the filter's target rate, in (0, 1).
	FalsePositiveRate float64
	// Buckets is the leaf count of the bucket tree; zero disables it.
	Buckets int
}

// Snapshot holds the read-only artifacts derived from the master's set for one round.
type Snapshot struct {
	MasterID string
	Items    int
	Digest   digest.Digest
	Filter   *bloom.Filter
	// Buckets is nil when the bucket tree is disabled.
	Buckets *merkle.Tree
}

// Publication is the wire form of a Snapshot handed to every replica.
type Publication struct {
	MasterID   string
	Digest     digest.Digest
	Filter     []byte
	NumBuckets int
	Buckets    []digest.Digest
}

// BuildSnapshot derives the digest, filter and bucket tree from a single sorted
// view of master. Nothing is returned until every artifact is built, so a
// replica never sees a digest and filter from different states of the set.
func BuildSnapshot(master *itemset.ItemSet, opts SnapshotOptions) (*Snapshot, error) {
	items := master.Sorted()

	hint := opts.CapacityHint
	if hint == 0 {
		hint = uint(len(items))
	}
	filter, err := bloom.BuildSorted(items, hint, opts.FalsePositiveRate)
	if err != nil {
		return nil, fmt.Errorf("failed to build membership filter: %w", err)
	}

	snap := &Snapshot{
		MasterID: master.Owner(),
		Items:    len(items),
		Digest:   digest.FromSorted(items),
		Filter:   filter,
	}

	if opts.Buckets > 0 {
		tree, err := merkle.Build(items, opts.Buckets)
		if err != nil {
			return nil, fmt.Errorf("failed to build bucket tree: %w", err)
		}
		snap.Buckets = tree
	}

	return snap, nil
}

// Publish encodes the snapshot for transmission.
func (s *Snapshot) Publish() (*Publication, error) {
	blob, err := s.Filter.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	pub := &Publication{
		MasterID: s.MasterID,
		Digest:   s.Digest,
		Filter:   blob,
	}
	if s.Buckets != nil {
		pub.NumBuckets = s.Buckets.NumLeaves()
		pub.Buckets = s.Buckets.ExportState()
	}
	return pub, nil
}

// Receive rebuilds a replica-side snapshot from a publication.
func Receive(pub *Publication) (*Snapshot, error) {
	filter, err := bloom.Decode(pub.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to decode filter from %s: %w", pub.MasterID, err)
	}

	snap := &Snapshot{
		MasterID: pub.MasterID,
		Items:    int(filter.Count()),
		Digest:   pub.Digest,
		Filter:   filter,
	}

	if pub.NumBuckets > 0 {
		tree, err := merkle.NewTree(pub.NumBuckets)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild bucket tree from %s: %w", pub.MasterID, err)
		}
		if err := tree.ImportState(pub.Buckets); err != nil {
			return nil, fmt.Errorf("failed to rebuild bucket tree from %s: %w", pub.MasterID, err)
		}
		snap.Buckets = tree
	}
	return snap, nil
}

// Reconcile runs local's pass against this snapshot.
//
// It returns the same missing items as the package-level Reconcile. With a
// bucket tree it only looks up items in buckets whose digest differs from the
// master's: every item of a matching bucket is held by the master, so the
// filter would recognize it anyway.
func (s *Snapshot) Reconcile(local *itemset.ItemSet) (domain.Outcome, error) {
	items := local.Sorted()
	out := domain.Outcome{
		ReplicaID: local.Owner(),
		Items:     len(items),
	}

	if digest.Equal(digest.FromSorted(items), s.Digest) {
		out.State = domain.InSync
		return out, nil
	}
	out.State = domain.OutOfSync

	candidates := items
	if s.Buckets != nil {
		narrowed, err := s.divergentItems(items)
		if err != nil {
			return out, err
		}
		candidates = narrowed
	}

	out.Queried = len(candidates)
	out.Result = diff(local.Owner(), candidates, s.Filter)
	return out, nil
}

// divergentItems returns, ascending, the items that fall into buckets whose
// digest differs from the master's.
func (s *Snapshot) divergentItems(items []int32) ([]int32, error) {
	n := s.Buckets.NumLeaves()
	localTree, err := merkle.Build(items, n)
	if err != nil {
		return nil, fmt.Errorf("failed to build local bucket tree: %w", err)
	}

	divergent, err := localTree.DiffBuckets(s.Buckets)
	if err != nil {
		return nil, err
	}

	partitions := merkle.Partition(items, n)
	var out []int32
	for _, b := range divergent {
		out = append(out, partitions[b]...)
	}
	slices.Sort(out)
	return out, nil
}
