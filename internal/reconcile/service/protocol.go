package service

import (
	"errors"
	"reflect"

	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/domain"
	"github.com/anthanhphan/go-set-reconciliation/pkg/digest"
	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
)

var ErrNilFilter = errors.New("master filter is required when digests differ")

// Membership is the approximate membership test a replica runs against the master's filter.
type Membership interface {
	Contains(item int32) bool
}

// Classify compares the local digest with the master's.
func Classify(local *itemset.ItemSet, masterDigest digest.Digest) domain.SyncState {
	if digest.Equal(digest.Compute(local), masterDigest) {
		return domain.InSync
	}
	return domain.OutOfSync
}

// Reconcile runs one replica's pass against the master's digest and filter.
//
// Equal digests return a nil result without touching the filter. Otherwise
// every local item is looked up and those the filter does not recognize are
// reported, in ascending order. A digest mismatch only means the sets differ
// somehow, so a replica holding a strict subset of the master gets an empty list.
func Reconcile(local *itemset.ItemSet, masterDigest digest.Digest, masterFilter Membership) (*domain.ReconciliationResult, error) {
	items := local.Sorted()
	if digest.Equal(digest.FromSorted(items), masterDigest) {
		return nil, nil
	}
	if isNil(masterFilter) {
		return nil, ErrNilFilter
	}
	return diff(local.Owner(), items, masterFilter), nil
}

// diff collects the items the filter reports absent, keeping input order.
func diff(replicaID string, items []int32, filter Membership) *domain.ReconciliationResult {
	missing := make([]int32, 0)
	for _, item := range items {
		if !filter.Contains(item) {
			missing = append(missing, item)
		}
	}
	return &domain.ReconciliationResult{
		ReplicaID:    replicaID,
		MissingItems: missing,
	}
}

func isNil(m Membership) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
