package random

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/config"
	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/port"
	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
)

// Source generates random item sets for the harness.
type Source struct {
	mu       sync.Mutex
	rng      *rand.Rand
	maxItems int32
	maxValue int32
}

// Ensure Source implements port.ItemSource.
var _ port.ItemSource = (*Source)(nil)

// NewSource creates a generator drawing cardinalities from [1, MaxItemsPerNode]
// and values from [1, MaxItemValue]. A zero seed is replaced by the current time.
func NewSource(cfg config.DatasetConfig) *Source {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Source{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		maxItems: max(cfg.MaxItemsPerNode, 1),
		maxValue: max(cfg.MaxItemValue, 1),
	}
}

// Generate returns a fresh set for owner. Repeated draws are rejected by the
// set and drawn again, so the set ends up with exactly the drawn cardinality,
// capped at the size of the value range.
func (s *Source) Generate(ctx context.Context, owner string) (*itemset.ItemSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := min(s.rng.Int32N(s.maxItems)+1, s.maxValue)
	set := itemset.New(owner)
	for set.Len() < int(want) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set.Add(s.rng.Int32N(s.maxValue) + 1)
	}
	return set, nil
}
