package port

import (
	"context"

	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
)

//go:generate mockgen -destination=mocks/source_mock.go -package=mocks -source=source.go

// ItemSource produces the initial item set of a node.
// Cardinality and value range are up to the implementation.
type ItemSource interface {
	// Generate returns a fresh set owned by owner.
	Generate(ctx context.Context, owner string) (*itemset.ItemSet, error)
}
