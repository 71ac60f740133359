package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/domain"
	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
	"github.com/anthanhphan/go-set-reconciliation/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
)

// Coordinator drives reconciliation rounds. For each round it designates one
// node as master; every other node takes the replica role.
type Coordinator struct {
	opts    SnapshotOptions
	workers int
	round   atomic.Uint64
}

// NewCoordinator creates a coordinator running up to workers replica passes in parallel.
func NewCoordinator(opts SnapshotOptions, workers int) *Coordinator {
	if workers <= 0 {
		workers = 1
	}
	return &Coordinator{opts: opts, workers: workers}
}

// RunRound builds the master's snapshot, publishes it, and reconciles every
// replica against its own decoded copy. Outcomes keep the order of replicas.
func (c *Coordinator) RunRound(ctx context.Context, master *itemset.ItemSet, replicas []*itemset.ItemSet) (*domain.RoundReport, error) {
	round := c.round.Add(1)

	snap, err := BuildSnapshot(master, c.opts)
	if err != nil {
		return nil, err
	}
	pub, err := snap.Publish()
	if err != nil {
		return nil, err
	}

	logger.Infow("Round: master snapshot ready",
		"round", round,
		"master", snap.MasterID,
		"items", snap.Items,
		"digest", snap.Digest.String(),
		"filter_bits", snap.Filter.Bits(),
		"filter_probes", snap.Filter.Probes(),
		"filter_bytes", len(pub.Filter))

	report := &domain.RoundReport{
		Round:          round,
		MasterID:       snap.MasterID,
		MasterItems:    snap.Items,
		MasterDigest:   snap.Digest,
		FilterBits:     snap.Filter.Bits(),
		FilterProbes:   snap.Filter.Probes(),
		FilterBytes:    len(pub.Filter),
		FilterEstimate: snap.Filter.EstimatedFalsePositiveRate(),
		Outcomes:       make([]domain.Outcome, len(replicas)),
	}

	pool := resilience.NewWorkerPool(c.workers, len(replicas))
	var submitErr error
	for i, replica := range replicas {
		err := pool.Submit(ctx, func() error {
			outcome, err := reconcileReplica(pub, replica)
			if err != nil {
				return fmt.Errorf("replica %s: %w", replica.Owner(), err)
			}
			report.Outcomes[i] = outcome
			return nil
		})
		if err != nil {
			submitErr = err
			break
		}
	}
	pool.Close()
	waitErr := pool.Wait()

	if submitErr != nil {
		return nil, fmt.Errorf("round %d aborted: %w", round, submitErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("round %d failed: %w", round, waitErr)
	}

	logger.Infow("Round: completed",
		"round", round,
		"replicas", len(replicas),
		"out_of_sync", report.OutOfSync())
	return report, nil
}

// reconcileReplica is the replica side: decode what the master published, then diff.
func reconcileReplica(pub *Publication, replica *itemset.ItemSet) (domain.Outcome, error) {
	snap, err := Receive(pub)
	if err != nil {
		return domain.Outcome{}, err
	}

	outcome, err := snap.Reconcile(replica)
	if err != nil {
		return domain.Outcome{}, err
	}

	if outcome.State == domain.InSync {
		logger.Infow("Round: digests match, skipping sync", "replica", outcome.ReplicaID, "master", pub.MasterID)
		return outcome, nil
	}

	logger.Infow("Round: digests differ, reporting missing items",
		"replica", outcome.ReplicaID,
		"master", pub.MasterID,
		"items", outcome.Items,
		"queried", outcome.Queried,
		"missing", len(outcome.Result.MissingItems))
	logger.Debugw("Round: missing items", "replica", outcome.ReplicaID, "items", outcome.Result.MissingItems)
	return outcome, nil
}
