package domain

import "github.com/anthanhphan/go-set-reconciliation/pkg/digest"

// SyncState is the terminal state of one replica's pass in a round.
type SyncState string

const (
	// InSync means the replica digest equals the master digest; the filter was not consulted.
	InSync SyncState = "in_sync"
	// OutOfSync means the digests differ and the replica was diffed against the filter.
	OutOfSync SyncState = "out_of_sync"
)

// ReconciliationResult lists the replica items the master's filter does not recognize.
// It is what a replica reports back to the master.
//
// Filter false positives make this list an under-estimate: an item the master
// lacks can be wrongly recognized as present and left out. Items the master
// holds are never listed.
type ReconciliationResult struct {
	ReplicaID    string  `json:"replica_id"`
	MissingItems []int32 `json:"missing_items"`
}

// Outcome describes one replica's pass in a round.
type Outcome struct {
	ReplicaID string    `json:"replica_id"`
	State     SyncState `json:"state"`
	// Items is the replica's cardinality.
	Items int `json:"items"`
	// Queried is the number of filter lookups the diff made.
	Queried int                   `json:"queried"`
	Result  *ReconciliationResult `json:"result,omitempty"`
}

// RoundReport summarizes a reconciliation round.
type RoundReport struct {
	Round          uint64        `json:"round"`
	MasterID       string        `json:"master_id"`
	MasterItems    int           `json:"master_items"`
	MasterDigest   digest.Digest `json:"master_digest"`
	FilterBits     uint64        `json:"filter_bits"`
	FilterProbes   uint32        `json:"filter_probes"`
	FilterBytes    int           `json:"filter_bytes"`
	FilterEstimate float64       `json:"filter_estimated_fp_rate"`
	Outcomes       []Outcome     `json:"outcomes"`
}

// OutOfSync returns the number of replicas whose digest differed.
func (r *RoundReport) OutOfSync() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == OutOfSync {
			n++
		}
	}
	return n
}
