package entity

import "time"

type Status string

const (
	StatusSaved     Status = "saved"
	StatusDuplicate Status = "duplicate"
	StatusGated     Status = "gated"
	StatusFailed    Status = "failed"
)

type Kind string

const (
	KindNone       Kind = ""
	KindNetwork    Kind = "network"
	KindGate       Kind = "gate"
	KindDuplicate  Kind = "duplicate"
	KindFilesystem Kind = "filesystem"
	KindUnexpected Kind = "unexpected"
	KindCanceled   Kind = "canceled"
)

// Outcome is the result of processing one input URL.
type Outcome struct {
	Index   int    // Position in the input list, starting at 0
	URL     string // URL as supplied by the caller
	Status  Status
	Kind    Kind
	Path    string // Destination path, set for saved outcomes
	Hash    string // Hex content hash, set once the payload was fetched
	Size    int64  // Payload size in bytes, set once the payload was fetched
	Reason  string // Human readable explanation for non-saved outcomes
	Err     error
	Elapsed time.Duration
}

type BatchReport struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Outcomes       []*Outcome
	LedgerLocation string
	LedgerSize     int
	FlushErr       error
}

func (r *BatchReport) Count(status Status) int {
	var n int
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}

	return n
}

func (r *BatchReport) Saved() []*Outcome {
	var saved []*Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusSaved {
			saved = append(saved, o)
		}
	}

	return saved
}
