package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventKind is the closed set of pipeline job kinds. Unknown kinds are
// rejected at enqueue time so malformed payloads never reach a worker.
type EventKind string

const (
	KindOrderCreated     EventKind = "order-created"
	KindOrderCompleted   EventKind = "order-completed"
	KindPaymentCompleted EventKind = "payment-completed"
	KindEnrichProfile    EventKind = "enrich-profile"
	KindBatchRefresh     EventKind = "batch-refresh"
	KindHealthCheck      EventKind = "health-check"
	KindQualityCheck     EventKind = "quality-check"
)

var eventKinds = map[EventKind]struct{}{
	KindOrderCreated:     {},
	KindOrderCompleted:   {},
	KindPaymentCompleted: {},
	KindEnrichProfile:    {},
	KindBatchRefresh:     {},
	KindHealthCheck:      {},
	KindQualityCheck:     {},
}

func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// orderKinds are the kinds whose target id names an order and whose
// processing records a monetary transaction.
func (k EventKind) OrderEvent() bool {
	return k == KindOrderCreated || k == KindOrderCompleted || k == KindPaymentCompleted
}

// Job is one queued unit of work. Delivery is at-least-once; handlers are
// idempotent with respect to redelivery.
type Job struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	Kind       EventKind         `json:"kind"`
	TargetID   string            `json:"target_id,omitempty"`
	TargetIDs  []string          `json:"target_ids,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Attempt    int               `json:"attempt"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// Validate rejects malformed jobs before they reach the queue.
func (j Job) Validate() error {
	if strings.TrimSpace(j.TenantID) == "" {
		return &Failure{Kind: FailureValidation, Err: fmt.Errorf("job %s: missing tenant id", j.ID)}
	}
	if !j.Kind.Valid() {
		return &Failure{Kind: FailureValidation, Err: fmt.Errorf("job %s: unknown event kind %q", j.ID, j.Kind)}
	}
	switch j.Kind {
	case KindBatchRefresh:
		if len(j.TargetIDs) == 0 {
			return &Failure{Kind: FailureValidation, Err: fmt.Errorf("job %s: batch refresh requires target ids", j.ID)}
		}
	case KindHealthCheck:
		// tenant-scoped but targetless
	default:
		if strings.TrimSpace(j.TargetID) == "" {
			return &Failure{Kind: FailureValidation, Err: fmt.Errorf("job %s: missing target id", j.ID)}
		}
	}
	return nil
}

func (j Job) encode() ([]byte, error) {
	return json.Marshal(j)
}

func decodeJob(raw []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, &Failure{Kind: FailureValidation, Err: fmt.Errorf("decode job: %w", err)}
	}
	return job, nil
}
