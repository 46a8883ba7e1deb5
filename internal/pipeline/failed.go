package pipeline

import (
	"sync"
	"time"
)

// FailedJob is one entry in the operator inspection window.
type FailedJob struct {
	Job      Job         `json:"job"`
	Kind     FailureKind `json:"kind"`
	Reason   string      `json:"reason"`
	FailedAt time.Time   `json:"failed_at"`
}

// FailedList is a bounded ring of terminally-failed jobs. Oldest entries
// fall off when the retention limit is reached; nothing here is retried
// automatically.
type FailedList struct {
	mu      sync.Mutex
	entries []FailedJob
	limit   int
}

func NewFailedList(limit int) *FailedList {
	if limit <= 0 {
		limit = 100
	}
	return &FailedList{limit: limit}
}

func (l *FailedList) Add(job Job, kind FailureKind, err error) {
	entry := FailedJob{
		Job:      job,
		Kind:     kind,
		FailedAt: time.Now().UTC(),
	}
	if err != nil {
		entry.Reason = err.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
	l.mu.Unlock()
}

// Snapshot returns a copy, newest first.
func (l *FailedList) Snapshot() []FailedJob {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]FailedJob, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

func (l *FailedList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
