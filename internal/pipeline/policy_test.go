package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestPolicy_Backoff(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2.0}

	assert.Equal(t, 5*time.Second, policy.Backoff(0))
	assert.Equal(t, 5*time.Second, policy.Backoff(1))
	assert.Equal(t, 10*time.Second, policy.Backoff(2))
	assert.Equal(t, 20*time.Second, policy.Backoff(3))
}

func TestPolicy_WithDefaults(t *testing.T) {
	policy := Policy{}.withDefaults()
	assert.Equal(t, DefaultPolicy(), policy)

	custom := Policy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 3.0}.withDefaults()
	assert.Equal(t, Policy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 3.0}, custom)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind FailureKind
	}{
		{"tagged validation", &Failure{Kind: FailureValidation, Err: errors.New("bad")}, FailureValidation},
		{"wrapped tagged failure", fmt.Errorf("outer: %w", &Failure{Kind: FailureNotFound}), FailureNotFound},
		{"deadline", context.DeadlineExceeded, FailureTransient},
		{"record not found", gorm.ErrRecordNotFound, FailureNotFound},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, FailureTransient},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, FailureTransient},
		{"unknown error defaults transient", errors.New("disk on fire"), FailureTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, Classify(tc.err))
		})
	}
}

func TestRetriable(t *testing.T) {
	assert.True(t, Retriable(FailureTransient))
	assert.False(t, Retriable(FailureNotFound))
	assert.False(t, Retriable(FailureValidation))
	assert.False(t, Retriable(FailureInternal))
}
