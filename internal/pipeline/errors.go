package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FailureKind is the job failure taxonomy. Only transient failures are
// retried; everything else goes straight to the failed list.
type FailureKind string

const (
	FailureNotFound   FailureKind = "not_found"
	FailureTransient  FailureKind = "transient_store"
	FailureValidation FailureKind = "validation"
	FailureInternal   FailureKind = "internal"
)

// Failure tags an error with its taxonomy kind so the runner can decide
// whether to retry without inspecting handler internals.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps an arbitrary handler error onto the taxonomy. Unknown
// errors are treated as transient: at-least-once delivery plus the attempt
// ceiling bounds the damage, whereas misclassifying a flaky store error as
// permanent loses the job.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTransient
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FailureNotFound
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) || errors.Is(err, gorm.ErrInvalidDB) {
		return FailureTransient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 = connection exceptions; 40001 serialization failure;
		// 55P03 lock not available; 57P01 admin shutdown.
		if strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "40001" ||
			pgErr.Code == "55P03" ||
			pgErr.Code == "57P01" {
			return FailureTransient
		}
	}

	return FailureTransient
}

// Retriable reports whether the runner should re-queue under backoff.
func Retriable(kind FailureKind) bool {
	return kind == FailureTransient
}
