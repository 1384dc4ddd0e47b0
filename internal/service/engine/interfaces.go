package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// Service is the public face of the investigation engine. Submit is
// asynchronous: it returns as soon as the investigation is accepted and
// the lifecycle runs in the background; callers poll GetStatus and
// fetch the assessment through GetResult once a terminal phase is
// reached.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*Status, error)
	GetResult(ctx context.Context, id uuid.UUID) (*investigation.ConsolidatedAssessment, error)

	// Wait blocks until all in-flight investigations have terminated
	Wait()
}

// Repository persists investigation aggregates. Update enforces
// optimistic concurrency on the aggregate's version counter and bumps
// it on success.
type Repository interface {
	Create(ctx context.Context, inv *investigation.Investigation) error
	GetByID(ctx context.Context, id uuid.UUID) (*investigation.Investigation, error)
	Update(ctx context.Context, inv *investigation.Investigation) error
}

// ValidationCache stores validation verdicts for expensive expressions
// so resubmissions of the same query skip re-analysis.
type ValidationCache interface {
	GetValidation(ctx context.Context, key string) (*CachedValidation, error)
	SetValidation(ctx context.Context, key string, cached *CachedValidation) error
}

// SubmissionQuota bills investigation submissions against the caller's
// shared rate-limit window. The validator's rate-limit factor makes
// complex queries consume more of the caller's budget than the single
// request the API middleware already counted.
type SubmissionQuota interface {
	Charge(ctx context.Context, client string, cost int) error
}
