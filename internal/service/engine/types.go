package engine

import (
	"time"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/queryvalidator"
)

// SubmitRequest carries everything needed to open an investigation
type SubmitRequest struct {
	Entities      []entity.Ref                `json:"entities"`
	Relationships []entity.Relationship       `json:"relationships,omitempty"`
	BooleanLogic  string                      `json:"boolean_logic"`
	Scope         []investigation.AgentDomain `json:"investigation_scope,omitempty"`
	Priority      investigation.Priority      `json:"priority"`
	Context       map[string]interface{}      `json:"context,omitempty"`

	// SubmittedBy is the rate-limit key of the submitting API client,
	// filled in by the transport layer.
	SubmittedBy string `json:"-"`
}

// Status is the polling view of an in-flight or finished investigation
type Status struct {
	InvestigationID    string                    `json:"investigation_id"`
	CurrentPhase       string                    `json:"current_phase"`
	ProgressPercentage int                       `json:"progress_percentage"`
	PerEntityProgress  map[string]EntityProgress `json:"per_entity_progress,omitempty"`
	FailureReason      string                    `json:"failure_reason,omitempty"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// EntityProgress counts terminal agent invocations for one entity
type EntityProgress struct {
	CompletedAgents int `json:"completed_agents"`
	TotalAgents     int `json:"total_agents"`
}

// CachedValidation is the cache entry for a previously validated query
type CachedValidation struct {
	Result   *queryvalidator.ValidationResult `json:"result"`
	CachedAt time.Time                        `json:"cached_at"`
}

// Config tunes the lifecycle driver
type Config struct {
	// InvestigationTimeout bounds total wall-clock time for one
	// investigation regardless of per-agent timeouts.
	InvestigationTimeout time.Duration `json:"investigation_timeout"`

	// ValidationCacheTTL controls how long cached verdicts live
	ValidationCacheTTL time.Duration `json:"validation_cache_ttl"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		InvestigationTimeout: 5 * time.Minute,
		ValidationCacheTTL:   15 * time.Minute,
	}
}
