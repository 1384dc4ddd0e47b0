package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/metrics"
	"github.com/crossfield/investigation-engine/internal/service/agents"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
)

// Coordinator invokes agents under the bulletproof policy: circuit
// breaking, retry with exponential backoff, and fail-soft degradation.
// Invoke never returns an error; every failure mode produces a failed
// AgentResult so the investigation keeps progressing.
type Coordinator interface {
	Invoke(ctx context.Context, agent agents.Agent, input agents.ExecutionInput, decision *orchestration.Decision) *investigation.AgentResult
	BreakerSnapshot(investigationID uuid.UUID, domain investigation.AgentDomain) BreakerSnapshot
	Release(investigationID uuid.UUID)
}

// Config tunes the coordination policy
type Config struct {
	CallTimeout      time.Duration `json:"call_timeout"`
	MaxAttempts      int           `json:"max_attempts"`
	InitialBackoff   time.Duration `json:"initial_backoff"`
	MaxBackoff       time.Duration `json:"max_backoff"`
	FailureThreshold int           `json:"failure_threshold"`
	BreakerCooldown  time.Duration `json:"breaker_cooldown"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		CallTimeout:      10 * time.Second,
		MaxAttempts:      3,
		InitialBackoff:   100 * time.Millisecond,
		MaxBackoff:       2 * time.Second,
		FailureThreshold: 3,
		BreakerCooldown:  30 * time.Second,
	}
}

type service struct {
	config   Config
	breakers *breakerRegistry
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewService creates a bulletproof execution coordinator. The registry
// is optional; passing nil disables breaker metrics.
func NewService(config Config, registry *metrics.Registry, logger *zap.Logger) Coordinator {
	if config.MaxAttempts <= 0 {
		config = DefaultConfig()
	}
	return &service{
		config:   config,
		breakers: newBreakerRegistry(config.FailureThreshold, config.BreakerCooldown),
		metrics:  registry,
		logger:   logger.Named("coordinator"),
	}
}

// Invoke runs one agent against one entity under the coordination policy
func (s *service) Invoke(ctx context.Context, agent agents.Agent, input agents.ExecutionInput, decision *orchestration.Decision) *investigation.AgentResult {
	domain := agent.Domain()
	breaker := s.breakers.get(input.InvestigationID, domain)

	if !breaker.Allow() {
		s.logger.Debug("short-circuiting agent call",
			zap.String("investigation_id", input.InvestigationID.String()),
			zap.String("domain", string(domain)),
			zap.String("entity_id", input.Entity.ID))
		return investigation.NewFailedResult(input.Entity.ID, domain, "circuit_open")
	}

	attempts := 1
	if decision.Requires(orchestration.RequirementRetryLogic) {
		attempts = s.config.MaxAttempts
	}

	var lastErr error
	backoff := s.config.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		result, err := s.executeOnce(ctx, agent, input)
		if err == nil {
			breaker.RecordSuccess()
			result.Duration = time.Since(start)
			return result
		}

		lastErr = err
		if breaker.RecordFailure(err.Error()) {
			s.metrics.RecordBreakerTrip(ctx, string(domain))
		}
		s.logger.Warn("agent execution failed",
			zap.String("investigation_id", input.InvestigationID.String()),
			zap.String("domain", string(domain)),
			zap.String("entity_id", input.Entity.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		// An opened breaker or a cancelled investigation ends the retry loop
		if breaker.State() == StateOpen || ctx.Err() != nil {
			break
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return investigation.NewFailedResult(input.Entity.ID, domain, "investigation_cancelled")
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.config.MaxBackoff {
			backoff = s.config.MaxBackoff
		}
	}

	reason := "agent_execution_failed"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return investigation.NewFailedResult(input.Entity.ID, domain, reason)
}

// executeOnce runs a single attempt under the per-call timeout. A nil
// result from a non-failing agent is treated as a failure.
func (s *service) executeOnce(ctx context.Context, agent agents.Agent, input agents.ExecutionInput) (*investigation.AgentResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	type outcome struct {
		result *investigation.AgentResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := agent.Execute(callCtx, input)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTimeoutError("agent call")
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.result == nil {
			return nil, errNilResult
		}
		return out.result, nil
	}
}

// BreakerSnapshot exposes the breaker state for one pairing
func (s *service) BreakerSnapshot(investigationID uuid.UUID, domain investigation.AgentDomain) BreakerSnapshot {
	return s.breakers.get(investigationID, domain).Snapshot()
}

// Release drops all breaker state for a finished investigation
func (s *service) Release(investigationID uuid.UUID) {
	s.breakers.drop(investigationID)
}
