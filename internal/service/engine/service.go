package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/metrics"
	"github.com/crossfield/investigation-engine/internal/service/consolidation"
	"github.com/crossfield/investigation-engine/internal/service/coordinator"
	"github.com/crossfield/investigation-engine/internal/service/executionpool"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
	"github.com/crossfield/investigation-engine/internal/service/queryvalidator"
)

type service struct {
	config       Config
	repo         Repository
	validator    queryvalidator.Validator
	decider      orchestration.Engine
	pool         executionpool.Pool
	coordinator  coordinator.Coordinator
	consolidator consolidation.Consolidator
	cache        ValidationCache
	quota        SubmissionQuota
	metrics      *metrics.Registry
	logger       *zap.Logger

	mu       sync.Mutex
	trackers map[uuid.UUID]*tracker
	running  sync.WaitGroup
}

// NewService wires the full investigation lifecycle. The cache and
// quota are optional; passing nil disables validation caching and
// complexity-weighted quota billing respectively.
func NewService(
	config Config,
	repo Repository,
	validator queryvalidator.Validator,
	decider orchestration.Engine,
	pool executionpool.Pool,
	coord coordinator.Coordinator,
	consolidator consolidation.Consolidator,
	cache ValidationCache,
	quota SubmissionQuota,
	registry *metrics.Registry,
	logger *zap.Logger,
) Service {
	if config.InvestigationTimeout <= 0 {
		config = DefaultConfig()
	}
	return &service{
		config:       config,
		repo:         repo,
		validator:    validator,
		decider:      decider,
		pool:         pool,
		coordinator:  coord,
		consolidator: consolidator,
		cache:        cache,
		quota:        quota,
		metrics:      registry,
		logger:       logger.Named("engine"),
		trackers:     make(map[uuid.UUID]*tracker),
	}
}

// Submit accepts an investigation and starts its lifecycle in the
// background. The returned id is immediately pollable via GetStatus.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	query := entity.NewBooleanQuery(req.BooleanLogic, req.Entities)

	inv, err := investigation.New(req.Entities, req.Relationships, query, req.Scope, req.Priority)
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_INVESTIGATION", err.Error())
	}
	inv.Context = req.Context
	inv.SubmittedBy = req.SubmittedBy

	if err := s.repo.Create(ctx, inv); err != nil {
		return uuid.Nil, errors.NewInternalError("failed to persist investigation").WithCause(err)
	}

	s.logger.Info("investigation accepted",
		zap.String("investigation_id", inv.ID.String()),
		zap.Int("entities", len(inv.Entities)),
		zap.String("priority", inv.Priority.String()))

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.run(inv)
	}()
	return inv.ID, nil
}

// GetStatus returns the lifecycle snapshot for one investigation
func (s *service) GetStatus(ctx context.Context, id uuid.UUID) (*Status, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &Status{
		InvestigationID:    inv.ID.String(),
		CurrentPhase:       inv.Phase.String(),
		ProgressPercentage: inv.Phase.ProgressPercentage(),
		FailureReason:      inv.FailureReason,
		UpdatedAt:          inv.UpdatedAt,
	}

	s.mu.Lock()
	tr := s.trackers[id]
	s.mu.Unlock()
	if tr != nil {
		status.PerEntityProgress = tr.snapshot()
	}
	return status, nil
}

// GetResult returns the consolidated assessment once the investigation
// is terminal. Non-terminal investigations yield ErrResultNotReady.
func (s *service) GetResult(ctx context.Context, id uuid.UUID) (*investigation.ConsolidatedAssessment, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsTerminal() {
		return nil, errors.ErrResultNotReady
	}
	if inv.Assessment == nil {
		return nil, errors.NewBusinessError("INVESTIGATION_FAILED", inv.FailureReason)
	}
	return inv.Assessment, nil
}

// Wait blocks until every in-flight investigation has reached a
// terminal phase. Used by graceful shutdown.
func (s *service) Wait() {
	s.running.Wait()
}

// run drives one investigation through the phase state machine. It owns
// the aggregate exclusively, so repository updates never conflict.
func (s *service) run(inv *investigation.Investigation) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.config.InvestigationTimeout)
	defer cancel()
	defer s.coordinator.Release(inv.ID)
	defer s.dropTracker(inv.ID)

	s.metrics.InvestigationStarted()
	defer func() {
		s.metrics.InvestigationFinished()
		s.metrics.RecordInvestigation(context.Background(), time.Since(started), inv.Phase.String())
	}()

	logger := s.logger.With(zap.String("investigation_id", inv.ID.String()))

	// Validation
	if !s.advance(ctx, inv, investigation.PhaseValidating, logger) {
		return
	}
	verdict := s.validate(ctx, inv)
	if !verdict.IsValid {
		s.fail(ctx, inv, "query validation failed: "+strings.Join(verdict.Errors, "; "), logger)
		return
	}
	for _, warning := range verdict.Warnings {
		logger.Warn("validation warning", zap.String("warning", warning))
	}
	s.chargeQuota(ctx, inv, verdict, logger)

	// Decision
	if !s.advance(ctx, inv, investigation.PhaseDeciding, logger) {
		return
	}
	decision, err := s.decider.Decide(ctx, inv.ID, inv.Entities, inv.Context, inv.Scope)
	if err != nil {
		logger.Warn("decision engine failed, substituting fallback plan", zap.Error(err))
		decision = orchestration.FallbackDecision()
	}
	logger.Info("execution plan selected",
		zap.String("strategy", decision.Strategy.String()),
		zap.Int("agents", len(decision.AgentsToActivate)),
		zap.Bool("fallback", decision.Fallback))

	// Execution
	if !s.advance(ctx, inv, investigation.PhaseExecuting, logger) {
		return
	}
	tr := newTracker(inv.Entities, len(decision.AgentsToActivate))
	s.mu.Lock()
	s.trackers[inv.ID] = tr
	s.mu.Unlock()
	observe := func(res *investigation.AgentResult) {
		tr.observe(res)
		s.metrics.RecordAgentExecution(ctx, res.Duration, string(res.AgentDomain), res.Succeeded())
	}
	results := s.pool.Execute(ctx, inv, decision, inv.Context, observe)

	// Consolidation
	if !s.advance(ctx, inv, investigation.PhaseConsolidating, logger) {
		return
	}
	consolidationStart := time.Now()
	assessment, err := s.consolidator.Consolidate(decision, results, inv.Relationships)
	if err != nil {
		s.fail(ctx, inv, "consolidation failed: no agent produced a successful result", logger)
		return
	}
	s.metrics.RecordConsolidation(ctx, time.Since(consolidationStart), assessment.Degraded)

	if err := inv.Complete(assessment); err != nil {
		logger.Error("failed to complete investigation", zap.Error(err))
		return
	}
	s.save(ctx, inv, logger)
	logger.Info("investigation finished",
		zap.String("phase", inv.Phase.String()),
		zap.Float64("overall_risk_score", assessment.OverallRiskScore),
		zap.String("risk_level", assessment.RiskLevel))
}

// validate runs the query validator, consulting the cache first when
// one is configured.
func (s *service) validate(ctx context.Context, inv *investigation.Investigation) *queryvalidator.ValidationResult {
	key := validationKey(inv.Query.Expression, inv.EntityIDs())
	if s.cache != nil {
		if cached, err := s.cache.GetValidation(ctx, key); err == nil && cached != nil {
			s.metrics.RecordValidation(ctx, 0, cached.Result.IsValid, true)
			return cached.Result
		}
	}

	start := time.Now()
	verdict := s.validator.Validate(inv.Query.Expression, inv.EntityIDs())
	s.metrics.RecordValidation(ctx, time.Since(start), verdict.IsValid, false)
	if s.cache != nil && verdict.ShouldCache {
		if err := s.cache.SetValidation(ctx, key, &CachedValidation{Result: verdict}); err != nil {
			s.logger.Warn("failed to cache validation verdict", zap.Error(err))
		}
	}
	return verdict
}

// chargeQuota bills the submitting client for the query's complexity
// beyond the single request the API middleware already counted. Billing
// failures degrade to the flat per-request limit.
func (s *service) chargeQuota(ctx context.Context, inv *investigation.Investigation, verdict *queryvalidator.ValidationResult, logger *zap.Logger) {
	if s.quota == nil || inv.SubmittedBy == "" {
		return
	}
	extra := int(math.Round(verdict.RateLimitFactor)) - 1
	if extra <= 0 {
		return
	}
	if err := s.quota.Charge(ctx, inv.SubmittedBy, extra); err != nil {
		logger.Warn("failed to charge submission quota",
			zap.String("client", inv.SubmittedBy),
			zap.Int("cost", extra),
			zap.Error(err))
	}
}

func (s *service) advance(ctx context.Context, inv *investigation.Investigation, next investigation.Phase, logger *zap.Logger) bool {
	if err := inv.Transition(next); err != nil {
		logger.Error("illegal phase transition", zap.Error(err))
		return false
	}
	s.save(ctx, inv, logger)
	return true
}

func (s *service) fail(ctx context.Context, inv *investigation.Investigation, reason string, logger *zap.Logger) {
	if err := inv.Fail(reason); err != nil {
		logger.Error("failed to mark investigation failed", zap.Error(err))
		return
	}
	s.save(ctx, inv, logger)
	logger.Warn("investigation failed", zap.String("reason", reason))
}

// save persists the aggregate. The lifecycle goroutine is the only
// writer, so an update error here means infrastructure trouble rather
// than contention; we log and keep the in-memory state authoritative.
func (s *service) save(ctx context.Context, inv *investigation.Investigation, logger *zap.Logger) {
	if err := s.repo.Update(ctx, inv); err != nil {
		logger.Error("failed to persist investigation state",
			zap.String("phase", inv.Phase.String()),
			zap.Error(err))
	}
}

func (s *service) dropTracker(id uuid.UUID) {
	s.mu.Lock()
	delete(s.trackers, id)
	s.mu.Unlock()
}

// validationKey derives a stable cache key from the expression and the
// sorted entity id set.
func validationKey(expression string, ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(expression))
	for _, id := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
