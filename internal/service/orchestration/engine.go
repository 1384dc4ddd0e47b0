package orchestration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/agents"
)

// Engine decides the execution strategy, agent set and ordering for an
// investigation. A failed decision is returned as an error; callers
// substitute FallbackDecision so the fallback path is visible at the
// call site rather than hidden inside the engine.
type Engine interface {
	Decide(ctx context.Context, investigationID uuid.UUID, entities []entity.Ref, invContext map[string]interface{}, scope []investigation.AgentDomain) (*Decision, error)
}

type engine struct {
	health agents.ServiceHealth
	logger *zap.Logger
}

// NewEngine creates a decision engine backed by a service-health view
func NewEngine(health agents.ServiceHealth, logger *zap.Logger) Engine {
	return &engine{
		health: health,
		logger: logger.Named("orchestration"),
	}
}

// Signal score contributions. The thresholds are ordered; the highest
// matching level wins.
const (
	fraudIndicatorWeight  = 2
	threatIndicatorWeight = 2
	alertWeight           = 2
	irregularityWeight    = 1

	criticalSignalScore = 10
	highSignalScore     = 6
	mediumSignalScore   = 3
	lowSignalScore      = 1
)

func (e *engine) Decide(ctx context.Context, investigationID uuid.UUID, entities []entity.Ref, invContext map[string]interface{}, scope []investigation.AgentDomain) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("cannot decide strategy without entities")
	}
	if e.health == nil {
		return nil, fmt.Errorf("service health view is unavailable")
	}

	risk := e.assessRisk(invContext)
	strategy := e.selectStrategy(risk, entities)

	candidates := e.candidateDomains(strategy, entities, scope)
	activate, excluded := e.filterByHealth(candidates)
	if len(activate) == 0 {
		return nil, fmt.Errorf("no healthy agents available for strategy %s", strategy)
	}

	decision := &Decision{
		Strategy:                strategy,
		AgentsToActivate:        activate,
		ExecutionOrder:          orderForExecution(activate),
		ConfidenceScore:         confidenceScore(len(activate), excluded),
		RiskAssessment:          risk,
		BulletproofRequirements: requirementsFor(risk),
	}

	e.logger.Info("orchestration decision made",
		zap.String("investigation_id", investigationID.String()),
		zap.String("strategy", strategy.String()),
		zap.String("risk", risk.String()),
		zap.Int("agents", len(activate)),
		zap.Int("excluded_unhealthy", excluded))

	return decision, nil
}

// assessRisk scores the union of context signals against ordered
// thresholds. Each explicit fraud or threat indicator contributes 2,
// each alert 2, each irregularity 1.
func (e *engine) assessRisk(invContext map[string]interface{}) RiskLevel {
	score := 0

	score += fraudIndicatorWeight * len(stringSlice(invContext, "fraud_indicators"))
	score += threatIndicatorWeight * len(stringSlice(invContext, "threat_indicators"))

	if boolSignal(invContext, "alert") {
		score += alertWeight
	}
	score += alertWeight * intSignal(invContext, "alert_count")
	score += irregularityWeight * intSignal(invContext, "irregularities")

	switch {
	case score >= criticalSignalScore:
		return RiskCritical
	case score >= highSignalScore:
		return RiskHigh
	case score >= mediumSignalScore:
		return RiskMedium
	case score >= lowSignalScore:
		return RiskLow
	default:
		return RiskNone
	}
}

func (e *engine) selectStrategy(risk RiskLevel, entities []entity.Ref) Strategy {
	switch {
	case risk >= RiskHigh || len(entities) > 1:
		return StrategyComprehensive
	case risk == RiskMedium:
		return StrategySequential
	case risk == RiskLow:
		return StrategyParallel
	default:
		return StrategyTargeted
	}
}

// candidateDomains selects the agent domains for a strategy before
// health filtering. An explicit investigation scope narrows the set.
func (e *engine) candidateDomains(strategy Strategy, entities []entity.Ref, scope []investigation.AgentDomain) []investigation.AgentDomain {
	var candidates []investigation.AgentDomain

	if strategy == StrategyTargeted {
		candidates = targetedDomains(entities)
	} else {
		candidates = investigation.AllDomains()
	}

	if len(scope) == 0 {
		return candidates
	}

	scoped := make(map[investigation.AgentDomain]bool, len(scope))
	for _, d := range scope {
		scoped[d] = true
	}
	// Risk synthesis stays in scope whenever anything else runs
	scoped[investigation.DomainRisk] = true

	filtered := candidates[:0]
	for _, d := range candidates {
		if scoped[d] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// targetedDomains picks the domains relevant to the entity types under
// investigation, plus logs and risk which apply universally.
func targetedDomains(entities []entity.Ref) []investigation.AgentDomain {
	relevant := map[investigation.AgentDomain]bool{
		investigation.DomainLogs: true,
		investigation.DomainRisk: true,
	}

	for _, ent := range entities {
		switch ent.Type {
		case entity.TypeIPAddress:
			relevant[investigation.DomainNetwork] = true
		case entity.TypeDevice:
			relevant[investigation.DomainDevice] = true
		case entity.TypeUser, entity.TypeAccount:
			relevant[investigation.DomainDevice] = true
			relevant[investigation.DomainLocation] = true
		case entity.TypeTransaction:
			relevant[investigation.DomainNetwork] = true
			relevant[investigation.DomainLocation] = true
		}
	}

	var domains []investigation.AgentDomain
	for _, d := range investigation.AllDomains() {
		if relevant[d] {
			domains = append(domains, d)
		}
	}
	return domains
}

func (e *engine) filterByHealth(candidates []investigation.AgentDomain) (healthy []investigation.AgentDomain, excluded int) {
	for _, d := range candidates {
		if e.health.IsHealthy(d) {
			healthy = append(healthy, d)
			continue
		}
		excluded++
		e.logger.Warn("excluding agent backed by unhealthy service",
			zap.String("domain", string(d)))
	}
	return healthy, excluded
}

// orderForExecution schedules the risk agent strictly last; the
// remaining agents carry no ordering guarantee relative to each other.
func orderForExecution(domains []investigation.AgentDomain) []investigation.AgentDomain {
	order := make([]investigation.AgentDomain, 0, len(domains))
	hasRisk := false
	for _, d := range domains {
		if d == investigation.DomainRisk {
			hasRisk = true
			continue
		}
		order = append(order, d)
	}
	if hasRisk {
		order = append(order, investigation.DomainRisk)
	}
	return order
}

func confidenceScore(activated, excluded int) float64 {
	c := 0.9 - 0.05*float64(excluded)
	if activated < len(investigation.AllDomains()) {
		c -= 0.05
	}
	if c < 0.5 {
		c = 0.5
	}
	return c
}

func requirementsFor(risk RiskLevel) []Requirement {
	switch {
	case risk >= RiskHigh:
		return []Requirement{RequirementCircuitBreaker, RequirementRetryLogic, RequirementFailSoft}
	case risk == RiskMedium:
		return []Requirement{RequirementCircuitBreaker, RequirementFailSoft}
	default:
		return []Requirement{RequirementFailSoft}
	}
}

// FallbackDecision is the documented static plan substituted when
// decision-making fails: comprehensive strategy over every default
// agent with confidence 0.7.
func FallbackDecision() *Decision {
	all := investigation.AllDomains()
	return &Decision{
		Strategy:                StrategyComprehensive,
		AgentsToActivate:        all,
		ExecutionOrder:          orderForExecution(all),
		ConfidenceScore:         0.7,
		RiskAssessment:          RiskHigh,
		BulletproofRequirements: []Requirement{RequirementCircuitBreaker, RequirementRetryLogic, RequirementFailSoft},
		Fallback:                true,
	}
}
