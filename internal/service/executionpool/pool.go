package executionpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/agents"
	"github.com/crossfield/investigation-engine/internal/service/coordinator"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
)

// Pool fans an execution plan out into concurrent per-(entity, agent)
// invocations and joins them at the consolidation barrier. Execute
// returns only after every dispatched pair has reached a terminal state;
// pairs cut off by cancellation or the deadline are reported as
// fail-soft failures.
type Pool interface {
	Execute(ctx context.Context, inv *investigation.Investigation, decision *orchestration.Decision, invContext map[string]interface{}, onResult func(*investigation.AgentResult)) []*investigation.AgentResult
}

// Config bounds pool concurrency
type Config struct {
	Workers int `json:"workers"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{Workers: 8}
}

type pool struct {
	config      Config
	registry    *agents.Registry
	coordinator coordinator.Coordinator
	logger      *zap.Logger
}

// NewPool creates an execution pool over the agent registry and
// bulletproof coordinator
func NewPool(config Config, registry *agents.Registry, coord coordinator.Coordinator, logger *zap.Logger) Pool {
	if config.Workers <= 0 {
		config = DefaultConfig()
	}
	return &pool{
		config:      config,
		registry:    registry,
		coordinator: coord,
		logger:      logger.Named("executionpool"),
	}
}

// Execute runs the plan. Entities proceed in parallel with no ordering
// guarantee; within one entity the risk agent runs strictly after every
// other assigned agent has terminated.
func (p *pool) Execute(ctx context.Context, inv *investigation.Investigation, decision *orchestration.Decision, invContext map[string]interface{}, onResult func(*investigation.AgentResult)) []*investigation.AgentResult {
	start := time.Now()
	acc := newAccumulator()
	acc.onAdd = onResult
	sem := make(chan struct{}, p.config.Workers)

	var wg sync.WaitGroup
	for _, ent := range inv.Entities {
		wg.Add(1)
		go func(ent entity.Ref) {
			defer wg.Done()
			p.runEntity(ctx, inv, decision, invContext, ent, sem, acc)
		}(ent)
	}
	wg.Wait()

	// Fill in fail-soft results for any pair that never completed
	for _, ent := range inv.Entities {
		for _, domain := range decision.AgentsToActivate {
			if !acc.has(ent.ID, domain) {
				acc.add(investigation.NewFailedResult(ent.ID, domain, "execution_deadline_exceeded"))
			}
		}
	}

	results := acc.all()
	p.logger.Info("execution pool drained",
		zap.String("investigation_id", inv.ID.String()),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)))

	return results
}

// runEntity executes every assigned agent for one entity: the non-risk
// agents concurrently, then the risk agent over their findings.
func (p *pool) runEntity(ctx context.Context, inv *investigation.Investigation, decision *orchestration.Decision, invContext map[string]interface{}, ent entity.Ref, sem chan struct{}, acc *accumulator) {
	runRisk := false
	var entityWG sync.WaitGroup

	for _, domain := range decision.AgentsToActivate {
		if domain == investigation.DomainRisk {
			runRisk = true
			continue
		}

		entityWG.Add(1)
		go func(domain investigation.AgentDomain) {
			defer entityWG.Done()
			acc.add(p.runPair(ctx, inv, decision, invContext, ent, domain, nil, sem))
		}(domain)
	}

	// Barrier: risk synthesis consumes the other agents' findings
	entityWG.Wait()

	if runRisk {
		prior := acc.findingsFor(ent.ID)
		acc.add(p.runPair(ctx, inv, decision, invContext, ent, investigation.DomainRisk, prior, sem))
	}
}

// runPair executes one (entity, agent_domain) pair through the
// coordinator, bounded by the worker semaphore.
func (p *pool) runPair(ctx context.Context, inv *investigation.Investigation, decision *orchestration.Decision, invContext map[string]interface{}, ent entity.Ref, domain investigation.AgentDomain, prior []investigation.Finding, sem chan struct{}) *investigation.AgentResult {
	if ctx.Err() != nil {
		return investigation.NewFailedResult(ent.ID, domain, "investigation_cancelled")
	}
	select {
	case <-ctx.Done():
		return investigation.NewFailedResult(ent.ID, domain, "investigation_cancelled")
	case sem <- struct{}{}:
	}
	defer func() { <-sem }()

	agent, err := p.registry.Get(domain)
	if err != nil {
		return investigation.NewFailedResult(ent.ID, domain, "agent_not_registered")
	}

	input := agents.ExecutionInput{
		InvestigationID: inv.ID,
		Entity:          ent,
		Context:         invContext,
		PriorFindings:   prior,
	}
	return p.coordinator.Invoke(ctx, agent, input, decision)
}
