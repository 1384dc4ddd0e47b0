package orchestration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/agents"
)

func testEntities(n int) []entity.Ref {
	refs := make([]entity.Ref, 0, n)
	types := []entity.Type{entity.TypeUser, entity.TypeTransaction, entity.TypeDevice, entity.TypeIPAddress}
	for i := 0; i < n; i++ {
		refs = append(refs, entity.Ref{ID: uuid.NewString(), Type: types[i%len(types)]})
	}
	return refs
}

func TestEngine_Decide_StrategySelection(t *testing.T) {
	tests := []struct {
		name         string
		entities     []entity.Ref
		invContext   map[string]interface{}
		wantStrategy Strategy
		wantRisk     RiskLevel
	}{
		{
			name:     "high risk forces comprehensive",
			entities: testEntities(1),
			invContext: map[string]interface{}{
				"fraud_indicators": []string{"stolen_card", "synthetic_identity", "mule_account"},
			},
			wantStrategy: StrategyComprehensive,
			wantRisk:     RiskHigh,
		},
		{
			name:         "multiple entities force comprehensive",
			entities:     testEntities(3),
			invContext:   nil,
			wantStrategy: StrategyComprehensive,
			wantRisk:     RiskNone,
		},
		{
			name:     "medium risk single entity runs sequential",
			entities: testEntities(1),
			invContext: map[string]interface{}{
				"irregularities": 3,
			},
			wantStrategy: StrategySequential,
			wantRisk:     RiskMedium,
		},
		{
			name:     "low risk single entity runs parallel",
			entities: testEntities(1),
			invContext: map[string]interface{}{
				"irregularities": 1,
			},
			wantStrategy: StrategyParallel,
			wantRisk:     RiskLow,
		},
		{
			name:         "no signals single entity runs targeted",
			entities:     testEntities(1),
			invContext:   nil,
			wantStrategy: StrategyTargeted,
			wantRisk:     RiskNone,
		},
		{
			name:     "critical risk from stacked signals",
			entities: testEntities(1),
			invContext: map[string]interface{}{
				"fraud_indicators":  []string{"stolen_card", "synthetic_identity"},
				"threat_indicators": []string{"botnet"},
				"alert":             true,
				"irregularities":    2,
			},
			wantStrategy: StrategyComprehensive,
			wantRisk:     RiskCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(agents.NewStaticHealth(), zap.NewNop())

			decision, err := e.Decide(context.Background(), uuid.New(), tt.entities, tt.invContext, nil)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStrategy, decision.Strategy)
			assert.Equal(t, tt.wantRisk, decision.RiskAssessment)
			assert.False(t, decision.Fallback)
		})
	}
}

func TestEngine_Decide_ComprehensiveActivatesAllDomains(t *testing.T) {
	e := NewEngine(agents.NewStaticHealth(), zap.NewNop())

	decision, err := e.Decide(context.Background(), uuid.New(), testEntities(3), nil, nil)

	require.NoError(t, err)
	assert.ElementsMatch(t, investigation.AllDomains(), decision.AgentsToActivate)
}

func TestEngine_Decide_RiskAgentAlwaysLast(t *testing.T) {
	e := NewEngine(agents.NewStaticHealth(), zap.NewNop())

	decision, err := e.Decide(context.Background(), uuid.New(), testEntities(3), nil, nil)

	require.NoError(t, err)
	require.NotEmpty(t, decision.ExecutionOrder)
	assert.Equal(t, investigation.DomainRisk, decision.ExecutionOrder[len(decision.ExecutionOrder)-1])
	for _, d := range decision.ExecutionOrder[:len(decision.ExecutionOrder)-1] {
		assert.NotEqual(t, investigation.DomainRisk, d)
	}
}

func TestEngine_Decide_UnhealthyServicesExcluded(t *testing.T) {
	health := agents.NewStaticHealth()
	health.SetHealthy(investigation.DomainLocation, false)
	e := NewEngine(health, zap.NewNop())

	decision, err := e.Decide(context.Background(), uuid.New(), testEntities(3), nil, nil)

	require.NoError(t, err)
	assert.NotContains(t, decision.AgentsToActivate, investigation.DomainLocation)
	assert.Contains(t, decision.AgentsToActivate, investigation.DomainNetwork)
}

func TestEngine_Decide_ScopeNarrowsAgents(t *testing.T) {
	e := NewEngine(agents.NewStaticHealth(), zap.NewNop())

	scope := []investigation.AgentDomain{investigation.DomainNetwork, investigation.DomainLogs}
	decision, err := e.Decide(context.Background(), uuid.New(), testEntities(2), nil, scope)

	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]investigation.AgentDomain{investigation.DomainNetwork, investigation.DomainLogs, investigation.DomainRisk},
		decision.AgentsToActivate)
}

func TestEngine_Decide_BulletproofRequirementsScaleWithRisk(t *testing.T) {
	e := NewEngine(agents.NewStaticHealth(), zap.NewNop())

	highRisk, err := e.Decide(context.Background(), uuid.New(), testEntities(1), map[string]interface{}{
		"fraud_indicators": []string{"a", "b", "c"},
	}, nil)
	require.NoError(t, err)
	assert.True(t, highRisk.Requires(RequirementCircuitBreaker))
	assert.True(t, highRisk.Requires(RequirementRetryLogic))
	assert.True(t, highRisk.Requires(RequirementFailSoft))

	noRisk, err := e.Decide(context.Background(), uuid.New(), testEntities(1), nil, nil)
	require.NoError(t, err)
	assert.True(t, noRisk.Requires(RequirementFailSoft))
	assert.False(t, noRisk.Requires(RequirementRetryLogic))
}

func TestEngine_Decide_ErrorWhenNoEntities(t *testing.T) {
	e := NewEngine(agents.NewStaticHealth(), zap.NewNop())

	_, err := e.Decide(context.Background(), uuid.New(), nil, nil, nil)

	assert.Error(t, err)
}

func TestEngine_Decide_ErrorWhenAllServicesDown(t *testing.T) {
	health := agents.NewStaticHealth()
	for _, d := range investigation.AllDomains() {
		health.SetHealthy(d, false)
	}
	e := NewEngine(health, zap.NewNop())

	_, err := e.Decide(context.Background(), uuid.New(), testEntities(2), nil, nil)

	assert.Error(t, err)
}

func TestFallbackDecision(t *testing.T) {
	fallback := FallbackDecision()

	assert.Equal(t, StrategyComprehensive, fallback.Strategy)
	assert.ElementsMatch(t, investigation.AllDomains(), fallback.AgentsToActivate)
	assert.Equal(t, 0.7, fallback.ConfidenceScore)
	assert.True(t, fallback.Fallback)
	assert.Equal(t, investigation.DomainRisk, fallback.ExecutionOrder[len(fallback.ExecutionOrder)-1])
	assert.True(t, fallback.Requires(RequirementCircuitBreaker))
	assert.True(t, fallback.Requires(RequirementRetryLogic))
	assert.True(t, fallback.Requires(RequirementFailSoft))
}
