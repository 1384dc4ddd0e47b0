package consolidation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
)

func success(entityID string, domain investigation.AgentDomain, risk, confidence float64) *investigation.AgentResult {
	return investigation.NewSuccessResult(entityID, domain, risk, confidence, nil)
}

func failure(entityID string, domain investigation.AgentDomain) *investigation.AgentResult {
	return investigation.NewFailedResult(entityID, domain, "downstream unavailable")
}

func decision() *orchestration.Decision {
	return &orchestration.Decision{Strategy: orchestration.StrategyComprehensive}
}

func TestService_Consolidate_WeightedAverage(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		success("user1", investigation.DomainNetwork, 0.8, 1.0),
		success("user1", investigation.DomainLogs, 0.4, 0.5),
	}

	assessment, err := s.Consolidate(decision(), results, nil)

	require.NoError(t, err)
	// (0.8*1.0 + 0.4*0.5) / (1.0 + 0.5) = 1.0 / 1.5
	assert.InDelta(t, 0.6667, assessment.OverallRiskScore, 0.001)
	assert.Equal(t, 2, assessment.SuccessfulAgents)
	assert.Equal(t, 0, assessment.FailedAgents)
	assert.False(t, assessment.Degraded)
}

func TestService_Consolidate_FailedResultsExcludedFromAverage(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		success("user1", investigation.DomainNetwork, 0.5, 1.0),
		failure("user1", investigation.DomainDevice),
	}

	assessment, err := s.Consolidate(decision(), results, nil)

	require.NoError(t, err)
	assert.InDelta(t, 0.5, assessment.OverallRiskScore, 0.001)
	assert.Equal(t, 1, assessment.SuccessfulAgents)
	assert.Equal(t, 1, assessment.FailedAgents)
	assert.True(t, assessment.Degraded)
}

func TestService_Consolidate_PermutationInvariant(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		success("user1", investigation.DomainNetwork, 0.9, 0.7),
		success("user1", investigation.DomainDevice, 0.3, 0.9),
		success("user2", investigation.DomainNetwork, 0.6, 0.4),
		success("user2", investigation.DomainLogs, 0.2, 1.0),
		failure("user2", investigation.DomainLocation),
	}

	baseline, err := s.Consolidate(decision(), results, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]*investigation.AgentResult, len(results))
		copy(shuffled, results)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assessment, err := s.Consolidate(decision(), shuffled, nil)
		require.NoError(t, err)
		assert.InDelta(t, baseline.OverallRiskScore, assessment.OverallRiskScore, 1e-9)
		assert.Equal(t, baseline.PerEntityScores, assessment.PerEntityScores)
	}
}

func TestService_Consolidate_ZeroSuccessesFails(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		failure("user1", investigation.DomainNetwork),
		failure("user1", investigation.DomainDevice),
	}

	_, err := s.Consolidate(decision(), results, nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBusiness))
}

func TestService_Consolidate_FailureErrorsAreIndependent(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	_, errA := s.Consolidate(decision(), []*investigation.AgentResult{
		failure("user1", investigation.DomainNetwork),
	}, nil)
	_, errB := s.Consolidate(decision(), []*investigation.AgentResult{
		failure("user1", investigation.DomainNetwork),
		failure("user1", investigation.DomainDevice),
		failure("user1", investigation.DomainLogs),
	}, nil)

	require.ErrorIs(t, errA, errors.ErrNoSuccessfulAgents)
	require.ErrorIs(t, errB, errors.ErrNoSuccessfulAgents)

	var appA, appB *errors.AppError
	require.ErrorAs(t, errA, &appA)
	require.ErrorAs(t, errB, &appB)

	// Each failed consolidation carries its own details; the error from
	// the first call must not change when a later one fails too.
	assert.NotSame(t, appA, appB)
	assert.Equal(t, 1, appA.Details["failed_agents"])
	assert.Equal(t, 3, appB.Details["failed_agents"])
	assert.Nil(t, errors.ErrNoSuccessfulAgents.Details)
}

func TestService_Consolidate_FindingsDedupedRankedCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFindings = 3
	s := NewService(cfg, zap.NewNop())

	shared := investigation.Finding{Type: "vpn", Description: "VPN detected", Severity: investigation.SeverityMedium, Score: 0.5, EntityID: "user1"}
	results := []*investigation.AgentResult{
		investigation.NewSuccessResult("user1", investigation.DomainNetwork, 0.5, 0.8, []investigation.Finding{
			shared,
			{Type: "anomaly", Description: "Spike", Severity: investigation.SeverityCritical, Score: 0.9, EntityID: "user1"},
		}),
		investigation.NewSuccessResult("user1", investigation.DomainRisk, 0.5, 0.8, []investigation.Finding{
			shared, // duplicate, dropped
			{Type: "probe", Description: "Port scan", Severity: investigation.SeverityHigh, Score: 0.7, EntityID: "user1"},
			{Type: "note", Description: "Baseline", Severity: investigation.SeverityInfo, Score: 0.1, EntityID: "user1"},
		}),
	}

	assessment, err := s.Consolidate(decision(), results, nil)

	require.NoError(t, err)
	require.Len(t, assessment.Findings, 3)
	assert.Equal(t, investigation.SeverityCritical, assessment.Findings[0].Severity)
	assert.Equal(t, investigation.SeverityHigh, assessment.Findings[1].Severity)
	assert.Equal(t, investigation.SeverityMedium, assessment.Findings[2].Severity)
}

func TestService_Consolidate_RelationshipPropagation(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		success("user1", investigation.DomainNetwork, 0.9, 1.0),
		success("tx1", investigation.DomainNetwork, 0.1, 1.0),
	}

	rel, err := entity.NewRelationship("user1", "tx1", entity.RelationshipTransacts, 0.8, 0.9, false)
	require.NoError(t, err)

	assessment, err := s.Consolidate(decision(), results, []entity.Relationship{rel})

	require.NoError(t, err)

	// 0.9 * 0.3 * 0.8 = 0.216 propagated onto the lower endpoint
	assert.InDelta(t, 0.316, assessment.PerEntityScores["tx1"], 0.001)
	assert.InDelta(t, 0.9, assessment.PerEntityScores["user1"], 0.001)

	require.Len(t, assessment.RelationshipInsights, 1)
	insight := assessment.RelationshipInsights[0]
	assert.Equal(t, "user1", insight.SourceID)
	assert.Equal(t, "tx1", insight.TargetID)
	assert.InDelta(t, 0.216, insight.PropagatedRisk, 0.001)

	require.NotNil(t, assessment.CrossEntityAnalysis)
	assert.Equal(t, 1, assessment.CrossEntityAnalysis.EntityInteractions)

	// Overall score stays the plain weighted average
	assert.InDelta(t, 0.5, assessment.OverallRiskScore, 0.001)
}

func TestService_Consolidate_WeakRelationshipIgnored(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		success("user1", investigation.DomainNetwork, 0.9, 1.0),
		success("tx1", investigation.DomainNetwork, 0.1, 1.0),
	}

	// strength x confidence = 0.2, below the 0.5 threshold
	rel, err := entity.NewRelationship("user1", "tx1", entity.RelationshipRelatedTo, 0.5, 0.4, false)
	require.NoError(t, err)

	assessment, err := s.Consolidate(decision(), results, []entity.Relationship{rel})

	require.NoError(t, err)
	assert.InDelta(t, 0.1, assessment.PerEntityScores["tx1"], 0.001)
	assert.Empty(t, assessment.RelationshipInsights)
}

func TestService_Consolidate_AnomalyClusters(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	results := []*investigation.AgentResult{
		success("user1", investigation.DomainNetwork, 0.8, 1.0),
		success("device1", investigation.DomainNetwork, 0.7, 1.0),
		success("tx1", investigation.DomainNetwork, 0.75, 1.0),
		success("bystander", investigation.DomainNetwork, 0.1, 1.0),
	}

	relAB, err := entity.NewRelationship("user1", "device1", entity.RelationshipUses, 0.9, 0.9, true)
	require.NoError(t, err)
	relBC, err := entity.NewRelationship("device1", "tx1", entity.RelationshipRelatedTo, 0.85, 0.9, false)
	require.NoError(t, err)

	assessment, err := s.Consolidate(decision(), results, []entity.Relationship{relAB, relBC})

	require.NoError(t, err)
	require.NotNil(t, assessment.CrossEntityAnalysis)
	require.Len(t, assessment.CrossEntityAnalysis.AnomalyClusters, 1)
	assert.ElementsMatch(t, []string{"user1", "device1", "tx1"}, assessment.CrossEntityAnalysis.AnomalyClusters[0])
	assert.Len(t, assessment.CrossEntityAnalysis.RiskCorrelations, 2)
}

func TestService_Consolidate_RiskLevelBuckets(t *testing.T) {
	s := NewService(DefaultConfig(), zap.NewNop())

	tests := []struct {
		score float64
		level string
	}{
		{0.1, "low"},
		{0.45, "medium"},
		{0.7, "high"},
		{0.9, "critical"},
	}

	for _, tt := range tests {
		assessment, err := s.Consolidate(decision(), []*investigation.AgentResult{
			success("user1", investigation.DomainNetwork, tt.score, 1.0),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.level, assessment.RiskLevel)
	}
}
