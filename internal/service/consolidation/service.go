package consolidation

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
)

// Consolidator merges per-agent results into one assessment with
// cross-entity relationship propagation. It returns an error only when
// no agent succeeded for any entity; that error fails the investigation.
type Consolidator interface {
	Consolidate(decision *orchestration.Decision, results []*investigation.AgentResult, relationships []entity.Relationship) (*investigation.ConsolidatedAssessment, error)
}

// Config tunes finding capping and relationship propagation
type Config struct {
	// Relationships whose strength x confidence exceeds this threshold
	// propagate risk between their endpoints
	PropagationThreshold float64 `json:"propagation_threshold"`
	// Fraction of the higher endpoint's score that propagates, before
	// strength decay
	PropagationFraction float64 `json:"propagation_fraction"`
	MaxFindings         int     `json:"max_findings"`
	// Entity scores at or above this value count as elevated for
	// correlation and cluster detection
	ElevatedScore float64 `json:"elevated_score"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		PropagationThreshold: 0.5,
		PropagationFraction:  0.3,
		MaxFindings:          20,
		ElevatedScore:        0.5,
	}
}

type service struct {
	config Config
	logger *zap.Logger
}

// NewService creates a result consolidator
func NewService(config Config, logger *zap.Logger) Consolidator {
	if config.MaxFindings <= 0 {
		config = DefaultConfig()
	}
	return &service{config: config, logger: logger.Named("consolidation")}
}

func (s *service) Consolidate(decision *orchestration.Decision, results []*investigation.AgentResult, relationships []entity.Relationship) (*investigation.ConsolidatedAssessment, error) {
	var successful, failed int
	for _, r := range results {
		if r.Succeeded() {
			successful++
		} else {
			failed++
		}
	}

	if successful == 0 {
		return nil, errors.ErrNoSuccessfulAgents.WithDetails(map[string]interface{}{
			"failed_agents": failed,
		})
	}

	assessment := &investigation.ConsolidatedAssessment{
		OverallRiskScore: weightedAverage(results),
		PerEntityScores:  perEntityScores(results),
		SuccessfulAgents: successful,
		FailedAgents:     failed,
		Findings:         s.consolidateFindings(results),
		Degraded:         failed > 0,
		ConsolidatedAt:   time.Now(),
	}

	if len(relationships) > 0 {
		s.propagateRelationships(assessment, relationships)
	}

	assessment.RiskLevel = riskLevel(assessment.OverallRiskScore)

	s.logger.Info("consolidation complete",
		zap.Float64("overall_risk", assessment.OverallRiskScore),
		zap.Int("successful_agents", successful),
		zap.Int("failed_agents", failed),
		zap.Bool("degraded", assessment.Degraded))

	return assessment, nil
}

// weightedAverage is the confidence-weighted mean of risk scores across
// successful results. Summation makes it invariant under permutation of
// the input.
func weightedAverage(results []*investigation.AgentResult) float64 {
	var weightedSum, confidenceSum float64
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		weightedSum += r.RiskScore * r.Confidence
		confidenceSum += r.Confidence
	}
	if confidenceSum == 0 {
		return 0
	}
	return weightedSum / confidenceSum
}

func perEntityScores(results []*investigation.AgentResult) map[string]float64 {
	type acc struct{ weighted, confidence float64 }
	byEntity := make(map[string]*acc)

	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		a, ok := byEntity[r.EntityID]
		if !ok {
			a = &acc{}
			byEntity[r.EntityID] = a
		}
		a.weighted += r.RiskScore * r.Confidence
		a.confidence += r.Confidence
	}

	scores := make(map[string]float64, len(byEntity))
	for id, a := range byEntity {
		if a.confidence > 0 {
			scores[id] = a.weighted / a.confidence
		}
	}
	return scores
}

// consolidateFindings deduplicates findings across agents, ranks them
// by severity then score, and caps the list.
func (s *service) consolidateFindings(results []*investigation.AgentResult) []investigation.Finding {
	seen := make(map[string]bool)
	var findings []investigation.Finding

	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		for _, f := range r.Findings {
			key := f.Type + "|" + f.EntityID + "|" + f.Description
			if seen[key] {
				continue
			}
			seen[key] = true
			findings = append(findings, f)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		return findings[i].Score > findings[j].Score
	})

	if len(findings) > s.config.MaxFindings {
		findings = findings[:s.config.MaxFindings]
	}
	return findings
}

// propagateRelationships pushes a strength-decayed fraction of the
// higher-risk endpoint's score onto the lower-risk endpoint for every
// relationship above the propagation threshold. Propagation adds to the
// per-entity scores; the overall weighted average is untouched.
func (s *service) propagateRelationships(assessment *investigation.ConsolidatedAssessment, relationships []entity.Relationship) {
	analysis := &investigation.CrossEntityAnalysis{}
	clusters := newClusterSet()

	for _, rel := range relationships {
		if rel.Weight() <= s.config.PropagationThreshold {
			continue
		}
		analysis.EntityInteractions++

		sourceScore, sourceOK := assessment.PerEntityScores[rel.SourceID]
		targetScore, targetOK := assessment.PerEntityScores[rel.TargetID]
		if !sourceOK || !targetOK {
			continue
		}

		higherID, higherScore := rel.SourceID, sourceScore
		lowerID, lowerScore := rel.TargetID, targetScore
		if targetScore > sourceScore {
			higherID, higherScore = rel.TargetID, targetScore
			lowerID, lowerScore = rel.SourceID, sourceScore
		}

		propagated := higherScore * s.config.PropagationFraction * rel.Strength
		if propagated <= 0 {
			continue
		}

		updated := lowerScore + propagated
		if updated > 1 {
			updated = 1
		}
		assessment.PerEntityScores[lowerID] = updated

		assessment.RelationshipInsights = append(assessment.RelationshipInsights, investigation.RelationshipInsight{
			SourceID:         higherID,
			TargetID:         lowerID,
			RelationshipType: string(rel.Type),
			PropagatedRisk:   propagated,
			Description: fmt.Sprintf("Risk propagated from %s to %s via %s relationship (strength %.2f)",
				higherID, lowerID, rel.Type, rel.Strength),
		})

		if sourceScore >= s.config.ElevatedScore && targetScore >= s.config.ElevatedScore {
			analysis.RiskCorrelations = append(analysis.RiskCorrelations,
				fmt.Sprintf("%s and %s show correlated elevated risk", rel.SourceID, rel.TargetID))
			clusters.union(rel.SourceID, rel.TargetID)
		}
	}

	analysis.AnomalyClusters = clusters.groups()
	assessment.CrossEntityAnalysis = analysis
}

func riskLevel(score float64) string {
	switch {
	case score >= 0.85:
		return "critical"
	case score >= 0.6:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}
