package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// riskAgent synthesizes the findings of every other agent into a final
// per-entity risk judgement. It is always scheduled after its peers.
type riskAgent struct {
	logger *zap.Logger
}

// NewRiskAgent creates the risk synthesis agent
func NewRiskAgent(logger *zap.Logger) Agent {
	return &riskAgent{logger: logger.Named("agent.risk")}
}

func (a *riskAgent) Domain() investigation.AgentDomain {
	return investigation.DomainRisk
}

// severityWeights maps finding severity to its contribution weight
var severityWeights = map[investigation.Severity]float64{
	investigation.SeverityInfo:     0.05,
	investigation.SeverityLow:      0.2,
	investigation.SeverityMedium:   0.5,
	investigation.SeverityHigh:     0.8,
	investigation.SeverityCritical: 1.0,
}

func (a *riskAgent) Execute(ctx context.Context, input ExecutionInput) (*investigation.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(input.PriorFindings) == 0 {
		// Nothing to synthesize; a clean slate is itself a low-confidence
		// low-risk judgement.
		return investigation.NewSuccessResult(input.Entity.ID, a.Domain(), 0.0, 0.4, nil), nil
	}

	var weightedSum, weightTotal float64
	highest := investigation.SeverityInfo

	for _, f := range input.PriorFindings {
		w := severityWeights[f.Severity]
		weightedSum += w * f.Score
		weightTotal += w
		if f.Severity > highest {
			highest = f.Severity
		}
	}

	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}

	// Corroboration across findings raises the synthesized score
	if len(input.PriorFindings) >= 3 {
		score = maxScore(score, score*1.2)
		if score > 1 {
			score = 1
		}
	}

	findings := []investigation.Finding{
		{
			Type:        "risk_synthesis",
			Description: fmt.Sprintf("Synthesized %d findings, highest severity %s", len(input.PriorFindings), highest),
			Severity:    highest,
			Score:       score,
			EntityID:    input.Entity.ID,
		},
	}

	a.logger.Debug("risk synthesis complete",
		zap.String("entity_id", input.Entity.ID),
		zap.Int("prior_findings", len(input.PriorFindings)),
		zap.Float64("risk_score", score))

	return investigation.NewSuccessResult(input.Entity.ID, a.Domain(), score, confidenceFor(len(input.PriorFindings)), findings), nil
}
