package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// locationAgent analyzes geolocation signals: impossible travel, high
// risk jurisdictions, location spoofing.
type locationAgent struct {
	logger *zap.Logger
}

// NewLocationAgent creates the location domain agent
func NewLocationAgent(logger *zap.Logger) Agent {
	return &locationAgent{logger: logger.Named("agent.location")}
}

func (a *locationAgent) Domain() investigation.AgentDomain {
	return investigation.DomainLocation
}

func (a *locationAgent) Execute(ctx context.Context, input ExecutionInput) (*investigation.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []investigation.Finding
	score := 0.0

	if boolSignal(input.Context, "impossible_travel") {
		findings = append(findings, investigation.Finding{
			Type:        "impossible_travel",
			Description: "Consecutive activity from locations unreachable in the elapsed time",
			Severity:    investigation.SeverityCritical,
			Score:       0.9,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.9)
	}

	if countries := stringSlice(input.Context, "high_risk_countries"); len(countries) > 0 {
		findings = append(findings, investigation.Finding{
			Type:        "high_risk_jurisdiction",
			Description: fmt.Sprintf("Activity observed from %d high-risk jurisdictions", len(countries)),
			Severity:    investigation.SeverityMedium,
			Score:       0.6,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.6)
	}

	if boolSignal(input.Context, "location_spoofing") {
		findings = append(findings, investigation.Finding{
			Type:        "location_spoofing",
			Description: "Reported location inconsistent with network-derived position",
			Severity:    investigation.SeverityHigh,
			Score:       0.7,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.7)
	}

	a.logger.Debug("location analysis complete",
		zap.String("entity_id", input.Entity.ID),
		zap.Float64("risk_score", score),
		zap.Int("findings", len(findings)))

	return investigation.NewSuccessResult(input.Entity.ID, a.Domain(), score, confidenceFor(len(findings)), findings), nil
}
