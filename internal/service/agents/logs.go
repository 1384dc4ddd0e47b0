package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// logsAgent analyzes activity logs: authentication failures, access
// pattern irregularities, privilege escalations.
type logsAgent struct {
	logger *zap.Logger
}

// NewLogsAgent creates the logs domain agent
func NewLogsAgent(logger *zap.Logger) Agent {
	return &logsAgent{logger: logger.Named("agent.logs")}
}

func (a *logsAgent) Domain() investigation.AgentDomain {
	return investigation.DomainLogs
}

func (a *logsAgent) Execute(ctx context.Context, input ExecutionInput) (*investigation.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []investigation.Finding
	score := 0.0

	if n := intSignal(input.Context, "failed_logins"); n > 0 {
		sev := investigation.SeverityLow
		s := 0.3
		if n >= 10 {
			sev = investigation.SeverityHigh
			s = 0.8
		} else if n >= 5 {
			sev = investigation.SeverityMedium
			s = 0.5
		}
		findings = append(findings, investigation.Finding{
			Type:        "failed_authentication",
			Description: fmt.Sprintf("%d failed login attempts in the analysis window", n),
			Severity:    sev,
			Score:       s,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, s)
	}

	if n := intSignal(input.Context, "irregularities"); n > 0 {
		s := 0.2 + 0.1*float64(n)
		if s > 0.85 {
			s = 0.85
		}
		findings = append(findings, investigation.Finding{
			Type:        "access_irregularity",
			Description: fmt.Sprintf("%d access pattern irregularities detected", n),
			Severity:    investigation.SeverityMedium,
			Score:       s,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, s)
	}

	if boolSignal(input.Context, "privilege_escalation") {
		findings = append(findings, investigation.Finding{
			Type:        "privilege_escalation",
			Description: "Privilege escalation recorded in activity logs",
			Severity:    investigation.SeverityCritical,
			Score:       0.95,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.95)
	}

	a.logger.Debug("log analysis complete",
		zap.String("entity_id", input.Entity.ID),
		zap.Float64("risk_score", score),
		zap.Int("findings", len(findings)))

	return investigation.NewSuccessResult(input.Entity.ID, a.Domain(), score, confidenceFor(len(findings)), findings), nil
}
