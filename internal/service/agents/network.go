package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// networkAgent analyzes network-level signals: suspicious addresses,
// anonymization infrastructure, connection irregularities.
type networkAgent struct {
	logger *zap.Logger
}

// NewNetworkAgent creates the network domain agent
func NewNetworkAgent(logger *zap.Logger) Agent {
	return &networkAgent{logger: logger.Named("agent.network")}
}

func (a *networkAgent) Domain() investigation.AgentDomain {
	return investigation.DomainNetwork
}

func (a *networkAgent) Execute(ctx context.Context, input ExecutionInput) (*investigation.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []investigation.Finding
	score := 0.0

	if ips := stringSlice(input.Context, "suspicious_ips"); len(ips) > 0 {
		findings = append(findings, investigation.Finding{
			Type:        "suspicious_ip",
			Description: fmt.Sprintf("Entity associated with %d suspicious IP addresses", len(ips)),
			Severity:    investigation.SeverityHigh,
			Score:       0.7,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.7)
	}

	if boolSignal(input.Context, "vpn_detected") {
		findings = append(findings, investigation.Finding{
			Type:        "anonymized_connection",
			Description: "Connections routed through VPN or anonymization infrastructure",
			Severity:    investigation.SeverityMedium,
			Score:       0.5,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.5)
	}

	if input.Entity.Type == entity.TypeIPAddress {
		findings = append(findings, investigation.Finding{
			Type:        "address_profile",
			Description: fmt.Sprintf("Reputation profile built for address %s", input.Entity.ID),
			Severity:    investigation.SeverityInfo,
			Score:       0.1,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.1)
	}

	if n := intSignal(input.Context, "connection_anomalies"); n > 0 {
		sev := investigation.SeverityLow
		s := 0.3
		if n >= 5 {
			sev = investigation.SeverityHigh
			s = 0.8
		}
		findings = append(findings, investigation.Finding{
			Type:        "connection_anomaly",
			Description: fmt.Sprintf("%d connection anomalies observed", n),
			Severity:    sev,
			Score:       s,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, s)
	}

	a.logger.Debug("network analysis complete",
		zap.String("entity_id", input.Entity.ID),
		zap.Float64("risk_score", score),
		zap.Int("findings", len(findings)))

	return investigation.NewSuccessResult(input.Entity.ID, a.Domain(), score, confidenceFor(len(findings)), findings), nil
}
