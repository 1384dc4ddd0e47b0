package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// deviceAgent analyzes device integrity: fingerprint drift, tampering,
// emulator usage.
type deviceAgent struct {
	logger *zap.Logger
}

// NewDeviceAgent creates the device domain agent
func NewDeviceAgent(logger *zap.Logger) Agent {
	return &deviceAgent{logger: logger.Named("agent.device")}
}

func (a *deviceAgent) Domain() investigation.AgentDomain {
	return investigation.DomainDevice
}

func (a *deviceAgent) Execute(ctx context.Context, input ExecutionInput) (*investigation.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []investigation.Finding
	score := 0.0

	if boolSignal(input.Context, "fingerprint_mismatch") {
		findings = append(findings, investigation.Finding{
			Type:        "fingerprint_mismatch",
			Description: "Device fingerprint does not match historical profile",
			Severity:    investigation.SeverityHigh,
			Score:       0.75,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.75)
	}

	if boolSignal(input.Context, "rooted_device") {
		findings = append(findings, investigation.Finding{
			Type:        "device_tampering",
			Description: "Device shows signs of rooting or jailbreaking",
			Severity:    investigation.SeverityMedium,
			Score:       0.55,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.55)
	}

	if boolSignal(input.Context, "emulator_detected") {
		findings = append(findings, investigation.Finding{
			Type:        "emulator",
			Description: "Activity originates from an emulated device",
			Severity:    investigation.SeverityHigh,
			Score:       0.8,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.8)
	}

	if n := intSignal(input.Context, "device_count"); n > 5 && input.Entity.Type == entity.TypeUser {
		findings = append(findings, investigation.Finding{
			Type:        "device_sprawl",
			Description: fmt.Sprintf("User active across %d distinct devices", n),
			Severity:    investigation.SeverityLow,
			Score:       0.35,
			EntityID:    input.Entity.ID,
		})
		score = maxScore(score, 0.35)
	}

	a.logger.Debug("device analysis complete",
		zap.String("entity_id", input.Entity.ID),
		zap.Float64("risk_score", score),
		zap.Int("findings", len(findings)))

	return investigation.NewSuccessResult(input.Entity.ID, a.Domain(), score, confidenceFor(len(findings)), findings), nil
}
