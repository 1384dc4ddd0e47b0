package orchestration

import (
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// Strategy is the execution strategy for an investigation
type Strategy int

const (
	StrategyComprehensive Strategy = iota
	StrategySequential
	StrategyParallel
	StrategyTargeted
)

func (s Strategy) String() string {
	switch s {
	case StrategyComprehensive:
		return "comprehensive"
	case StrategySequential:
		return "sequential"
	case StrategyParallel:
		return "parallel"
	case StrategyTargeted:
		return "targeted"
	default:
		return "unknown"
	}
}

// RiskLevel is the pre-execution risk assessment derived from context signals
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Requirement names one bulletproof-coordination mechanism the executor
// must apply.
type Requirement string

const (
	RequirementCircuitBreaker Requirement = "circuit_breaker"
	RequirementRetryLogic     Requirement = "retry_logic"
	RequirementFailSoft       Requirement = "fail_soft"
)

// Decision is the execution plan produced once per investigation
type Decision struct {
	Strategy                Strategy                      `json:"strategy"`
	AgentsToActivate        []investigation.AgentDomain   `json:"agents_to_activate"`
	ExecutionOrder          []investigation.AgentDomain   `json:"execution_order"`
	ConfidenceScore         float64                       `json:"confidence_score"`
	RiskAssessment          RiskLevel                     `json:"risk_assessment"`
	BulletproofRequirements []Requirement                 `json:"bulletproof_requirements"`

	// Fallback marks a static fallback decision substituted after a
	// decision-making failure.
	Fallback bool `json:"fallback,omitempty"`
}

// Requires reports whether the plan demands a given mechanism
func (d *Decision) Requires(req Requirement) bool {
	for _, r := range d.BulletproofRequirements {
		if r == req {
			return true
		}
	}
	return false
}
