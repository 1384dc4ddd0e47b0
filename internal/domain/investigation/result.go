package investigation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentDomain names one investigative specialty. The set is closed:
// implementations are looked up through a registry built at startup.
type AgentDomain string

const (
	DomainNetwork  AgentDomain = "network"
	DomainDevice   AgentDomain = "device"
	DomainLocation AgentDomain = "location"
	DomainLogs     AgentDomain = "logs"
	DomainRisk     AgentDomain = "risk"
)

// AllDomains returns every known agent domain. The risk domain consumes
// the findings of the others and is always scheduled last.
func AllDomains() []AgentDomain {
	return []AgentDomain{DomainNetwork, DomainDevice, DomainLocation, DomainLogs, DomainRisk}
}

// ParseDomain converts a wire-format domain name into an AgentDomain
func ParseDomain(s string) (AgentDomain, error) {
	d := AgentDomain(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DomainNetwork, DomainDevice, DomainLocation, DomainLogs, DomainRisk:
		return d, nil
	default:
		return "", fmt.Errorf("unknown agent domain: %q", s)
	}
}

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// AgentResult is the output of one agent against one entity. Exactly one
// result exists per (entity, agent_domain) pair within an investigation;
// results are immutable once written.
type AgentResult struct {
	ID          uuid.UUID    `json:"id"`
	EntityID    string       `json:"entity_id"`
	AgentDomain AgentDomain  `json:"agent_domain"`
	Status      ResultStatus `json:"status"`
	RiskScore   float64      `json:"risk_score"`
	Confidence  float64      `json:"confidence"`
	Findings    []Finding    `json:"findings,omitempty"`
	Error       string       `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time    `json:"completed_at"`
}

// NewSuccessResult builds a successful agent result with scores clamped to [0,1]
func NewSuccessResult(entityID string, domain AgentDomain, riskScore, confidence float64, findings []Finding) *AgentResult {
	return &AgentResult{
		ID:          uuid.New(),
		EntityID:    entityID,
		AgentDomain: domain,
		Status:      ResultSuccess,
		RiskScore:   clamp01(riskScore),
		Confidence:  clamp01(confidence),
		Findings:    findings,
		CompletedAt: time.Now(),
	}
}

// NewFailedResult builds a fail-soft result carrying the failure reason
func NewFailedResult(entityID string, domain AgentDomain, reason string) *AgentResult {
	return &AgentResult{
		ID:          uuid.New(),
		EntityID:    entityID,
		AgentDomain: domain,
		Status:      ResultFailed,
		Error:       reason,
		CompletedAt: time.Now(),
	}
}

// Succeeded reports whether the agent completed without failure
func (r *AgentResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

// Key identifies the (entity, agent_domain) pair this result belongs to
func (r *AgentResult) Key() string {
	return r.EntityID + "/" + string(r.AgentDomain)
}

// Finding is one observation produced by an agent
type Finding struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Score       float64  `json:"score"`
	EntityID    string   `json:"entity_id,omitempty"`
}

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
