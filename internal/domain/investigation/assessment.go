package investigation

import "time"

// ConsolidatedAssessment is the terminal output of an investigation:
// one risk assessment merged from every per-agent, per-entity result,
// including cross-entity relationship propagation.
type ConsolidatedAssessment struct {
	OverallRiskScore float64            `json:"overall_risk_score"`
	PerEntityScores  map[string]float64 `json:"per_entity_scores"`
	RiskLevel        string             `json:"risk_level"`

	SuccessfulAgents int `json:"successful_agents"`
	FailedAgents     int `json:"failed_agents"`

	Findings             []Finding             `json:"findings,omitempty"`
	RelationshipInsights []RelationshipInsight `json:"relationship_insights,omitempty"`
	CrossEntityAnalysis  *CrossEntityAnalysis  `json:"cross_entity_analysis,omitempty"`

	// Degraded is set when at least one agent failed while others succeeded
	Degraded       bool      `json:"degraded"`
	ConsolidatedAt time.Time `json:"consolidated_at"`
}

// RelationshipInsight records one risk propagation along a relationship edge
type RelationshipInsight struct {
	SourceID         string  `json:"source_id"`
	TargetID         string  `json:"target_id"`
	RelationshipType string  `json:"relationship_type"`
	PropagatedRisk   float64 `json:"propagated_risk"`
	Description      string  `json:"description"`
}

// CrossEntityAnalysis summarizes how entity risks interact across the
// relationship graph.
type CrossEntityAnalysis struct {
	EntityInteractions int        `json:"entity_interactions"`
	RiskCorrelations   []string   `json:"risk_correlations,omitempty"`
	AnomalyClusters    [][]string `json:"anomaly_clusters,omitempty"`
}
