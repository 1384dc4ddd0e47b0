package rest

import (
	"time"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/engine"
)

// SubmitInvestigationRequest is the POST /api/v1/investigations payload
type SubmitInvestigationRequest struct {
	Entities      []EntityRequest       `json:"entities" validate:"required,min=1,dive"`
	Relationships []RelationshipRequest `json:"relationships,omitempty" validate:"dive"`
	BooleanLogic  string                `json:"boolean_logic" validate:"required"`
	Scope         []string              `json:"investigation_scope,omitempty"`
	Priority      string                `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Context       map[string]interface{} `json:"context,omitempty"`
}

// EntityRequest identifies one entity under investigation
type EntityRequest struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required"`
}

// RelationshipRequest declares a weighted link between two entities
type RelationshipRequest struct {
	SourceID      string  `json:"source_id" validate:"required"`
	TargetID      string  `json:"target_id" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	Strength      float64 `json:"strength" validate:"gte=0,lte=1"`
	Confidence    float64 `json:"confidence" validate:"gte=0,lte=1"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// SubmitInvestigationResponse is the accepted-submission reply
type SubmitInvestigationResponse struct {
	InvestigationID string    `json:"investigation_id"`
	Status          string    `json:"status"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// toSubmitRequest converts the wire payload into the service request
func (r *SubmitInvestigationRequest) toSubmitRequest() (engine.SubmitRequest, error) {
	entities := make([]entity.Ref, 0, len(r.Entities))
	for _, e := range r.Entities {
		typ, err := entity.ParseType(e.Type)
		if err != nil {
			return engine.SubmitRequest{}, err
		}
		entities = append(entities, entity.Ref{ID: e.ID, Type: typ})
	}

	relationships := make([]entity.Relationship, 0, len(r.Relationships))
	for _, rel := range r.Relationships {
		parsed, err := entity.NewRelationship(rel.SourceID, rel.TargetID, entity.RelationshipType(rel.Type), rel.Strength, rel.Confidence, rel.Bidirectional)
		if err != nil {
			return engine.SubmitRequest{}, err
		}
		relationships = append(relationships, parsed)
	}

	var scope []investigation.AgentDomain
	for _, d := range r.Scope {
		domain, err := investigation.ParseDomain(d)
		if err != nil {
			return engine.SubmitRequest{}, err
		}
		scope = append(scope, domain)
	}

	return engine.SubmitRequest{
		Entities:      entities,
		Relationships: relationships,
		BooleanLogic:  r.BooleanLogic,
		Scope:         scope,
		Priority:      parsePriority(r.Priority),
		Context:       r.Context,
	}, nil
}

func parsePriority(s string) investigation.Priority {
	switch s {
	case "low":
		return investigation.PriorityLow
	case "high":
		return investigation.PriorityHigh
	case "urgent":
		return investigation.PriorityUrgent
	default:
		return investigation.PriorityNormal
	}
}
