package entity

import (
	"fmt"
	"strings"
)

// Relationship is a typed, weighted edge between two entity references.
// Strength and Confidence both live in [0,1]; their product drives
// cross-entity risk propagation during consolidation.
type Relationship struct {
	SourceID      string           `json:"source_id"`
	TargetID      string           `json:"target_id"`
	Type          RelationshipType `json:"type"`
	Strength      float64          `json:"strength"`
	Confidence    float64          `json:"confidence"`
	Bidirectional bool             `json:"bidirectional"`
}

type RelationshipType string

const (
	RelationshipOwns         RelationshipType = "owns"
	RelationshipUses         RelationshipType = "uses"
	RelationshipTransacts    RelationshipType = "transacts_with"
	RelationshipSharesDevice RelationshipType = "shares_device"
	RelationshipSharesIP     RelationshipType = "shares_ip"
	RelationshipRelatedTo    RelationshipType = "related_to"
)

// NewRelationship creates a validated relationship between two entity ids
func NewRelationship(sourceID, targetID string, relType RelationshipType, strength, confidence float64, bidirectional bool) (Relationship, error) {
	sourceID = strings.TrimSpace(sourceID)
	targetID = strings.TrimSpace(targetID)

	if sourceID == "" || targetID == "" {
		return Relationship{}, fmt.Errorf("relationship endpoints cannot be empty")
	}
	if sourceID == targetID {
		return Relationship{}, fmt.Errorf("relationship cannot reference the same entity twice: %s", sourceID)
	}
	if strength < 0 || strength > 1 {
		return Relationship{}, fmt.Errorf("relationship strength must be in [0,1], got %f", strength)
	}
	if confidence < 0 || confidence > 1 {
		return Relationship{}, fmt.Errorf("relationship confidence must be in [0,1], got %f", confidence)
	}
	if relType == "" {
		relType = RelationshipRelatedTo
	}

	return Relationship{
		SourceID:      sourceID,
		TargetID:      targetID,
		Type:          relType,
		Strength:      strength,
		Confidence:    confidence,
		Bidirectional: bidirectional,
	}, nil
}

// Weight is the effective propagation weight of the edge
func (r Relationship) Weight() float64 {
	return r.Strength * r.Confidence
}

// References reports whether the relationship touches the given entity id
func (r Relationship) References(entityID string) bool {
	return r.SourceID == entityID || r.TargetID == entityID
}
