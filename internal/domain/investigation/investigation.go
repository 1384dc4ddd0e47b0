package investigation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
)

// Investigation is the aggregate root for one multi-entity investigation.
// It owns the phase state machine and a version counter used for
// optimistic concurrency at the persistence boundary.
type Investigation struct {
	ID            uuid.UUID             `json:"id"`
	Entities      []entity.Ref          `json:"entities"`
	Relationships []entity.Relationship `json:"relationships"`
	Query         entity.BooleanQuery   `json:"query"`
	Scope         []AgentDomain         `json:"scope,omitempty"`
	Priority      Priority              `json:"priority"`

	// Context carries the submission's loosely typed signal map; the
	// decision engine and agents read it, nothing writes it.
	Context map[string]interface{} `json:"context,omitempty"`

	// SubmittedBy identifies the API client that opened the
	// investigation, keyed the same way as the rate-limit window.
	SubmittedBy string `json:"submitted_by,omitempty"`

	Phase         Phase                  `json:"phase"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	Assessment    *ConsolidatedAssessment `json:"assessment,omitempty"`

	// Version increments on every persisted mutation
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending investigation over the given entities
func New(entities []entity.Ref, relationships []entity.Relationship, query entity.BooleanQuery, scope []AgentDomain, priority Priority) (*Investigation, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("investigation requires at least one entity")
	}

	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[e.ID] = true
	}
	for _, rel := range relationships {
		if !known[rel.SourceID] || !known[rel.TargetID] {
			return nil, fmt.Errorf("relationship %s -> %s references an entity outside the request", rel.SourceID, rel.TargetID)
		}
	}

	now := time.Now()
	return &Investigation{
		ID:            uuid.New(),
		Entities:      entities,
		Relationships: relationships,
		Query:         query,
		Scope:         scope,
		Priority:      priority,
		Phase:         PhasePending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Transition moves the investigation to the next phase, enforcing the
// legal transition table. Only PhaseValidating may fail before any
// execution has started.
func (inv *Investigation) Transition(next Phase) error {
	if !inv.Phase.CanTransitionTo(next) {
		return fmt.Errorf("illegal phase transition: %s -> %s", inv.Phase, next)
	}
	inv.Phase = next
	inv.UpdatedAt = time.Now()
	return nil
}

// Fail marks the investigation as terminally failed with a reason
func (inv *Investigation) Fail(reason string) error {
	if err := inv.Transition(PhaseFailed); err != nil {
		return err
	}
	inv.FailureReason = reason
	return nil
}

// Complete records the final assessment and moves to the matching
// terminal phase based on the assessment's degradation flag.
func (inv *Investigation) Complete(assessment *ConsolidatedAssessment) error {
	if assessment == nil {
		return fmt.Errorf("cannot complete without an assessment")
	}

	terminal := PhaseCompleted
	if assessment.Degraded {
		terminal = PhaseCompletedWithDegradation
	}
	if err := inv.Transition(terminal); err != nil {
		return err
	}
	inv.Assessment = assessment
	return nil
}

// IsTerminal reports whether the investigation has reached a final phase
func (inv *Investigation) IsTerminal() bool {
	return inv.Phase.IsTerminal()
}

// EntityIDs returns the ids of all investigated entities
func (inv *Investigation) EntityIDs() []string {
	ids := make([]string, 0, len(inv.Entities))
	for _, e := range inv.Entities {
		ids = append(ids, e.ID)
	}
	return ids
}

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}
