package agents

import (
	"context"

	"github.com/google/uuid"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// ExecutionInput carries everything an agent needs for one invocation
type ExecutionInput struct {
	InvestigationID uuid.UUID
	Entity          entity.Ref
	Context         map[string]interface{}

	// PriorFindings is populated for the risk agent, which consumes the
	// findings of every other agent that ran against the same entity.
	PriorFindings []investigation.Finding
}

// Agent is one domain investigator. Implementations may call arbitrary
// external services; the execution coordinator treats every call as an
// opaque, possibly-failing operation.
type Agent interface {
	// Domain returns the investigative specialty this agent covers
	Domain() investigation.AgentDomain
	// Execute runs the agent against one entity
	Execute(ctx context.Context, input ExecutionInput) (*investigation.AgentResult, error)
}

// ServiceHealth reports whether the service backing an agent domain is
// reachable; the decision engine excludes agents backed by known-down
// services.
type ServiceHealth interface {
	IsHealthy(domain investigation.AgentDomain) bool
}
