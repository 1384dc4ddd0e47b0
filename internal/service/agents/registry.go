package agents

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// Registry maps agent domains to implementations. The set of agents is
// closed at startup; lookups never allocate.
type Registry struct {
	agents map[investigation.AgentDomain]Agent
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewRegistry creates a registry over the given agents
func NewRegistry(logger *zap.Logger, agentList ...Agent) (*Registry, error) {
	r := &Registry{
		agents: make(map[investigation.AgentDomain]Agent, len(agentList)),
		logger: logger,
	}

	for _, a := range agentList {
		domain := a.Domain()
		if _, exists := r.agents[domain]; exists {
			return nil, fmt.Errorf("duplicate agent registered for domain %s", domain)
		}
		r.agents[domain] = a
		logger.Info("registered agent", zap.String("domain", string(domain)))
	}

	return r, nil
}

// Get returns the agent for a domain
func (r *Registry) Get(domain investigation.AgentDomain) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[domain]
	if !ok {
		return nil, fmt.Errorf("no agent registered for domain %s", domain)
	}
	return a, nil
}

// Domains returns every registered domain
func (r *Registry) Domains() []investigation.AgentDomain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]investigation.AgentDomain, 0, len(r.agents))
	for d := range r.agents {
		domains = append(domains, d)
	}
	return domains
}

// DefaultRegistry builds a registry with every built-in agent
func DefaultRegistry(logger *zap.Logger) (*Registry, error) {
	return NewRegistry(logger,
		NewNetworkAgent(logger),
		NewDeviceAgent(logger),
		NewLocationAgent(logger),
		NewLogsAgent(logger),
		NewRiskAgent(logger),
	)
}
