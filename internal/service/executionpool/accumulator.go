package executionpool

import (
	"sync"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// accumulator collects in-flight results keyed by (entity, agent_domain).
// Writes for a pair that already holds a result are dropped, preserving
// the one-result-per-pair invariant under concurrent writers.
type accumulator struct {
	mu      sync.Mutex
	results map[string]*investigation.AgentResult

	// onAdd, when set, observes each accepted result; used for
	// incremental progress reporting.
	onAdd func(*investigation.AgentResult)
}

func newAccumulator() *accumulator {
	return &accumulator{results: make(map[string]*investigation.AgentResult)}
}

func (a *accumulator) add(result *investigation.AgentResult) {
	if result == nil {
		return
	}
	a.mu.Lock()
	if _, exists := a.results[result.Key()]; exists {
		a.mu.Unlock()
		return
	}
	a.results[result.Key()] = result
	a.mu.Unlock()

	if a.onAdd != nil {
		a.onAdd(result)
	}
}

func (a *accumulator) has(entityID string, domain investigation.AgentDomain) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.results[entityID+"/"+string(domain)]
	return ok
}

// findingsFor returns the findings of every successful result recorded
// for one entity so far.
func (a *accumulator) findingsFor(entityID string) []investigation.Finding {
	a.mu.Lock()
	defer a.mu.Unlock()

	var findings []investigation.Finding
	for _, r := range a.results {
		if r.EntityID == entityID && r.Succeeded() {
			findings = append(findings, r.Findings...)
		}
	}
	return findings
}

func (a *accumulator) all() []*investigation.AgentResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*investigation.AgentResult, 0, len(a.results))
	for _, r := range a.results {
		out = append(out, r)
	}
	return out
}
