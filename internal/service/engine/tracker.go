package engine

import (
	"sync"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// tracker aggregates per-entity completion counts while the pool is
// executing. The pool invokes observe once per terminal (entity, agent)
// pair, so counts are monotonic.
type tracker struct {
	mu        sync.Mutex
	perEntity map[string]*EntityProgress
}

func newTracker(entities []entity.Ref, agentsPerEntity int) *tracker {
	perEntity := make(map[string]*EntityProgress, len(entities))
	for _, e := range entities {
		perEntity[e.ID] = &EntityProgress{TotalAgents: agentsPerEntity}
	}
	return &tracker{perEntity: perEntity}
}

func (t *tracker) observe(res *investigation.AgentResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.perEntity[res.EntityID]; ok {
		p.CompletedAgents++
	}
}

func (t *tracker) snapshot() map[string]EntityProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]EntityProgress, len(t.perEntity))
	for id, p := range t.perEntity {
		out[id] = *p
	}
	return out
}
