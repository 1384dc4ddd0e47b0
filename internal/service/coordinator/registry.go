package coordinator

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

const breakerShards = 16

// breakerRegistry holds one circuit breaker per (investigation,
// agent_domain) pairing. The map is sharded so unrelated pairings never
// contend on the same lock.
type breakerRegistry struct {
	shards           [breakerShards]*breakerShard
	failureThreshold int
	cooldown         time.Duration
}

type breakerShard struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

func newBreakerRegistry(failureThreshold int, cooldown time.Duration) *breakerRegistry {
	r := &breakerRegistry{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
	for i := range r.shards {
		r.shards[i] = &breakerShard{breakers: make(map[string]*CircuitBreaker)}
	}
	return r
}

func breakerKey(investigationID uuid.UUID, domain investigation.AgentDomain) string {
	return investigationID.String() + "/" + string(domain)
}

func (r *breakerRegistry) shardFor(key string) *breakerShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return r.shards[h.Sum32()%breakerShards]
}

// get returns the breaker for a pairing, creating it on first use
func (r *breakerRegistry) get(investigationID uuid.UUID, domain investigation.AgentDomain) *CircuitBreaker {
	key := breakerKey(investigationID, domain)
	shard := r.shardFor(key)

	shard.mu.RLock()
	b, ok := shard.breakers[key]
	shard.mu.RUnlock()
	if ok {
		return b
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if b, ok = shard.breakers[key]; ok {
		return b
	}
	b = NewCircuitBreaker(r.failureThreshold, r.cooldown)
	shard.breakers[key] = b
	return b
}

// drop removes every breaker belonging to an investigation; called when
// the investigation reaches a terminal state.
func (r *breakerRegistry) drop(investigationID uuid.UUID) {
	prefix := investigationID.String() + "/"
	for _, shard := range r.shards {
		shard.mu.Lock()
		for key := range shard.breakers {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				delete(shard.breakers, key)
			}
		}
		shard.mu.Unlock()
	}
}
