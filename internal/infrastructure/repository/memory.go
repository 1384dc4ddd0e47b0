package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	domainerrors "github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// MemoryRepository is an in-process repository with the same optimistic
// concurrency semantics as the PostgreSQL implementation. It backs
// tests and single-node deployments that run without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]storedInvestigation
}

type storedInvestigation struct {
	document []byte
	version  int
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]storedInvestigation)}
}

// Create inserts a new investigation
func (r *MemoryRepository) Create(ctx context.Context, inv *investigation.Investigation) error {
	document, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal investigation: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[inv.ID]; ok {
		return fmt.Errorf("%w: investigation %s", ErrDuplicateKey, inv.ID)
	}
	r.items[inv.ID] = storedInvestigation{document: document, version: inv.Version}
	return nil
}

// GetByID loads a deep copy of one investigation
func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*investigation.Investigation, error) {
	r.mu.RLock()
	stored, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domainerrors.ErrInvestigationNotFound
	}

	var inv investigation.Investigation
	if err := json.Unmarshal(stored.document, &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal investigation %s: %w", id, err)
	}
	inv.Version = stored.version
	return &inv, nil
}

// Update persists the aggregate if the caller's version still matches
// the stored one, then bumps both.
func (r *MemoryRepository) Update(ctx context.Context, inv *investigation.Investigation) error {
	document, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal investigation: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[inv.ID]
	if !ok {
		return domainerrors.ErrInvestigationNotFound
	}
	if stored.version != inv.Version {
		return fmt.Errorf("%w: investigation %s at version %d", ErrOptimisticLock, inv.ID, inv.Version)
	}

	inv.Version++
	r.items[inv.ID] = storedInvestigation{document: document, version: inv.Version}
	return nil
}

// Len reports how many investigations are stored
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
