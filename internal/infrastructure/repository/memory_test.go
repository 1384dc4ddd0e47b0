package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

func newTestInvestigation(t *testing.T) *investigation.Investigation {
	t.Helper()
	entities := []entity.Ref{
		{ID: "user-1", Type: entity.TypeUser},
		{ID: "device-1", Type: entity.TypeDevice},
	}
	query := entity.NewBooleanQuery("user-1 AND device-1", entities)
	inv, err := investigation.New(entities, nil, query, nil, investigation.PriorityNormal)
	require.NoError(t, err)
	return inv
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	inv := newTestInvestigation(t)

	require.NoError(t, repo.Create(ctx, inv))

	loaded, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, loaded.ID)
	assert.Equal(t, investigation.PhasePending, loaded.Phase)
	assert.Equal(t, 1, loaded.Version)
	assert.Len(t, loaded.Entities, 2)
}

func TestMemoryRepository_CreateDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	inv := newTestInvestigation(t)

	require.NoError(t, repo.Create(ctx, inv))
	err := repo.Create(ctx, inv)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryRepository_GetMissing(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrInvestigationNotFound)
}

func TestMemoryRepository_UpdateBumpsVersion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	inv := newTestInvestigation(t)
	require.NoError(t, repo.Create(ctx, inv))

	require.NoError(t, inv.Transition(investigation.PhaseValidating))
	require.NoError(t, repo.Update(ctx, inv))
	assert.Equal(t, 2, inv.Version)

	loaded, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, investigation.PhaseValidating, loaded.Phase)
	assert.Equal(t, 2, loaded.Version)
}

func TestMemoryRepository_UpdateStaleVersion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	inv := newTestInvestigation(t)
	require.NoError(t, repo.Create(ctx, inv))

	stale, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, inv.Transition(investigation.PhaseValidating))
	require.NoError(t, repo.Update(ctx, inv))

	require.NoError(t, stale.Transition(investigation.PhaseValidating))
	err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, ErrOptimisticLock)
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	inv := newTestInvestigation(t)
	require.NoError(t, repo.Create(ctx, inv))

	first, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	first.FailureReason = "mutated locally"

	second, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, second.FailureReason)
}
