package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainerrors "github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// InvestigationRepository persists investigation aggregates as JSONB
// documents with a version column for optimistic concurrency. The
// lifecycle driver is the only writer per aggregate, so a version
// conflict indicates a stale in-memory copy rather than contention.
//
// Expected schema:
//
//	CREATE TABLE investigations (
//	    id         UUID PRIMARY KEY,
//	    phase      TEXT NOT NULL,
//	    priority   TEXT NOT NULL,
//	    document   JSONB NOT NULL,
//	    version    INTEGER NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX investigations_phase_idx ON investigations (phase, created_at DESC);
type InvestigationRepository struct {
	db *pgxpool.Pool
}

// NewInvestigationRepository creates a PostgreSQL-backed repository
func NewInvestigationRepository(db *pgxpool.Pool) *InvestigationRepository {
	return &InvestigationRepository{db: db}
}

// Create inserts a new investigation
func (r *InvestigationRepository) Create(ctx context.Context, inv *investigation.Investigation) error {
	if inv.ID == uuid.Nil {
		return fmt.Errorf("investigation id cannot be nil")
	}

	document, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal investigation: %w", err)
	}

	query := `
		INSERT INTO investigations (id, phase, priority, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		inv.ID, inv.Phase.String(), inv.Priority.String(),
		document, inv.Version, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("%w: investigation %s", ErrDuplicateKey, inv.ID)
		}
		return fmt.Errorf("failed to create investigation: %w", err)
	}
	return nil
}

// GetByID loads one investigation
func (r *InvestigationRepository) GetByID(ctx context.Context, id uuid.UUID) (*investigation.Investigation, error) {
	query := `SELECT document, version FROM investigations WHERE id = $1`

	var document []byte
	var version int
	err := r.db.QueryRow(ctx, query, id).Scan(&document, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrInvestigationNotFound
		}
		return nil, fmt.Errorf("failed to load investigation %s: %w", id, err)
	}

	var inv investigation.Investigation
	if err := json.Unmarshal(document, &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal investigation %s: %w", id, err)
	}
	inv.Version = version
	return &inv, nil
}

// Update persists the aggregate, guarded by the version counter. The
// row's version must still match the version the caller loaded; on
// success the in-memory counter is bumped to match the row.
func (r *InvestigationRepository) Update(ctx context.Context, inv *investigation.Investigation) error {
	document, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal investigation: %w", err)
	}

	query := `
		UPDATE investigations
		SET phase = $2, priority = $3, document = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6`

	tag, err := r.db.Exec(ctx, query,
		inv.ID, inv.Phase.String(), inv.Priority.String(),
		document, inv.UpdatedAt, inv.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update investigation %s: %w", inv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: investigation %s at version %d", ErrOptimisticLock, inv.ID, inv.Version)
	}

	inv.Version++
	return nil
}

// ListByPhase returns investigations currently in the given phase,
// newest first. Used by operational tooling to find stuck work.
func (r *InvestigationRepository) ListByPhase(ctx context.Context, phase investigation.Phase, limit int) ([]*investigation.Investigation, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT document, version FROM investigations
		WHERE phase = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, phase.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list investigations: %w", err)
	}
	defer rows.Close()

	var out []*investigation.Investigation
	for rows.Next() {
		var document []byte
		var version int
		if err := rows.Scan(&document, &version); err != nil {
			return nil, fmt.Errorf("failed to scan investigation row: %w", err)
		}
		var inv investigation.Investigation
		if err := json.Unmarshal(document, &inv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal investigation: %w", err)
		}
		inv.Version = version
		out = append(out, &inv)
	}
	return out, rows.Err()
}
