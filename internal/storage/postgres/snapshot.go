package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/brawl/internal/game/character"
)

// ErrSnapshotNotFound is returned when no snapshot is stored under a name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SavedCharacter is one stored snapshot with its identifying columns.
type SavedCharacter struct {
	Name        string
	CharacterID uuid.UUID
	Snapshot    character.Snapshot
	SavedAt     time.Time
}

// SnapshotRepository persists character snapshots as JSONB, one row per name.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save upserts the snapshot stored under name.
//
// Precondition: name must be non-empty; snap.Level >= 1.
// Postcondition: the row for name holds snap and a fresh saved_at.
func (r *SnapshotRepository) Save(ctx context.Context, name string, id uuid.UUID, snap character.Snapshot) error {
	if name == "" {
		return errors.New("snapshot name must not be empty")
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot for %q: %w", name, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO character_snapshots (name, character_id, class_id, level, snapshot, saved_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (name) DO UPDATE
		SET character_id = EXCLUDED.character_id,
		    class_id     = EXCLUDED.class_id,
		    level        = EXCLUDED.level,
		    snapshot     = EXCLUDED.snapshot,
		    saved_at     = EXCLUDED.saved_at`,
		name, id, snap.ClassID, snap.Level, body,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot for %q: %w", name, err)
	}
	return nil
}

// SaveCharacter snapshots c and saves it under its name.
func (r *SnapshotRepository) SaveCharacter(ctx context.Context, c *character.Character) error {
	id, err := uuid.Parse(c.ID())
	if err != nil {
		return fmt.Errorf("character id %q: %w", c.ID(), err)
	}
	return r.Save(ctx, c.Name(), id, c.Snapshot())
}

// Load returns the snapshot stored under name.
//
// Postcondition: Returns the SavedCharacter or ErrSnapshotNotFound.
func (r *SnapshotRepository) Load(ctx context.Context, name string) (SavedCharacter, error) {
	var (
		out  SavedCharacter
		body []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT name, character_id, snapshot, saved_at
		FROM character_snapshots WHERE name = $1`,
		name,
	).Scan(&out.Name, &out.CharacterID, &body, &out.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SavedCharacter{}, ErrSnapshotNotFound
		}
		return SavedCharacter{}, fmt.Errorf("loading snapshot for %q: %w", name, err)
	}
	if err := json.Unmarshal(body, &out.Snapshot); err != nil {
		return SavedCharacter{}, fmt.Errorf("decoding snapshot for %q: %w", name, err)
	}
	return out, nil
}

// ListByClass returns every snapshot of classID ordered by level descending, then name.
func (r *SnapshotRepository) ListByClass(ctx context.Context, classID string) ([]SavedCharacter, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, character_id, snapshot, saved_at
		FROM character_snapshots WHERE class_id = $1
		ORDER BY level DESC, name ASC`,
		classID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]SavedCharacter, 0)
	for rows.Next() {
		var (
			s    SavedCharacter
			body []byte
		)
		if err := rows.Scan(&s.Name, &s.CharacterID, &body, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(body, &s.Snapshot); err != nil {
			return nil, fmt.Errorf("decoding snapshot for %q: %w", s.Name, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the snapshot stored under name.
//
// Postcondition: Returns ErrSnapshotNotFound if nothing was deleted.
func (r *SnapshotRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM character_snapshots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting snapshot for %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
