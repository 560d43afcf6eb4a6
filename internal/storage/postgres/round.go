package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoundRecord summarizes one finished arena round.
type RoundRecord struct {
	ID         uuid.UUID
	Round      int
	Seed       uint64
	Duration   time.Duration
	Survivors  []string
	Hits       int
	FinishedAt time.Time
}

// RoundRepository stores arena round summaries.
type RoundRepository struct {
	db *pgxpool.Pool
}

// NewRoundRepository creates a RoundRepository backed by the given pool.
func NewRoundRepository(db *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{db: db}
}

// Record inserts rec. A zero ID is replaced with a new random one.
//
// Postcondition: Returns the stored ID.
func (r *RoundRepository) Record(ctx context.Context, rec RoundRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	survivors := rec.Survivors
	if survivors == nil {
		survivors = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO arena_rounds (id, round, seed, duration_ms, survivors, hits)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Round, int64(rec.Seed), rec.Duration.Milliseconds(), survivors, rec.Hits,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("recording round %d: %w", rec.Round, err)
	}
	return rec.ID, nil
}

// Recent returns up to limit rounds, newest first.
func (r *RoundRepository) Recent(ctx context.Context, limit int) ([]RoundRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, round, seed, duration_ms, survivors, hits, finished_at
		FROM arena_rounds ORDER BY finished_at DESC, round DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	defer rows.Close()

	out := make([]RoundRecord, 0)
	for rows.Next() {
		var (
			rec  RoundRecord
			seed int64
			ms   int64
		)
		if err := rows.Scan(&rec.ID, &rec.Round, &seed, &ms, &rec.Survivors, &rec.Hits, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning round row: %w", err)
		}
		rec.Seed = uint64(seed)
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
