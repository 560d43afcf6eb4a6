package postgres

import (
	"context"
	"errors"

	"github.com/cory-johannsen/brawl/internal/game/character"
	"github.com/cory-johannsen/brawl/internal/sim"
)

// ArenaStore persists arena progression and round results. It implements
// sim.Store.
type ArenaStore struct {
	Snapshots *SnapshotRepository
	Rounds    *RoundRepository
}

// NewArenaStore creates an ArenaStore over pool.
func NewArenaStore(pool *Pool) *ArenaStore {
	return &ArenaStore{
		Snapshots: NewSnapshotRepository(pool.DB()),
		Rounds:    NewRoundRepository(pool.DB()),
	}
}

// LoadSnapshot returns the saved snapshot of name, and false when none exists.
func (s *ArenaStore) LoadSnapshot(ctx context.Context, name string) (character.Snapshot, bool, error) {
	saved, err := s.Snapshots.Load(ctx, name)
	if errors.Is(err, ErrSnapshotNotFound) {
		return character.Snapshot{}, false, nil
	}
	if err != nil {
		return character.Snapshot{}, false, err
	}
	return saved.Snapshot, true, nil
}

// SaveCharacter stores c's snapshot under its name.
func (s *ArenaStore) SaveCharacter(ctx context.Context, c *character.Character) error {
	return s.Snapshots.SaveCharacter(ctx, c)
}

// RecordRound stores a round summary.
func (s *ArenaStore) RecordRound(ctx context.Context, o sim.Outcome) error {
	_, err := s.Rounds.Record(ctx, RoundRecord{
		Round:     o.Round,
		Seed:      o.Seed,
		Duration:  o.Elapsed,
		Survivors: o.Survivors,
		Hits:      o.Hits,
	})
	return err
}
