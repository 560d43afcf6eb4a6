package sim_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/game/character"
	"github.com/cory-johannsen/brawl/internal/server"
	"github.com/cory-johannsen/brawl/internal/sim"
)

type memStore struct {
	mu        sync.Mutex
	snapshots map[string]character.Snapshot
	rounds    []sim.Outcome
	loads     int
	failSave  error
}

func newMemStore() *memStore {
	return &memStore{snapshots: make(map[string]character.Snapshot)}
}

func (m *memStore) LoadSnapshot(_ context.Context, name string) (character.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	s, ok := m.snapshots[name]
	return s, ok, nil
}

func (m *memStore) SaveCharacter(_ context.Context, c *character.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.snapshots[c.Name()] = c.Snapshot()
	return nil
}

func (m *memStore) RecordRound(_ context.Context, o sim.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, o)
	return nil
}

func trainingArena() config.ArenaConfig {
	return config.ArenaConfig{
		Tick:     16 * time.Millisecond,
		Duration: 20 * time.Second,
		Seed:     100,
		Rounds:   3,
		Persist:  true,
		Fighters: []config.FighterConfig{{Name: "Aldric", Class: "warrior", Items: []string{"iron_sword"}}},
		Dummies:  []config.DummyConfig{{Name: "post", X: 50, Health: 80}},
	}
}

func TestRunner_RunAllOrdersRoundsAndSeeds(t *testing.T) {
	s := setup(t, trainingArena())
	s.Arena.Persist = false
	r := sim.NewRunner(s, nil)

	out, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, o := range out {
		assert.Equal(t, i+1, o.Round)
		assert.Equal(t, uint64(100+i), o.Seed)
	}
}

func TestRunner_ProgressCarriesAcrossRounds(t *testing.T) {
	store := newMemStore()
	r := sim.NewRunner(setup(t, trainingArena()), store)

	require.NoError(t, r.Start(context.Background()))

	out := r.Outcomes()
	require.Len(t, out, 3)
	assert.Len(t, store.rounds, 3)
	assert.Equal(t, 3, store.loads)

	// each round kills the dummy once; the third kill crosses the first
	// threshold and the excess rolls over
	snap, ok := store.snapshots["Aldric"]
	require.True(t, ok)
	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, 3*sim.DummyExperience-100, snap.Experience)
	assert.Equal(t, []string{"item:iron_sword"}, snap.EquippedSourceIDs)
}

func TestRunner_SaveFailureIsReported(t *testing.T) {
	store := newMemStore()
	store.failSave = errors.New("disk full")
	arena := trainingArena()
	arena.Rounds = 1
	r := sim.NewRunner(setup(t, arena), store)

	_, err := r.RunAll(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, store.rounds, 1, "the round is still recorded")
}

func TestRunner_StopsWithLifecycle(t *testing.T) {
	arena := trainingArena()
	arena.Persist = false
	arena.Duration = time.Hour
	arena.Dummies[0].Health = 1 << 30
	r := sim.NewRunner(setup(t, arena), nil)

	lc := server.NewLifecycle(nil)
	lc.Add("arena", r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)
	err := lc.Run(ctx)
	assert.NoError(t, err)
	assert.Empty(t, r.Outcomes(), "no round finished")
}
