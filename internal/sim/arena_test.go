package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/content"
	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/character"
	"github.com/cory-johannsen/brawl/internal/game/combat"
	"github.com/cory-johannsen/brawl/internal/game/event"
	"github.com/cory-johannsen/brawl/internal/sim"
)

func bundle(t *testing.T) *content.Bundle {
	t.Helper()
	b, err := content.Load(config.ContentConfig{
		AbilitiesDir:  "../../content/abilities",
		AnimationsDir: "../../content/animations",
		ClassesDir:    "../../content/classes",
		ItemsDir:      "../../content/items",
		ScriptsDir:    "../../scripts/classes",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func setup(t *testing.T, arena config.ArenaConfig) sim.Setup {
	t.Helper()
	if arena.Tick == 0 {
		arena.Tick = 16 * time.Millisecond
	}
	if arena.Duration == 0 {
		arena.Duration = 10 * time.Second
	}
	if arena.Rounds == 0 {
		arena.Rounds = 1
	}
	return sim.Setup{Content: bundle(t), Arena: arena, Tuning: character.DefaultTuning()}
}

func newArena(t *testing.T, s sim.Setup, snapshots map[string]character.Snapshot) *sim.Arena {
	t.Helper()
	a, err := sim.NewArena(1, s.Arena.Seed, s, snapshots)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func report(o sim.Outcome, name string) sim.FighterReport {
	for _, f := range o.Fighters {
		if f.Name == name {
			return f
		}
	}
	return sim.FighterReport{}
}

func TestArena_MeleeFighterDestroysDummy(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed:     11,
		Fighters: []config.FighterConfig{{Name: "Aldric", Class: "warrior", Items: []string{"iron_sword"}}},
		Dummies:  []config.DummyConfig{{Name: "post", X: 50, Health: 60}},
	})
	a := newArena(t, s, nil)

	o, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, o.Elapsed, s.Arena.Duration, "the round ends once the dummy falls")
	assert.Equal(t, 0, a.Dummies()[0].Health)
	assert.Positive(t, o.Hits)
	assert.Equal(t, []string{"Aldric"}, o.Survivors)

	r := report(o, "Aldric")
	assert.Equal(t, 60, r.DamageDealt)
	assert.Equal(t, 1, r.Kills)
	assert.Equal(t, sim.DummyExperience, r.Experience)
}

func TestArena_ProjectileReachesDistantDummy(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed:     3,
		Duration: 4 * time.Second,
		Fighters: []config.FighterConfig{{Name: "Tess", Class: "ranger"}},
		Dummies:  []config.DummyConfig{{Name: "post", X: 300, Health: 10000}},
	})
	a := newArena(t, s, nil)

	for range 150 {
		a.Step()
	}
	assert.Less(t, a.Dummies()[0].Health, 10000)
	assert.InDelta(t, 0.0, a.Fighters()[0].Body.X, 1e-9, "a ranged fighter shoots from where it stands")
}

func TestArena_HitEventStunsOverlappingFighter(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed: 5,
		Fighters: []config.FighterConfig{
			{Name: "Aldric", Class: "warrior"},
			{Name: "Mira", Class: "mage", X: 40},
			{Name: "Tess", Class: "ranger", X: 900},
		},
	})
	a := newArena(t, s, nil)
	aldric, mira, tess := a.Fighters()[0], a.Fighters()[1], a.Fighters()[2]

	a.Bus().Publish(event.Event{
		Topic:  event.TopicHit,
		Source: aldric.Character.ID(),
		Payload: combat.Result{
			AttackerID: aldric.Character.ID(),
			AbilityID:  "shield_bash",
			Damage:     7,
			DamageType: ability.Physical,
			Shape:      combat.Shape{Kind: ability.ShapeRect, OffsetX: 40, Width: 80, Height: 80},
			Effects:    []combat.Effect{{Kind: combat.EffectStun, SourceID: "shield_bash", Duration: time.Second}},
		},
	})

	assert.True(t, mira.Character.Stunned())
	assert.Less(t, mira.Character.Health(), mira.Character.MaxHealth())
	assert.False(t, aldric.Character.Stunned(), "the attacker never hits itself")
	assert.False(t, tess.Character.Stunned(), "out of the hit area")

	o := a.Outcome()
	assert.Equal(t, mira.Character.MaxHealth()-mira.Character.Health(), report(o, "Mira").DamageTaken)
	assert.Equal(t, report(o, "Mira").DamageTaken, report(o, "Aldric").DamageDealt)
}

func TestArena_KillAwardsExperienceByVictimLevel(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed: 9,
		Fighters: []config.FighterConfig{
			{Name: "Aldric", Class: "warrior"},
			{Name: "Mira", Class: "mage", X: 40},
		},
	})
	a := newArena(t, s, nil)
	aldric, mira := a.Fighters()[0], a.Fighters()[1]

	a.Bus().Publish(event.Event{
		Topic:  event.TopicHit,
		Source: aldric.Character.ID(),
		Payload: combat.Result{
			AttackerID: aldric.Character.ID(),
			Damage:     100000,
			DamageType: ability.Physical,
			Shape:      combat.Shape{Kind: ability.ShapeRadius, Radius: 100},
		},
	})

	require.True(t, mira.Character.Dead())
	assert.Equal(t, sim.ExperiencePerLevel, aldric.Character.Experience())
	assert.True(t, a.Done(), "one fighter left standing")
	assert.Equal(t, []string{"Aldric"}, a.Survivors())
}

func TestArena_DummyRetaliates(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed:     21,
		Fighters: []config.FighterConfig{{Name: "Mira", Class: "mage", X: 60}},
		Dummies:  []config.DummyConfig{{Name: "post", X: 0, Health: 100000, Retaliate: "2d2+8"}},
	})
	a := newArena(t, s, nil)

	for range 70 {
		a.Step()
	}
	r := report(a.Outcome(), "Mira")
	assert.Positive(t, r.DamageTaken)
}

func TestArena_RealtimeRunsOnWallClock(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed:     21,
		Tick:     10 * time.Millisecond,
		Duration: 1300 * time.Millisecond,
		Realtime: true,
		Fighters: []config.FighterConfig{{Name: "Mira", Class: "mage", X: 60}},
		Dummies:  []config.DummyConfig{{Name: "post", X: 0, Health: 100000, Retaliate: "2d2+8"}},
	})
	a := newArena(t, s, nil)

	start := time.Now()
	o, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, s.Arena.Duration, o.Elapsed)
	assert.GreaterOrEqual(t, time.Since(start), s.Arena.Duration-100*time.Millisecond, "each tick waits for the wall clock")
	assert.Positive(t, report(o, "Mira").DamageTaken, "retaliation fires from the wall-clock mailbox")
}

func TestArena_RealtimeStopsOnCancel(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Tick:     10 * time.Millisecond,
		Duration: time.Minute,
		Realtime: true,
		Fighters: []config.FighterConfig{{Name: "Aldric", Class: "warrior"}},
	})
	a := newArena(t, s, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	o, err := a.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, o.Elapsed, time.Second)
}

func TestArena_RestoresSnapshot(t *testing.T) {
	s := setup(t, config.ArenaConfig{
		Seed: 2,
		Fighters: []config.FighterConfig{
			{Name: "Aldric", Class: "warrior", Items: []string{"iron_sword"}},
			{Name: "Mira", Class: "mage", Items: []string{"oak_staff"}, X: 300},
		},
	})
	warrior, ok := s.Content.Classes.Class("warrior")
	require.True(t, ok)
	snapshots := map[string]character.Snapshot{
		"Aldric": {
			ClassID:           "warrior",
			Level:             3,
			Experience:        10,
			Attributes:        warrior.Attributes.Grow(2),
			EquippedSourceIDs: []string{"item:leather_armor"},
		},
		// wrong class: rejected, Mira starts fresh
		"Mira": {ClassID: "warrior", Level: 5},
	}
	a := newArena(t, s, snapshots)
	aldric, mira := a.Fighters()[0].Character, a.Fighters()[1].Character

	assert.Equal(t, 3, aldric.Level())
	assert.Equal(t, []string{"leather_armor"}, aldric.Equipped(), "a restored fighter ignores its configured items")
	assert.Equal(t, 1, mira.Level())
	assert.Equal(t, []string{"oak_staff"}, mira.Equipped())
}

func TestArena_SameSeedSameOutcome(t *testing.T) {
	arena := config.ArenaConfig{
		Seed:     20261019,
		Duration: 6 * time.Second,
		Fighters: []config.FighterConfig{
			{Name: "Aldric", Class: "warrior", Items: []string{"iron_sword"}},
			{Name: "Mira", Class: "mage", Items: []string{"oak_staff"}, X: 200},
			{Name: "Grom", Class: "berserker", Items: []string{"whirling_blade"}, X: 400},
		},
		Dummies: []config.DummyConfig{{Name: "post", X: 300, Health: 300, Defense: 2, Retaliate: "1d6"}},
	}
	run := func() sim.Outcome {
		a := newArena(t, setup(t, arena), nil)
		o, err := a.Run(context.Background())
		require.NoError(t, err)
		return o
	}
	first, second := run(), run()
	assert.Equal(t, first, second)
	assert.Positive(t, first.Hits)
}

func TestNewArena_RejectsUnknownClassAndItem(t *testing.T) {
	s := setup(t, config.ArenaConfig{Fighters: []config.FighterConfig{{Name: "X", Class: "bard"}}})
	_, err := sim.NewArena(1, 1, s, nil)
	assert.ErrorContains(t, err, "bard")

	s.Arena.Fighters = []config.FighterConfig{{Name: "X", Class: "warrior", Items: []string{"excalibur"}}}
	_, err = sim.NewArena(1, 1, s, nil)
	assert.ErrorIs(t, err, character.ErrUnknownItem)

	s.Arena.Fighters[0].Items = nil
	s.Arena.Dummies = []config.DummyConfig{{Name: "post", Health: 1, Retaliate: "lots"}}
	_, err = sim.NewArena(1, 1, s, nil)
	assert.Error(t, err)
}
