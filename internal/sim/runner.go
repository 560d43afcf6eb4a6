package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/brawl/internal/game/character"
	"github.com/cory-johannsen/brawl/internal/observability"
)

// Store persists fighter progression and round results between runs.
type Store interface {
	// LoadSnapshot returns the saved snapshot of the fighter called name, and
	// false when none exists.
	LoadSnapshot(ctx context.Context, name string) (character.Snapshot, bool, error)
	// SaveCharacter stores c's current snapshot under its name.
	SaveCharacter(ctx context.Context, c *character.Character) error
	// RecordRound stores the outcome of one round.
	RecordRound(ctx context.Context, o Outcome) error
}

// Runner plays the configured number of rounds, each in its own arena on its
// own goroutine. It implements server.Service.
type Runner struct {
	setup Setup
	store Store

	mu       sync.Mutex
	outcomes []Outcome
	cancel   context.CancelFunc
}

// NewRunner creates a Runner. store may be nil to disable persistence.
//
// Precondition: setup.Content must be non-nil.
func NewRunner(setup Setup, store Store) *Runner {
	if setup.Content == nil {
		panic("sim.NewRunner: precondition violated: setup.Content must be non-nil")
	}
	if setup.Logger == nil {
		setup.Logger = zap.NewNop()
	}
	return &Runner{setup: setup, store: store}
}

// Start runs every round and returns when all have finished, one fails, or
// ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	outcomes, err := r.RunAll(ctx)
	r.mu.Lock()
	r.outcomes = outcomes
	r.mu.Unlock()
	return err
}

// Stop cancels a running Start.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Outcomes returns the results of the last Start, ordered by round.
func (r *Runner) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

// RunAll plays every round concurrently. Round i uses seed Arena.Seed+i, or
// crypto randomness when Arena.Seed is 0.
//
// Postcondition: the returned outcomes are ordered by round; on error only
// the rounds that completed are present.
func (r *Runner) RunAll(ctx context.Context) ([]Outcome, error) {
	rounds := max(r.setup.Arena.Rounds, 1)
	results := make([]*Outcome, rounds)

	// progression is shared by fighter name, so rounds that persist must not
	// race on the same snapshot rows
	g, gctx := errgroup.WithContext(ctx)
	if r.store != nil {
		g.SetLimit(1)
	}
	for i := range rounds {
		seed := r.setup.Arena.Seed
		if seed != 0 {
			seed += uint64(i)
		}
		g.Go(func() error {
			o, err := r.runRound(gctx, i+1, seed)
			if err != nil {
				return fmt.Errorf("round %d: %w", i+1, err)
			}
			results[i] = &o
			return nil
		})
	}
	err := g.Wait()

	var out []Outcome
	for _, o := range results {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out, err
}

func (r *Runner) runRound(ctx context.Context, round int, seed uint64) (Outcome, error) {
	setup := r.setup
	setup.Logger = observability.ForRound(r.setup.Logger, round, seed)

	snapshots, err := r.loadSnapshots(ctx)
	if err != nil {
		return Outcome{}, err
	}
	a, err := NewArena(round, seed, setup, snapshots)
	if err != nil {
		return Outcome{}, err
	}
	defer a.Close()

	o, err := a.Run(ctx)
	if err != nil {
		return o, err
	}
	if r.store == nil || !r.setup.Arena.Persist {
		return o, nil
	}
	var errs []error
	for _, f := range a.Fighters() {
		if f.Character.Dead() {
			continue
		}
		if err := r.store.SaveCharacter(ctx, f.Character); err != nil {
			errs = append(errs, fmt.Errorf("saving %q: %w", f.Character.Name(), err))
		}
	}
	if err := r.store.RecordRound(ctx, o); err != nil {
		errs = append(errs, fmt.Errorf("recording round: %w", err))
	}
	return o, errors.Join(errs...)
}

func (r *Runner) loadSnapshots(ctx context.Context) (map[string]character.Snapshot, error) {
	if r.store == nil || !r.setup.Arena.Persist {
		return nil, nil
	}
	out := make(map[string]character.Snapshot)
	for _, fc := range r.setup.Arena.Fighters {
		snap, ok, err := r.store.LoadSnapshot(ctx, fc.Name)
		if err != nil {
			return nil, fmt.Errorf("loading snapshot %q: %w", fc.Name, err)
		}
		if ok {
			out[fc.Name] = snap
		}
	}
	return out, nil
}
