package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/content"
	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/character"
	"github.com/cory-johannsen/brawl/internal/game/combat"
	"github.com/cory-johannsen/brawl/internal/game/cooldown"
	"github.com/cory-johannsen/brawl/internal/game/dice"
	"github.com/cory-johannsen/brawl/internal/game/event"
)

const (
	// DefaultProjectileRange is how far a projectile without a declared range flies.
	DefaultProjectileRange = 400.0
	// ExperiencePerLevel is awarded for a kill, times the victim's level.
	ExperiencePerLevel = 60
	// DummyExperience is awarded for destroying a training dummy.
	DummyExperience = 40
	// RetaliateInterval is how often a dummy strikes back.
	RetaliateInterval = time.Second
	// RetaliateReach is how close a fighter must stand to be struck by a dummy.
	RetaliateReach = 80.0
	// Bounds of the arena floor.
	MinX = -200.0
	MaxX = 1400.0
)

// realtimeMailbox bounds the due callbacks a realtime arena buffers between steps.
const realtimeMailbox = 256

// Setup is everything an arena is built from.
type Setup struct {
	Content *content.Bundle
	Arena   config.ArenaConfig
	Tuning  character.Tuning
	Logger  *zap.Logger
}

// Fighter is one character with the collaborators the arena supplies.
type Fighter struct {
	Character *character.Character
	Body      *Body
	Player    *Player
	Brain     *Brain

	damageDealt int
	damageTaken int
	kills       int
}

// Dummy is a stationary target with flat defense.
type Dummy struct {
	Name    string
	X       float64
	Health  int
	Defense int

	retaliate *dice.Expression
	handle    cooldown.Handle
}

func (d *Dummy) box() box {
	return box{cx: d.X, cy: -BodyHeight / 2, hw: BodyWidth / 2, hh: BodyHeight / 2}
}

type projectile struct {
	owner *Fighter
	x, y  float64
	vx    float64
	left  float64
	res   combat.Result
}

// Arena runs fighters and dummies on one clock, virtual by default or the wall
// clock when Realtime is set. It is single threaded: Step and every callback
// it triggers run on the caller's goroutine.
type Arena struct {
	round    int
	seed     uint64
	setup    Setup
	timers   cooldown.Timers
	settle   func(dt time.Duration)
	roller   *dice.Roller
	bus      *event.Channel
	fighters []*Fighter
	byID     map[string]*Fighter
	dummies  []*Dummy
	shots    []*projectile
	elapsed  time.Duration
	hits     int
	unsub    []func()
	logger   *zap.Logger
}

// NewArena builds the fighters and dummies of setup. A fighter with a saved
// snapshot is restored from it; otherwise it equips its configured items.
// seed 0 draws from the crypto source.
//
// Precondition: setup.Content is a verified bundle.
// Postcondition: Returns an Arena at elapsed 0, or a non-nil error. The
// caller must Close the Arena.
func NewArena(round int, seed uint64, setup Setup, snapshots map[string]character.Snapshot) (*Arena, error) {
	logger := setup.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var src dice.Source = dice.NewCryptoSource()
	if seed != 0 {
		src = dice.NewSeededSource(seed)
	}
	a := &Arena{
		round:  round,
		seed:   seed,
		setup:  setup,
		roller: dice.NewRoller(src, logger),
		bus:    event.NewChannel(logger),
		byID:   make(map[string]*Fighter),
		logger: logger,
	}
	if setup.Arena.Realtime {
		loop := cooldown.NewLoopTimers(realtimeMailbox)
		a.timers = loop
		a.settle = func(time.Duration) { loop.Drain() }
	} else {
		manual := cooldown.NewManualTimers(time.Unix(0, 0).UTC())
		a.timers = manual
		a.settle = manual.Advance
	}
	a.unsub = append(a.unsub,
		a.bus.Subscribe(event.TopicHit, a.onHit),
		a.bus.Subscribe(event.TopicDamaged, a.onDamaged),
		a.bus.Subscribe(event.TopicDied, a.onDied),
		a.bus.Subscribe(event.TopicLevelUp, a.onLevelUp),
	)

	for _, fc := range setup.Arena.Fighters {
		f, err := a.addFighter(fc, snapshots)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("fighter %q: %w", fc.Name, err)
		}
		a.fighters = append(a.fighters, f)
		a.byID[f.Character.ID()] = f
	}
	for _, dc := range setup.Arena.Dummies {
		d := &Dummy{Name: dc.Name, X: dc.X, Health: dc.Health, Defense: dc.Defense}
		if dc.Retaliate != "" {
			e, err := dice.Parse(dc.Retaliate)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("dummy %q: %w", dc.Name, err)
			}
			d.retaliate = &e
			a.scheduleRetaliation(d)
		}
		a.dummies = append(a.dummies, d)
	}
	return a, nil
}

func (a *Arena) addFighter(fc config.FighterConfig, snapshots map[string]character.Snapshot) (*Fighter, error) {
	b := a.setup.Content
	class, ok := b.Classes.Class(fc.Class)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", fc.Class)
	}
	body := NewBody(fc.X)
	player := NewPlayer(b.Clips)
	ch, err := character.New(fc.Name, class, character.Deps{
		Abilities:  b.Abilities,
		Items:      b.Items,
		Clips:      b.Clips,
		Strategies: b.Strategies,
		Timers:     a.timers,
		Dice:       a.roller,
		Bus:        a.bus,
		Body:       body,
		Renderer:   player,
		Logger:     a.logger,
	}, a.setup.Tuning)
	if err != nil {
		return nil, err
	}
	f := &Fighter{Character: ch, Body: body, Player: player, Brain: NewBrain(a.roller)}

	if snap, ok := snapshots[fc.Name]; ok {
		err := ch.Restore(snap)
		if err == nil {
			a.logger.Info("fighter restored from snapshot",
				zap.String("fighter", fc.Name),
				zap.Int("level", snap.Level),
			)
			return f, nil
		}
		a.logger.Warn("snapshot rejected, starting fresh",
			zap.String("fighter", fc.Name),
			zap.Error(err),
		)
	}
	for _, id := range fc.Items {
		if err := ch.Equip(id); err != nil {
			ch.Teardown()
			return nil, err
		}
	}
	return f, nil
}

// Fighters returns the fighters in configuration order.
func (a *Arena) Fighters() []*Fighter { return a.fighters }

// Dummies returns the dummies in configuration order.
func (a *Arena) Dummies() []*Dummy { return a.dummies }

// Elapsed returns the simulated time.
func (a *Arena) Elapsed() time.Duration { return a.elapsed }

// Bus exposes the arena's event channel for observers.
func (a *Arena) Bus() *event.Channel { return a.bus }

// Step advances the arena by one tick: every living fighter thinks, moves and
// animates, projectiles fly, then due timers fire.
func (a *Arena) Step() {
	dt := a.setup.Arena.Tick
	for _, f := range a.fighters {
		a.stepFighter(f, dt)
	}
	a.stepProjectiles(dt)
	a.settle(dt)
	a.elapsed += dt
}

func (a *Arena) stepFighter(f *Fighter, dt time.Duration) {
	ch := f.Character
	if ch.Dead() {
		f.Player.Advance(dt)
		return
	}
	f.Brain.Act(a, f)
	f.Body.Step(dt)
	f.Body.Clamp(MinX, MaxX)
	if err := ch.SyncBody(); err != nil && !errors.Is(err, animation.ErrInvalidTransition) {
		a.logger.Debug("sync rejected", zap.String("fighter", ch.Name()), zap.Error(err))
	}

	key := f.Player.Key()
	frame, finished := f.Player.Advance(dt)
	if frame >= 0 {
		ch.FrameUpdate(frame)
	}
	// the frame may have killed or hurt someone whose clip changed; only
	// complete the clip that actually finished
	if finished && f.Player.Key() == key && !ch.Dead() {
		if err := ch.AnimationComplete(key); err != nil && !errors.Is(err, animation.ErrInvalidTransition) {
			a.logger.Debug("completion rejected", zap.String("fighter", ch.Name()), zap.Error(err))
		}
	}
}

// Done reports whether the round is over: time is up, at most one of several
// fighters stands, or a lone fighter has destroyed every dummy.
func (a *Arena) Done() bool {
	if a.elapsed >= a.setup.Arena.Duration {
		return true
	}
	alive := len(a.Survivors())
	if alive == 0 {
		return true
	}
	if len(a.fighters) > 1 {
		return alive <= 1
	}
	if len(a.dummies) == 0 {
		return false
	}
	for _, d := range a.dummies {
		if d.Health > 0 {
			return false
		}
	}
	return true
}

// Run steps until Done or ctx is cancelled. A realtime arena waits one tick of
// wall time before each step.
func (a *Arena) Run(ctx context.Context) (Outcome, error) {
	a.logger.Info("round started",
		zap.Int("fighters", len(a.fighters)),
		zap.Int("dummies", len(a.dummies)),
		zap.Bool("realtime", a.setup.Arena.Realtime),
	)
	var pace <-chan time.Time
	if a.setup.Arena.Realtime {
		ticker := time.NewTicker(a.setup.Arena.Tick)
		defer ticker.Stop()
		pace = ticker.C
	}
	for !a.Done() {
		if pace != nil {
			select {
			case <-ctx.Done():
				return a.Outcome(), ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return a.Outcome(), err
		}
		a.Step()
	}
	o := a.Outcome()
	a.logger.Info("round finished",
		zap.Duration("elapsed", o.Elapsed),
		zap.Int("hits", o.Hits),
		zap.Strings("survivors", o.Survivors),
	)
	return o, nil
}

// Survivors returns the names of living fighters in configuration order.
func (a *Arena) Survivors() []string {
	var out []string
	for _, f := range a.fighters {
		if !f.Character.Dead() {
			out = append(out, f.Character.Name())
		}
	}
	return out
}

// Close tears down every character and detaches from the bus.
func (a *Arena) Close() {
	for _, d := range a.dummies {
		if d.handle != nil {
			d.handle.Stop()
		}
	}
	for _, f := range a.fighters {
		f.Character.Teardown()
	}
	for _, u := range a.unsub {
		u()
	}
}

func (a *Arena) nearestEnemy(f *Fighter) (x float64, ok bool) {
	best := 0.0
	consider := func(tx float64) {
		d := abs(tx - f.Body.X)
		if !ok || d < best {
			best, x, ok = d, tx, true
		}
	}
	for _, o := range a.fighters {
		if o != f && !o.Character.Dead() {
			consider(o.Body.X)
		}
	}
	for _, d := range a.dummies {
		if d.Health > 0 {
			consider(d.X)
		}
	}
	return x, ok
}

func (a *Arena) onHit(e event.Event) {
	res, ok := e.Payload.(combat.Result)
	if !ok {
		return
	}
	attacker := a.byID[res.AttackerID]
	if attacker == nil {
		return
	}
	a.hits++
	if res.Damage <= 0 && res.Stun() <= 0 {
		return
	}
	ox, oy := attacker.Body.Center()
	switch res.Shape.Kind {
	case ability.ShapeProjectile:
		dist := res.Range
		if dist <= 0 {
			dist = DefaultProjectileRange
		}
		a.shots = append(a.shots, &projectile{owner: attacker, x: ox, y: oy, vx: res.Shape.VX, left: dist, res: res})
	case ability.ShapeRadius:
		cx, cy := ox+res.Shape.OffsetX, oy+res.Shape.OffsetY
		a.strike(attacker, res, func(b box) bool { return b.touchesCircle(cx, cy, res.Shape.Radius) })
	default:
		area := box{cx: ox + res.Shape.OffsetX, cy: oy + res.Shape.OffsetY, hw: res.Shape.Width / 2, hh: res.Shape.Height / 2}
		a.strike(attacker, res, area.overlaps)
	}
}

// strike applies res to every living target other than the attacker whose
// hitbox satisfies in.
func (a *Arena) strike(attacker *Fighter, res combat.Result, in func(box) bool) int {
	n := 0
	for _, f := range a.fighters {
		if f == attacker || f.Character.Dead() || !in(f.Body.box()) {
			continue
		}
		a.hitFighter(attacker, f, res)
		n++
	}
	for _, d := range a.dummies {
		if d.Health <= 0 || !in(d.box()) {
			continue
		}
		a.hitDummy(attacker, d, res)
		n++
	}
	return n
}

func (a *Arena) hitFighter(attacker, target *Fighter, res combat.Result) {
	ch := target.Character
	if res.Damage > 0 {
		ch.TakeDamage(res.Damage, res.DamageType, attacker.Character.ID())
	}
	if stun := res.Stun(); stun > 0 && !ch.Dead() {
		ch.Stun(stun)
	}
}

func (a *Arena) hitDummy(attacker *Fighter, d *Dummy, res combat.Result) {
	if res.Damage <= 0 {
		return
	}
	dealt := min(combat.Mitigate(res.Damage, float64(d.Defense)), d.Health)
	d.Health -= dealt
	attacker.damageDealt += dealt
	a.logger.Debug("dummy hit",
		zap.String("dummy", d.Name),
		zap.String("attacker", attacker.Character.Name()),
		zap.Int("dealt", dealt),
		zap.Int("health", d.Health),
	)
	if d.Health == 0 {
		if d.handle != nil {
			d.handle.Stop()
		}
		attacker.kills++
		a.award(attacker, DummyExperience)
	}
}

func (a *Arena) stepProjectiles(dt time.Duration) {
	live := a.shots[:0]
	for _, p := range a.shots {
		step := p.vx * dt.Seconds()
		p.x += step
		p.left -= abs(step)
		hit := a.strikeFirst(p) > 0
		if !hit && p.left > 0 && p.x >= MinX && p.x <= MaxX {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(a.shots); i++ {
		a.shots[i] = nil
	}
	a.shots = live
}

// strikeFirst applies a projectile to the first target it touches.
func (a *Arena) strikeFirst(p *projectile) int {
	for _, f := range a.fighters {
		if f != p.owner && !f.Character.Dead() && f.Body.box().contains(p.x, p.y) {
			a.hitFighter(p.owner, f, p.res)
			return 1
		}
	}
	for _, d := range a.dummies {
		if d.Health > 0 && d.box().contains(p.x, p.y) {
			a.hitDummy(p.owner, d, p.res)
			return 1
		}
	}
	return 0
}

func (a *Arena) scheduleRetaliation(d *Dummy) {
	d.handle = a.timers.AfterFunc(RetaliateInterval, func() {
		if d.Health <= 0 {
			return
		}
		var target *Fighter
		for _, f := range a.fighters {
			if f.Character.Dead() || abs(f.Body.X-d.X) > RetaliateReach {
				continue
			}
			if target == nil || abs(f.Body.X-d.X) < abs(target.Body.X-d.X) {
				target = f
			}
		}
		if target != nil {
			roll := a.roller.Roll(*d.retaliate)
			target.Character.TakeDamage(roll.Total(), ability.Physical, d.Name)
		}
		a.scheduleRetaliation(d)
	})
}

func (a *Arena) onDamaged(e event.Event) {
	dmg, ok := e.Payload.(character.Damage)
	if !ok {
		return
	}
	if victim := a.byID[e.Source]; victim != nil {
		victim.damageTaken += dmg.Amount
	}
	if attacker := a.byID[dmg.Attacker]; attacker != nil {
		attacker.damageDealt += dmg.Amount
	}
}

func (a *Arena) onDied(e event.Event) {
	victim := a.byID[e.Source]
	killerID, _ := e.Payload.(string)
	killer := a.byID[killerID]
	if victim == nil {
		return
	}
	a.logger.Info("fighter died",
		zap.String("fighter", victim.Character.Name()),
		zap.String("killer", killerID),
	)
	if killer == nil || killer == victim {
		return
	}
	killer.kills++
	a.award(killer, ExperiencePerLevel*victim.Character.Level())
}

func (a *Arena) award(f *Fighter, xp int) {
	if _, err := f.Character.GainExperience(xp); err != nil {
		a.logger.Debug("experience not granted", zap.String("fighter", f.Character.Name()), zap.Error(err))
	}
}

func (a *Arena) onLevelUp(e event.Event) {
	f := a.byID[e.Source]
	if f == nil {
		return
	}
	a.logger.Info("fighter levelled up",
		zap.String("fighter", f.Character.Name()),
		zap.Int("level", f.Character.Level()),
	)
}

// FighterReport is the end-of-round state of one fighter.
type FighterReport struct {
	Name        string
	Class       string
	Level       int
	Experience  int
	Health      int
	MaxHealth   int
	Dead        bool
	DamageDealt int
	DamageTaken int
	Kills       int
}

// Outcome summarizes a round.
type Outcome struct {
	Round     int
	Seed      uint64
	Elapsed   time.Duration
	Hits      int
	Survivors []string
	Fighters  []FighterReport
}

// Outcome reports the arena's current state.
func (a *Arena) Outcome() Outcome {
	o := Outcome{
		Round:     a.round,
		Seed:      a.seed,
		Elapsed:   a.elapsed,
		Hits:      a.hits,
		Survivors: a.Survivors(),
	}
	for _, f := range a.fighters {
		ch := f.Character
		o.Fighters = append(o.Fighters, FighterReport{
			Name:        ch.Name(),
			Class:       ch.Class().ID,
			Level:       ch.Level(),
			Experience:  ch.Experience(),
			Health:      ch.Health(),
			MaxHealth:   ch.MaxHealth(),
			Dead:        ch.Dead(),
			DamageDealt: f.damageDealt,
			DamageTaken: f.damageTaken,
			Kills:       f.kills,
		})
	}
	sort.SliceStable(o.Fighters, func(i, j int) bool { return o.Fighters[i].DamageDealt > o.Fighters[j].DamageDealt })
	return o
}
