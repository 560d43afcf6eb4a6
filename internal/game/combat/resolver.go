package combat

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/cooldown"
	"github.com/cory-johannsen/brawl/internal/game/dice"
	"github.com/cory-johannsen/brawl/internal/game/event"
	"github.com/cory-johannsen/brawl/internal/game/modifier"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// DefaultCriticalDamage multiplies the damage of a critical hit.
const DefaultCriticalDamage = 1.5

// CooldownKey is the scheduler key gating abilityID.
func CooldownKey(abilityID string) string { return "cooldown:" + abilityID }

// Owner is the character side the resolver reads from and spends on.
type Owner interface {
	ID() string
	Stats() stats.Derived
	Mana() int
	// SpendMana deducts n; it is only called after the mana gate passed.
	SpendMana(n int)
	// Facing is +1 for right and -1 for left.
	Facing() int
}

// Config binds a Resolver to one character.
type Config struct {
	Owner       Owner
	Style       ability.Style
	BasicAttack string
	Abilities   *ability.Registry
	Scheduler   *cooldown.Scheduler
	Machine     *animation.Machine
	Ledger      *modifier.Ledger
	Dice        dice.Source
	Bus         event.Bus
	// CriticalDamage defaults to DefaultCriticalDamage when zero.
	CriticalDamage float64
	Logger         *zap.Logger
}

// Resolver is one character's attack gate and hit calculator.
// It is not safe for concurrent use.
type Resolver struct {
	cfg    Config
	roller *dice.Roller
	logger *zap.Logger
}

// NewResolver creates a Resolver from cfg.
//
// Precondition: Owner, Abilities, Scheduler, Machine, Ledger and Dice must be non-nil.
func NewResolver(cfg Config) *Resolver {
	if cfg.Owner == nil || cfg.Abilities == nil || cfg.Scheduler == nil ||
		cfg.Machine == nil || cfg.Ledger == nil || cfg.Dice == nil {
		panic("combat.NewResolver: precondition violated: owner, abilities, scheduler, machine, ledger and dice must be non-nil")
	}
	if cfg.Bus == nil {
		cfg.Bus = event.Nop{}
	}
	if cfg.CriticalDamage == 0 {
		cfg.CriticalDamage = DefaultCriticalDamage
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.With(zap.String("character", cfg.Owner.ID()))
	return &Resolver{
		cfg:    cfg,
		roller: dice.NewRoller(cfg.Dice, logger),
		logger: logger,
	}
}

// Ready reports whether abilityID's cooldown has elapsed.
func (r *Resolver) Ready(abilityID string) bool {
	return r.cfg.Scheduler.IsReady(CooldownKey(abilityID))
}

// ResolveBasicAttack gates and starts the class's basic attack.
func (r *Resolver) ResolveBasicAttack() error {
	return r.ResolveAbility(r.cfg.BasicAttack)
}

// ResolveAbility runs the gates for abilityID in order: cooldown, mana, then
// the animation machine. On success the mana is spent and the cooldown is
// started; damage waits for the keyframe.
//
// Postcondition: on error nothing has changed.
func (r *Resolver) ResolveAbility(abilityID string) error {
	a, ok := r.cfg.Abilities.Get(abilityID)
	if !ok {
		return r.reject(abilityID, fmt.Errorf("%w: %q", ErrUnknownAbility, abilityID))
	}
	if !r.Ready(abilityID) {
		return r.reject(abilityID, ErrCooldownActive)
	}
	if a.ManaCost > 0 && r.cfg.Owner.Mana() < a.ManaCost {
		return r.reject(abilityID, ErrInsufficientResource)
	}
	err := r.cfg.Machine.Request(animation.Request{
		Kind:      animation.KindAttack,
		AbilityID: abilityID,
		Key:       a.Animation,
	})
	if err != nil {
		return r.reject(abilityID, err)
	}
	if a.ManaCost > 0 {
		r.cfg.Owner.SpendMana(a.ManaCost)
	}
	r.cfg.Scheduler.Start(CooldownKey(abilityID), a.Cooldown(), nil)
	r.logger.Debug("ability accepted",
		zap.String("ability", abilityID),
		zap.Int("mana_cost", a.ManaCost),
		zap.Duration("cooldown", a.Cooldown()),
	)
	return nil
}

// Keyframe computes the hit for a fired keyframe, applies the ability's
// buff, and publishes the hit and any stun.
//
// Postcondition: returns nil only when kf names an unknown ability.
func (r *Resolver) Keyframe(kf animation.Keyframe) *Result {
	a, ok := r.cfg.Abilities.Get(kf.AbilityID)
	if !ok {
		r.logger.Warn("keyframe for unknown ability", zap.String("ability", kf.AbilityID))
		return nil
	}
	st := r.cfg.Owner.Stats()
	res := &Result{
		AttackerID: r.cfg.Owner.ID(),
		AbilityID:  a.ID,
		DamageType: a.DamageType,
		Range:      a.Range,
		Shape:      ShapeFor(a, r.cfg.Style, r.cfg.Owner.Facing()),
	}
	if a.DealsDamage() {
		res.Damage, res.IsCritical = r.damage(a, st)
	}
	if a.Buff != nil {
		src := ability.BuffSourceID(a.ID)
		if err := r.cfg.Ledger.Apply(src, a.Buff.Deltas, a.Buff.Duration()); err != nil {
			r.logger.Warn("buff not applied", zap.String("ability", a.ID), zap.Error(err))
		} else {
			res.Effects = append(res.Effects, Effect{Kind: EffectBuff, SourceID: src, Duration: a.Buff.Duration()})
		}
	}
	if a.StunMs > 0 {
		res.Effects = append(res.Effects, Effect{Kind: EffectStun, SourceID: a.ID, Duration: a.Stun()})
		r.cfg.Bus.Publish(event.Event{
			Topic:   event.TopicStun,
			Source:  res.AttackerID,
			At:      r.cfg.Scheduler.Now(),
			Payload: *res,
		})
	}
	r.logger.Debug("hit resolved",
		zap.String("ability", a.ID),
		zap.Int("damage", res.Damage),
		zap.Bool("critical", res.IsCritical),
	)
	r.cfg.Bus.Publish(event.Event{
		Topic:   event.TopicHit,
		Source:  res.AttackerID,
		At:      r.cfg.Scheduler.Now(),
		Payload: *res,
	})
	return res
}

// damage is floor(baseStat * multiplier), times CriticalDamage on a crit.
// One draw is made per hit when the critical chance is positive.
func (r *Resolver) damage(a *ability.Ability, st stats.Derived) (int, bool) {
	mult := a.Multiplier
	crit := r.roller.Chance("critical:"+a.ID, st.CriticalChance)
	if crit {
		mult *= r.cfg.CriticalDamage
	}
	dmg := int(math.Floor(st.Get(a.DamageType.AttackStat()) * mult))
	if dmg < 0 {
		dmg = 0
	}
	return dmg, crit
}

func (r *Resolver) reject(abilityID string, err error) error {
	r.logger.Debug("ability rejected",
		zap.String("ability", abilityID),
		zap.Error(err),
	)
	return err
}
