package sim

import (
	"time"

	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/item"
)

// Player plays one clip at a time from a registry and reports frames. It
// implements character.Renderer.
type Player struct {
	clips   *animation.Registry
	key     string
	cfg     animation.Config
	known   bool
	elapsed time.Duration
	frame   int
	done    bool
	plays   int
	worn    map[item.Slot]string
}

// NewPlayer creates a Player over clips.
func NewPlayer(clips *animation.Registry) *Player {
	return &Player{clips: clips, frame: -1, worn: make(map[item.Slot]string)}
}

// Play restarts playback with the clip key. An unregistered key shows a
// static pose that never advances or finishes.
func (p *Player) Play(key string) {
	p.key = key
	p.cfg, p.known = p.clips.Get(key)
	p.elapsed = 0
	p.frame = -1
	p.done = false
	p.plays++
}

// Wear records the appearance shown in slot.
func (p *Player) Wear(slot item.Slot, appearance string) {
	if appearance == "" {
		delete(p.worn, slot)
		return
	}
	p.worn[slot] = appearance
}

// Key returns the clip being played.
func (p *Player) Key() string { return p.key }

// Frame returns the last frame reported by Advance, or -1.
func (p *Player) Frame() int { return p.frame }

// Plays counts Play calls.
func (p *Player) Plays() int { return p.plays }

// Worn returns the appearance shown in slot.
func (p *Player) Worn(slot item.Slot) string { return p.worn[slot] }

// Advance moves playback forward by dt. It returns the frame now showing and
// whether a non-looping clip reached its end during this call. A finished
// clip reports its last frame so a skipped keyframe still fires.
func (p *Player) Advance(dt time.Duration) (frame int, finished bool) {
	if !p.known || p.done {
		return p.frame, false
	}
	p.elapsed += dt
	f := int(p.elapsed.Seconds() * p.cfg.FrameRate)
	if p.cfg.Loop {
		p.frame = f % p.cfg.TotalFrames
		return p.frame, false
	}
	if f >= p.cfg.TotalFrames {
		p.frame = p.cfg.TotalFrames - 1
		p.done = true
		return p.frame, true
	}
	p.frame = f
	return p.frame, false
}
