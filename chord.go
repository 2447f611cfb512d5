package main

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Chord is the canonical, "+"-joined string form of a complete hotkey:
// modifiers in fixed order (ctrl, shift, left alt, right alt, windows)
// followed by at most one base Symbol, or a single bare modifier
// (e.g. "ctrl+shift+f1", "left shift"). Two Chords are equal iff their
// strings are equal.
type Chord string

// chordModifierOrder fixes the canonical ordering of modifier names
// inside a composed chord
var chordModifierOrder = map[Symbol]int{
	"ctrl":      0,
	"shift":     1,
	"left alt":  2,
	"right alt": 3,
	"windows":   4,
}

// ComposeChord builds the canonical Chord for a set of held side-aware
// modifier Symbols plus one base Symbol. Modifiers pressed in any order
// produce the identical chord string.
func ComposeChord(held []Symbol, base Symbol) Chord {
	seen := make(map[Symbol]bool)
	var mods []Symbol
	for _, m := range held {
		name := chordBaseName(m)
		if !seen[name] {
			seen[name] = true
			mods = append(mods, name)
		}
	}
	sort.Slice(mods, func(i, j int) bool {
		return chordModifierOrder[mods[i]] < chordModifierOrder[mods[j]]
	})

	parts := make([]string, 0, len(mods)+1)
	for _, m := range mods {
		parts = append(parts, string(m))
	}
	if base != "" {
		parts = append(parts, string(base))
	}
	return Chord(strings.Join(parts, "+"))
}

// CanonicalizeChord reparses a chord string (e.g. loaded from a layout
// file) into its canonical form. Canonicalization is idempotent and
// lossless for chords this engine produced.
func CanonicalizeChord(s string) Chord {
	raw := strings.Split(s, "+")
	var mods []Symbol
	base := Symbol("")
	for _, tok := range raw {
		t := Symbol(strings.ToLower(strings.TrimSpace(tok)))
		if t == "" {
			continue
		}
		if _, ok := chordModifierOrder[t]; ok {
			mods = append(mods, t)
			continue
		}
		base = t
	}
	// A lone side-aware modifier is a bare-modifier chord, not a base key
	if len(mods) == 0 && IsModifier(base) {
		return Chord(base)
	}
	// A base-name bare modifier ("ctrl") can never be produced by the
	// builder, which finalizes bare modifiers side-aware; map it to the
	// side the generic virtual keys resolve to
	if base == "" && len(mods) == 1 {
		return Chord(sidedBareModifier(mods[0]))
	}
	return ComposeChord(mods, base)
}

// sidedBareModifier maps a base-name modifier to its left-side Symbol,
// matching the resolver's handling of the generic virtual keys. Already
// sided names pass through.
func sidedBareModifier(m Symbol) Symbol {
	switch m {
	case "ctrl":
		return "left ctrl"
	case "shift":
		return "left shift"
	case "windows":
		return "left windows"
	}
	return m
}

// ChordBuilderConfig carries the tunable delays of the builder
type ChordBuilderConfig struct {
	BareModifierDelay time.Duration
	FinalizeDelay     time.Duration
}

// ChordBuilder tracks currently-held modifiers and the most recent
// non-modifier Symbol to produce finalized Chords. A pending chord is
// finalized by whichever fires first: the base key's release (fast path
// for tap-chords) or the finalize timer; the losing path is cancelled,
// never merely ignored, so a chord finalizes exactly once.
type ChordBuilder struct {
	cfg       ChordBuilderConfig
	onPreview func(Chord)
	onFinal   func(Chord)

	mu   sync.Mutex
	held map[Symbol]bool // side-aware modifier symbols currently down

	// bare-modifier candidate awaiting its hold timer or release
	barePending Symbol
	bareGen     uint64
	bareTimer   *time.Timer

	// pending composed chord awaiting finalize
	pending     Chord
	pendingBase Symbol
	pendingGen  uint64
	finalTimer  *time.Timer
}

// NewChordBuilder creates a chord builder. onPreview fires when a pending
// chord is set or replaced; onFinal fires exactly once per finalized chord.
func NewChordBuilder(cfg ChordBuilderConfig, onPreview, onFinal func(Chord)) *ChordBuilder {
	if cfg.BareModifierDelay <= 0 {
		cfg.BareModifierDelay = 300 * time.Millisecond
	}
	if cfg.FinalizeDelay <= 0 {
		cfg.FinalizeDelay = 250 * time.Millisecond
	}
	return &ChordBuilder{
		cfg:       cfg,
		onPreview: onPreview,
		onFinal:   onFinal,
		held:      make(map[Symbol]bool),
	}
}

// OnKeyDown feeds a resolved key-down Symbol into the builder
func (b *ChordBuilder) OnKeyDown(sym Symbol) {
	var preview Chord

	b.mu.Lock()
	if IsModifier(sym) {
		if !b.held[sym] { // ignore auto-repeat
			b.held[sym] = true
			if len(b.held) == 1 && b.pending == "" {
				b.armBareTimerLocked(sym)
			} else {
				b.cancelBareLocked()
			}
		}
	} else {
		// Any non-modifier press cancels a bare-modifier candidate
		b.cancelBareLocked()

		// A second unrelated press during the pending window starts a new
		// pending chord, overwriting rather than appending
		b.cancelFinalizeTimerLocked()
		b.pending = ComposeChord(b.heldSliceLocked(), sym)
		b.pendingBase = sym
		preview = b.pending
		b.armFinalizeTimerLocked()
	}
	b.mu.Unlock()

	if preview != "" && b.onPreview != nil {
		b.onPreview(preview)
	}
}

// OnKeyUp feeds a resolved key-up Symbol into the builder
func (b *ChordBuilder) OnKeyUp(sym Symbol) {
	var final Chord

	b.mu.Lock()
	if IsModifier(sym) {
		// Release beats the bare-modifier timer when it fires first
		if b.barePending == sym {
			final = Chord(sym)
			b.cancelBareLocked()
		}
		delete(b.held, sym)
	} else if b.pending != "" && sym == b.pendingBase {
		// Fast path: base key released before the finalize timer fired
		final = b.takePendingLocked()
	}
	b.mu.Unlock()

	if final != "" && b.onFinal != nil {
		b.onFinal(final)
	}
}

// Reset cancels all pending timers and clears held state. Safe to call
// from any goroutine, idempotent.
func (b *ChordBuilder) Reset() {
	b.mu.Lock()
	b.cancelBareLocked()
	b.cancelFinalizeTimerLocked()
	b.pending = ""
	b.pendingBase = ""
	b.held = make(map[Symbol]bool)
	b.mu.Unlock()
}

// HeldModifiers returns a snapshot of the currently-held modifier Symbols
// in chord-canonical order, used for live capture previews
func (b *ChordBuilder) HeldModifiers() []Symbol {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heldSliceLocked()
}

func (b *ChordBuilder) heldSliceLocked() []Symbol {
	out := make([]Symbol, 0, len(b.held))
	for m := range b.held {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return chordModifierOrder[chordBaseName(out[i])] < chordModifierOrder[chordBaseName(out[j])]
	})
	return out
}

// armBareTimerLocked starts the bare-modifier hold timer for sym
func (b *ChordBuilder) armBareTimerLocked(sym Symbol) {
	b.cancelBareLocked()
	b.barePending = sym
	b.bareGen++
	gen := b.bareGen
	b.bareTimer = time.AfterFunc(b.cfg.BareModifierDelay, func() {
		b.fireBareTimer(sym, gen)
	})
}

// fireBareTimer emits the bare-modifier chord if the candidate is still
// live. The generation check closes the race against a release that won
// a few microseconds earlier.
func (b *ChordBuilder) fireBareTimer(sym Symbol, gen uint64) {
	b.mu.Lock()
	if gen != b.bareGen || b.barePending != sym || len(b.held) != 1 || !b.held[sym] {
		b.mu.Unlock()
		return
	}
	b.barePending = ""
	b.bareGen++
	b.mu.Unlock()

	if b.onFinal != nil {
		b.onFinal(Chord(sym))
	}
}

func (b *ChordBuilder) cancelBareLocked() {
	if b.bareTimer != nil {
		b.bareTimer.Stop()
		b.bareTimer = nil
	}
	b.barePending = ""
	b.bareGen++
}

// armFinalizeTimerLocked starts the pending-chord finalize timer
func (b *ChordBuilder) armFinalizeTimerLocked() {
	b.pendingGen++
	gen := b.pendingGen
	b.finalTimer = time.AfterFunc(b.cfg.FinalizeDelay, func() {
		b.fireFinalizeTimer(gen)
	})
}

// fireFinalizeTimer finalizes the pending chord if it is still the one
// this timer was armed for
func (b *ChordBuilder) fireFinalizeTimer(gen uint64) {
	b.mu.Lock()
	if gen != b.pendingGen || b.pending == "" {
		b.mu.Unlock()
		return
	}
	final := b.takePendingLocked()
	b.mu.Unlock()

	if final != "" && b.onFinal != nil {
		b.onFinal(final)
	}
}

func (b *ChordBuilder) cancelFinalizeTimerLocked() {
	if b.finalTimer != nil {
		b.finalTimer.Stop()
		b.finalTimer = nil
	}
	b.pendingGen++
}

// takePendingLocked consumes the pending chord and cancels its timer
func (b *ChordBuilder) takePendingLocked() Chord {
	final := b.pending
	b.pending = ""
	b.pendingBase = ""
	b.cancelFinalizeTimerLocked()
	return final
}
