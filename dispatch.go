package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RuntimeState is the dispatch runtime's operating mode
type RuntimeState int

const (
	// StateListening is normal operation: events flow to the registry
	StateListening RuntimeState = iota
	// StateSuspended means an assignment session owns all input
	StateSuspended
)

// RestrictedInputError reports a chord rejected because it uses a mouse
// button the user has not opted in to. Distinct from ConflictError: the
// remediation is changing a setting, not changing the chord.
type RestrictedInputError struct {
	Chord  Chord
	Symbol Symbol
}

// Error implements the error interface
func (e *RestrictedInputError) Error() string {
	return fmt.Sprintf("hotkey %q uses %s, which is disabled by the mouse-button setting", string(e.Chord), string(e.Symbol))
}

// restrictedMouseSymbols are the primary/secondary click Symbols gated by
// the allow_mouse_primary preference
var restrictedMouseSymbols = map[Symbol]bool{
	"button1": true,
	"button2": true,
}

// ChordRestrictedButton returns the first restricted mouse Symbol a chord
// uses, if any
func ChordRestrictedButton(chord Chord) (Symbol, bool) {
	for _, part := range strings.Split(string(chord), "+") {
		if restrictedMouseSymbols[Symbol(part)] {
			return Symbol(part), true
		}
	}
	return "", false
}

// DispatchRuntimeConfig carries the runtime's tunable policy
type DispatchRuntimeConfig struct {
	DebounceWindow    time.Duration
	AllowMousePrimary bool
}

// DispatchRuntime feeds every raw input event through the resolver and
// chord builder, consults the registry, applies the global gate and the
// per-chord debounce window, and invokes matched actions. It flips to
// Suspended while an assignment session owns input.
type DispatchRuntime struct {
	cfg      DispatchRuntimeConfig
	registry *HotkeyRegistry
	resolver *KeySymbolResolver
	gate     *InputGate
	log      *LogManager
	builder  *ChordBuilder

	onConflict   func(Chord, []string)
	onRestricted func(Chord, Symbol)

	now func() time.Time

	mu                sync.Mutex
	state             RuntimeState
	session           *AssignmentSession
	lastFired         map[Chord]time.Time
	notifiedConflicts map[string]bool
}

// NewDispatchRuntime wires the runtime to its collaborators. onConflict
// and onRestricted surface user-facing warnings; either may be nil.
func NewDispatchRuntime(cfg DispatchRuntimeConfig, registry *HotkeyRegistry, resolver *KeySymbolResolver,
	gate *InputGate, log *LogManager, builderCfg ChordBuilderConfig,
	onConflict func(Chord, []string), onRestricted func(Chord, Symbol)) *DispatchRuntime {

	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 100 * time.Millisecond
	}

	rt := &DispatchRuntime{
		cfg:               cfg,
		registry:          registry,
		resolver:          resolver,
		gate:              gate,
		log:               log,
		onConflict:        onConflict,
		onRestricted:      onRestricted,
		now:               time.Now,
		lastFired:         make(map[Chord]time.Time),
		notifiedConflicts: make(map[string]bool),
	}
	rt.builder = NewChordBuilder(builderCfg, rt.handlePreview, rt.handleChord)

	// The registry is the tiebreak source for ambiguous keypad codes
	resolver.SetFamilyPreference(registry.PreferRegisteredFamily)

	return rt
}

// SetAllowMousePrimary updates the restricted mouse-button preference
func (rt *DispatchRuntime) SetAllowMousePrimary(allowed bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.cfg.AllowMousePrimary = allowed
}

// State returns the runtime's current operating mode
func (rt *DispatchRuntime) State() RuntimeState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// HandleEvent is the single funnel for all three input sources. The hook
// goroutines for keyboard, mouse and controller all call it concurrently.
func (rt *DispatchRuntime) HandleEvent(ev KeyEvent) {
	rt.mu.Lock()
	session := rt.session
	suspended := rt.state == StateSuspended
	rt.mu.Unlock()

	if suspended {
		if session != nil {
			session.HandleEvent(ev)
		}
		return
	}

	// The gate is read per event with no caching
	if !rt.gate.IsAllowed() {
		return
	}

	resolved := rt.resolver.Resolve(ev)
	if ev.Pressed {
		rt.builder.OnKeyDown(resolved.Symbol)
	} else {
		rt.builder.OnKeyUp(resolved.Symbol)
	}
}

// Suspend hands input ownership to an assignment session. Any pending
// chord state is torn down first so the capture UI cannot also fire the
// binding being replaced; registry contents stay intact for later
// conflict-checking. A session already holding the runtime is
// force-cancelled cleanly before the new one takes over.
func (rt *DispatchRuntime) Suspend(session *AssignmentSession) {
	rt.mu.Lock()
	prior := rt.session
	rt.session = session
	rt.state = StateSuspended
	rt.mu.Unlock()

	if prior != nil && prior != session {
		prior.Cancel()
	}
	rt.builder.Reset()
}

// Resume returns the runtime to normal dispatch. Only the session that
// suspended it may resume it; a stale session's resume is a no-op.
func (rt *DispatchRuntime) Resume(session *AssignmentSession) {
	rt.mu.Lock()
	if rt.session != session {
		rt.mu.Unlock()
		return
	}
	rt.session = nil
	rt.state = StateListening
	rt.mu.Unlock()

	rt.builder.Reset()
}

// handlePreview forwards live pending-chord updates to an active session
func (rt *DispatchRuntime) handlePreview(chord Chord) {
	rt.mu.Lock()
	session := rt.session
	rt.mu.Unlock()

	if session != nil {
		session.OfferPreview(chord)
	}
}

// handleChord is the finalize sink of the chord builder
func (rt *DispatchRuntime) handleChord(chord Chord) {
	rt.mu.Lock()
	session := rt.session
	suspended := rt.state == StateSuspended
	allowPrimary := rt.cfg.AllowMousePrimary
	rt.mu.Unlock()

	if suspended {
		if session != nil {
			session.OfferChord(chord)
		}
		return
	}

	if sym, restricted := ChordRestrictedButton(chord); restricted && !allowPrimary {
		// Reject loudly: a silent drop looks like a broken hotkey
		if _, bound := rt.registry.Lookup(chord); bound {
			rt.log.LogWarning("Hotkey rejected by mouse-button setting", "chord", string(chord), "button", string(sym))
			if rt.onRestricted != nil {
				rt.onRestricted(chord, sym)
			}
		}
		return
	}

	binding, ok := rt.registry.Lookup(chord)
	if !ok {
		// Unmatched input passes through to the OS untouched
		return
	}

	// A duplicate that slipped past registration (stale crash-recovery
	// state) makes every owner of the chord inert until resolved
	if conflicts := rt.registry.ListConflicts(chord, binding.Owner); len(conflicts) > 0 {
		rt.notifyConflictOnce(chord, append(conflicts, binding.Owner))
		return
	}

	if !rt.debounceAllows(chord) {
		return
	}

	rt.invoke(binding)
}

// debounceAllows consults and updates the per-chord debounce entry.
// Negative elapsed time means the clock moved backward; the entry is
// reset and the trigger allowed.
func (rt *DispatchRuntime) debounceAllows(chord Chord) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := rt.now()
	if last, ok := rt.lastFired[chord]; ok {
		elapsed := now.Sub(last)
		if elapsed >= 0 && elapsed < rt.cfg.DebounceWindow {
			return false
		}
	}
	rt.lastFired[chord] = now
	return true
}

// invoke runs the bound action behind the runtime's single recover
// boundary; a panicking callback never crashes the dispatch loop
func (rt *DispatchRuntime) invoke(binding HotkeyBinding) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.LogError("Hotkey action panicked", fmt.Errorf("%v", r),
				"owner", binding.Owner, "chord", string(binding.Chord))
		}
	}()

	rt.log.LogHotkeyTrigger(string(binding.Chord), binding.Owner)
	if binding.Action != nil {
		binding.Action()
	}
}

// notifyConflictOnce raises a conflict notification exactly once per
// distinct (chord, owner set) pair
func (rt *DispatchRuntime) notifyConflictOnce(chord Chord, owners []string) {
	sort.Strings(owners)
	key := string(chord) + "|" + strings.Join(owners, "|")

	rt.mu.Lock()
	seen := rt.notifiedConflicts[key]
	rt.notifiedConflicts[key] = true
	rt.mu.Unlock()

	if seen {
		return
	}

	rt.log.LogWarning("Duplicate hotkey registration detected, owners are inert until reassigned",
		"chord", string(chord), "owners", strings.Join(owners, ", "))
	if rt.onConflict != nil {
		rt.onConflict(chord, owners)
	}
}
