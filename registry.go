package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HotkeyAction is the zero-argument callback an owner binds to a chord.
// The engine never inspects what the callback does.
type HotkeyAction func()

// HotkeyBinding ties a Chord to its owning slot. The owner label is only
// used for conflict messages.
type HotkeyBinding struct {
	Chord  Chord
	Owner  string
	Action HotkeyAction
}

// ConflictError reports that a chord is already bound to another owner
type ConflictError struct {
	Chord  Chord
	Owners []string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("hotkey %q is already assigned to %s", string(e.Chord), strings.Join(e.Owners, ", "))
}

// HotkeyRegistry is the concurrency-safe mapping from canonical chord to
// its single binding. Every hotkey category (areas, global slots,
// automations, combos) shares this one namespace: a chord is globally
// unique across the whole registry. Mutation is funneled through a
// single-writer lock because keyboard, mouse and controller callbacks
// race to register/unregister around the same moment.
type HotkeyRegistry struct {
	mu       sync.RWMutex
	bindings map[Chord]*HotkeyBinding

	// staleOwners records owners that claimed an already-bound chord
	// during a bulk reload (e.g. a crash-recovered layout). Their chord
	// is treated as inert at match time until one of the owners is
	// reassigned.
	staleOwners map[Chord][]string
}

// NewHotkeyRegistry creates an empty registry
func NewHotkeyRegistry() *HotkeyRegistry {
	return &HotkeyRegistry{
		bindings:    make(map[Chord]*HotkeyBinding),
		staleOwners: make(map[Chord][]string),
	}
}

// Register binds chord to owner. Registering a chord already held by a
// different owner fails with *ConflictError and performs no mutation.
// Re-registering the same owner with the same chord is idempotent and
// replaces the action.
func (r *HotkeyRegistry) Register(chord Chord, owner string, action HotkeyAction) error {
	if chord == "" {
		return fmt.Errorf("cannot register an empty chord for %s", owner)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[chord]; ok && existing.Owner != owner {
		return &ConflictError{Chord: chord, Owners: []string{existing.Owner}}
	}
	r.bindings[chord] = &HotkeyBinding{Chord: chord, Owner: owner, Action: action}
	// An explicit re-register resolves any stale duplicate on this chord
	delete(r.staleOwners, chord)
	return nil
}

// Replace binds chord to owner and releases owner's previous chord, all
// under one writer lock. On conflict nothing changes, so the owner keeps
// whatever binding it had; there is no window in which the owner holds
// neither chord.
func (r *HotkeyRegistry) Replace(chord Chord, owner string, action HotkeyAction) error {
	if chord == "" {
		return fmt.Errorf("cannot register an empty chord for %s", owner)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[chord]; ok && existing.Owner != owner {
		return &ConflictError{Chord: chord, Owners: []string{existing.Owner}}
	}
	for c, binding := range r.bindings {
		if binding.Owner == owner && c != chord {
			delete(r.bindings, c)
		}
	}
	r.bindings[chord] = &HotkeyBinding{Chord: chord, Owner: owner, Action: action}
	delete(r.staleOwners, chord)
	return nil
}

// RegisterStale records owner as a stale duplicate claimant of chord.
// Used by the layout loader when two persisted slots name the same chord;
// the chord becomes inert until the user reassigns one of them.
func (r *HotkeyRegistry) RegisterStale(chord Chord, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.staleOwners[chord] {
		if existing == owner {
			return
		}
	}
	r.staleOwners[chord] = append(r.staleOwners[chord], owner)
}

// Unregister removes the binding for chord if present. Idempotent.
func (r *HotkeyRegistry) Unregister(chord Chord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, chord)
	delete(r.staleOwners, chord)
}

// UnregisterOwner removes every binding held by owner, returning the
// chords released. Used when a slot is removed or reassigned.
func (r *HotkeyRegistry) UnregisterOwner(owner string) []Chord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []Chord
	for chord, binding := range r.bindings {
		if binding.Owner == owner {
			released = append(released, chord)
			delete(r.bindings, chord)
		}
	}
	return released
}

// Lookup returns the binding for chord, if any
func (r *HotkeyRegistry) Lookup(chord Chord) (HotkeyBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if binding, ok := r.bindings[chord]; ok {
		return *binding, true
	}
	return HotkeyBinding{}, false
}

// ListConflicts returns the owner labels currently holding chord,
// excluding exceptOwner. Used to build user-facing conflict messages.
func (r *HotkeyRegistry) ListConflicts(chord Chord, exceptOwner string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owners []string
	if binding, ok := r.bindings[chord]; ok && binding.Owner != exceptOwner {
		owners = append(owners, binding.Owner)
	}
	for _, owner := range r.staleOwners[chord] {
		if owner != exceptOwner {
			owners = append(owners, owner)
		}
	}
	return owners
}

// OwnerChord returns the chord currently held by owner, if any
func (r *HotkeyRegistry) OwnerChord(owner string) (Chord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for chord, binding := range r.bindings {
		if binding.Owner == owner {
			return chord, true
		}
	}
	return "", false
}

// Bindings returns a snapshot of all bindings sorted by chord
func (r *HotkeyRegistry) Bindings() []HotkeyBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HotkeyBinding, 0, len(r.bindings))
	for _, binding := range r.bindings {
		out = append(out, *binding)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chord < out[j].Chord })
	return out
}

// Snapshot returns the chord-to-owner mapping, used to verify that a
// cancelled assignment session left the registry unchanged
func (r *HotkeyRegistry) Snapshot() map[Chord]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[Chord]string, len(r.bindings))
	for chord, binding := range r.bindings {
		snap[chord] = binding.Owner
	}
	return snap
}

// PreferRegisteredFamily breaks a numpad/arrow tie for a shared physical
// code by choosing the family that already has a registered hotkey for
// it, preferring the one without a conflicting registration. Returns
// ok=false when neither or both families are registered.
func (r *HotkeyRegistry) PreferRegisteredFamily(numpad, arrow Symbol) (Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	numpadBound := r.baseSymbolBoundLocked(numpad)
	arrowBound := r.baseSymbolBoundLocked(arrow)
	switch {
	case numpadBound && !arrowBound:
		return numpad, true
	case arrowBound && !numpadBound:
		return arrow, true
	default:
		return "", false
	}
}

// baseSymbolBoundLocked reports whether any registered chord uses sym as
// its base key
func (r *HotkeyRegistry) baseSymbolBoundLocked(sym Symbol) bool {
	for chord := range r.bindings {
		if chordBase(chord) == sym {
			return true
		}
	}
	return false
}

// chordBase extracts the base Symbol of a chord ("" for bare modifiers)
func chordBase(chord Chord) Symbol {
	parts := strings.Split(string(chord), "+")
	last := Symbol(parts[len(parts)-1])
	if IsModifier(last) {
		return ""
	}
	if _, ok := chordModifierOrder[last]; ok {
		return ""
	}
	return last
}
