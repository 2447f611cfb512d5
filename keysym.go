package main

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// EventSource identifies which input device produced a KeyEvent
type EventSource int

const (
	SourceKeyboard EventSource = iota
	SourceMouse
	SourceController
)

// String returns a human-readable name for the event source
func (s EventSource) String() string {
	switch s {
	case SourceKeyboard:
		return "keyboard"
	case SourceMouse:
		return "mouse"
	case SourceController:
		return "controller"
	default:
		return "unknown"
	}
}

// KeyEvent is one raw observation from an input device. Events are
// ephemeral; they are resolved to Symbols and never persisted.
type KeyEvent struct {
	Source  EventSource
	Code    uint16 // device-specific physical code
	Name    string // best-effort label from the driver, may be empty or ambiguous
	Pressed bool
	When    time.Time
}

// Symbol is the canonical name of one logical key or button, independent
// of raw device codes (e.g. "ctrl", "left shift", "num_7", "f13", "button1")
type Symbol string

// SymbolFamily classifies a resolved Symbol. The family drives the
// per-family propagation-suppression policy in the hook layer.
type SymbolFamily int

const (
	FamilyModifier SymbolFamily = iota
	FamilyNumpad
	FamilyArrow
	FamilySpecial
	FamilyButton
	FamilyPassthrough
)

// ResolvedKey couples a Symbol with its family
type ResolvedKey struct {
	Symbol Symbol
	Family SymbolFamily
}

// LockStateReader reads the live toggle-key state at call time.
// NumLock reports (state, readable); readable is false when the OS
// refuses the query.
type LockStateReader interface {
	NumLock() (bool, bool)
}

// padEntry describes a physical code shared between the numpad and arrow
// key families. The same scan code means "numpad 4" or "left arrow"
// depending on Num Lock state; this is hardware design, not a bug.
type padEntry struct {
	numpad Symbol
	arrow  Symbol
}

// KeySymbolResolver maps raw device events to canonical Symbols.
// It is stateless apart from the live lock-key flag it reads per call
// and the once-per-code ambiguity diagnostic bookkeeping.
type KeySymbolResolver struct {
	locks LockStateReader
	log   *LogManager

	// preferFamily breaks numpad/arrow ties when Num Lock is unreadable,
	// normally backed by the registry's registered-family lookup.
	preferFamily func(numpad, arrow Symbol) (Symbol, bool)

	modifierMap map[uint16]Symbol
	sharedPad   map[uint16]padEntry
	numpadMap   map[uint16]Symbol
	arrowMap    map[uint16]Symbol
	specialMap  map[uint16]Symbol

	mu              sync.Mutex
	loggedAmbiguous map[uint16]bool
}

// NewKeySymbolResolver creates a resolver reading lock-key state from locks
func NewKeySymbolResolver(locks LockStateReader, log *LogManager) *KeySymbolResolver {
	r := &KeySymbolResolver{
		locks:           locks,
		log:             log,
		modifierMap:     make(map[uint16]Symbol),
		sharedPad:       make(map[uint16]padEntry),
		numpadMap:       make(map[uint16]Symbol),
		arrowMap:        make(map[uint16]Symbol),
		specialMap:      make(map[uint16]Symbol),
		loggedAmbiguous: make(map[uint16]bool),
	}
	r.initializeTables()
	return r
}

// SetFamilyPreference installs the tiebreak consulted when Num Lock state
// is unreadable for a shared numpad/arrow code
func (r *KeySymbolResolver) SetFamilyPreference(pref func(numpad, arrow Symbol) (Symbol, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferFamily = pref
}

// initializeTables sets up the physical-code tables
func (r *KeySymbolResolver) initializeTables() {
	// Modifiers are side-aware at resolution time; chord composition
	// collapses ctrl/shift/windows to their base names while the two Alt
	// keys stay distinct (AltGr carries its own meaning on Windows).
	r.modifierMap[0xA0] = "left shift"
	r.modifierMap[0xA1] = "right shift"
	r.modifierMap[0xA2] = "left ctrl"
	r.modifierMap[0xA3] = "right ctrl"
	r.modifierMap[0xA4] = "left alt"
	r.modifierMap[0xA5] = "right alt"
	r.modifierMap[0x5B] = "left windows"
	r.modifierMap[0x5C] = "right windows"
	// Generic VKs some drivers report instead of the sided variants
	r.modifierMap[0x10] = "left shift"
	r.modifierMap[0x11] = "left ctrl"
	r.modifierMap[0x12] = "left alt"

	// Keypad scan codes shared between the two families. The range
	// overlaps the letter virtual keys G..S; a single-letter driver name
	// routes the event to the letter instead (see resolveSharedPad).
	r.sharedPad[71] = padEntry{numpad: "num_7", arrow: "home"}
	r.sharedPad[72] = padEntry{numpad: "num_8", arrow: "up"}
	r.sharedPad[73] = padEntry{numpad: "num_9", arrow: "page up"}
	r.sharedPad[75] = padEntry{numpad: "num_4", arrow: "left"}
	r.sharedPad[76] = padEntry{numpad: "num_5", arrow: "clear"}
	r.sharedPad[77] = padEntry{numpad: "num_6", arrow: "right"}
	r.sharedPad[79] = padEntry{numpad: "num_1", arrow: "end"}
	r.sharedPad[80] = padEntry{numpad: "num_2", arrow: "down"}
	r.sharedPad[81] = padEntry{numpad: "num_3", arrow: "page down"}
	r.sharedPad[82] = padEntry{numpad: "num_0", arrow: "insert"}
	r.sharedPad[83] = padEntry{numpad: "num_decimal", arrow: "delete"}

	// Distinct numpad virtual-key codes (reported when the driver has
	// already applied Num Lock)
	for i := uint16(0); i <= 9; i++ {
		r.numpadMap[0x60+i] = Symbol(fmt.Sprintf("num_%d", i))
	}
	r.numpadMap[0x6A] = "num_multiply"
	r.numpadMap[0x6B] = "num_add"
	r.numpadMap[0x6D] = "num_subtract"
	r.numpadMap[0x6E] = "num_decimal"
	r.numpadMap[0x6F] = "num_divide"

	// Distinct arrow/navigation virtual-key codes
	r.arrowMap[0x25] = "left"
	r.arrowMap[0x26] = "up"
	r.arrowMap[0x27] = "right"
	r.arrowMap[0x28] = "down"

	// Function keys F1-F24
	for i := uint16(0); i < 24; i++ {
		r.specialMap[0x70+i] = Symbol(fmt.Sprintf("f%d", i+1))
	}

	// Navigation and editing keys
	r.specialMap[0x24] = "home"
	r.specialMap[0x23] = "end"
	r.specialMap[0x2D] = "insert"
	r.specialMap[0x2E] = "delete"
	r.specialMap[0x21] = "page up"
	r.specialMap[0x22] = "page down"
	r.specialMap[0x08] = "backspace"
	r.specialMap[0x09] = "tab"
	r.specialMap[0x0D] = "enter"
	r.specialMap[0x1B] = "escape"
	r.specialMap[0x20] = "space"

	// Top-row digits and letters
	for i := uint16(0); i <= 9; i++ {
		r.specialMap[0x30+i] = Symbol(fmt.Sprintf("%d", i))
	}
	for c := uint16('A'); c <= 'Z'; c++ {
		r.specialMap[c] = Symbol(strings.ToLower(string(rune(c))))
	}
}

// Resolve maps a raw device event to its canonical Symbol. It never
// fails: unknown codes resolve to a pass-through Symbol built from the
// driver-reported name so unusual keys remain usable as hotkeys.
func (r *KeySymbolResolver) Resolve(ev KeyEvent) ResolvedKey {
	switch ev.Source {
	case SourceMouse:
		return ResolvedKey{Symbol: Symbol(fmt.Sprintf("button%d", ev.Code)), Family: FamilyButton}
	case SourceController:
		return ResolvedKey{Symbol: r.passthroughSymbol(ev), Family: FamilyButton}
	}

	if sym, ok := r.modifierMap[ev.Code]; ok {
		return ResolvedKey{Symbol: sym, Family: FamilyModifier}
	}

	if entry, ok := r.sharedPad[ev.Code]; ok {
		return r.resolveSharedPad(ev, entry)
	}

	if sym, ok := r.numpadMap[ev.Code]; ok {
		return ResolvedKey{Symbol: sym, Family: FamilyNumpad}
	}
	if sym, ok := r.arrowMap[ev.Code]; ok {
		return ResolvedKey{Symbol: sym, Family: FamilyArrow}
	}
	if sym, ok := r.specialMap[ev.Code]; ok {
		return ResolvedKey{Symbol: sym, Family: FamilySpecial}
	}

	return ResolvedKey{Symbol: r.passthroughSymbol(ev), Family: FamilyPassthrough}
}

// resolveSharedPad decides between the numpad and arrow family for a
// shared physical code. Exactly one family's Symbol is returned per event.
func (r *KeySymbolResolver) resolveSharedPad(ev KeyEvent, entry padEntry) ResolvedKey {
	// The driver-reported name is the strongest signal: during capture it
	// surfaces the user's evident intent and overrides lock-key state.
	if fam, ok := familyFromName(ev.Name); ok {
		switch fam {
		case FamilyArrow:
			return ResolvedKey{Symbol: entry.arrow, Family: FamilyArrow}
		case FamilyNumpad:
			return ResolvedKey{Symbol: entry.numpad, Family: FamilyNumpad}
		default:
			// A single-letter name means the code is a letter virtual key
			// (G..S), not a keypad scan code; the numeric tables cannot
			// tell the two spaces apart, the name can
			return ResolvedKey{Symbol: r.passthroughSymbol(ev), Family: FamilySpecial}
		}
	}

	if on, readable := r.locks.NumLock(); readable {
		if on {
			return ResolvedKey{Symbol: entry.numpad, Family: FamilyNumpad}
		}
		return ResolvedKey{Symbol: entry.arrow, Family: FamilyArrow}
	}

	r.mu.Lock()
	pref := r.preferFamily
	r.mu.Unlock()
	if pref != nil {
		if sym, ok := pref(entry.numpad, entry.arrow); ok {
			fam := FamilyArrow
			if sym == entry.numpad {
				fam = FamilyNumpad
			}
			return ResolvedKey{Symbol: sym, Family: fam}
		}
	}

	r.logAmbiguousOnce(ev.Code)
	return ResolvedKey{Symbol: entry.arrow, Family: FamilyArrow}
}

// familyFromName reports the key family when the driver-reported textual
// name is unambiguous about it. A single letter is unambiguous too: only
// a letter virtual key carries a one-letter name.
func familyFromName(name string) (SymbolFamily, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "up", "down", "left", "right", "home", "end", "page up", "page down", "insert", "delete", "clear":
		return FamilyArrow, true
	}
	if strings.HasPrefix(n, "numpad") || strings.HasPrefix(n, "num_") || strings.HasPrefix(n, "num ") {
		return FamilyNumpad, true
	}
	if len(n) == 1 && n[0] >= 'a' && n[0] <= 'z' {
		return FamilySpecial, true
	}
	return FamilyPassthrough, false
}

// logAmbiguousOnce logs the Num-Lock-unreadable diagnostic at most once
// per distinct code per session to avoid log spam
func (r *KeySymbolResolver) logAmbiguousOnce(code uint16) {
	r.mu.Lock()
	seen := r.loggedAmbiguous[code]
	r.loggedAmbiguous[code] = true
	r.mu.Unlock()

	if !seen && r.log != nil {
		r.log.LogWarning("Num Lock state unreadable, defaulting shared keypad code to arrow family",
			"code", fmt.Sprintf("%d", code))
	}
}

// passthroughSymbol builds a best-effort Symbol for a code outside the
// fixed tables
func (r *KeySymbolResolver) passthroughSymbol(ev KeyEvent) Symbol {
	name := strings.ToLower(strings.TrimSpace(ev.Name))
	if name != "" {
		return Symbol(name)
	}
	return Symbol(fmt.Sprintf("key_%d", ev.Code))
}

// IsModifier reports whether a Symbol names a modifier key
func IsModifier(sym Symbol) bool {
	switch sym {
	case "left shift", "right shift", "left ctrl", "right ctrl",
		"left alt", "right alt", "left windows", "right windows":
		return true
	}
	return false
}

// chordBaseName collapses a side-aware modifier Symbol to the name used
// inside a composed chord. Ctrl, Shift and Windows lose their side; the
// two Alt keys keep theirs.
func chordBaseName(sym Symbol) Symbol {
	switch sym {
	case "left ctrl", "right ctrl":
		return "ctrl"
	case "left shift", "right shift":
		return "shift"
	case "left windows", "right windows":
		return "windows"
	}
	return sym
}
