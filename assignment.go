package main

import (
	"strings"
	"sync"
	"time"
)

// SessionState is the assignment session's lifecycle state
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionCapturing
	SessionPreviewing
	SessionCommitted
	SessionCancelled
	SessionTimedOut
)

// String returns a human-readable session state name
func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionCapturing:
		return "capturing"
	case SessionPreviewing:
		return "previewing"
	case SessionCommitted:
		return "committed"
	case SessionCancelled:
		return "cancelled"
	case SessionTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// AssignmentConfig carries the session's tunable policy
type AssignmentConfig struct {
	InactivityTimeout time.Duration
	PreviewThrottle   time.Duration
	AllowMousePrimary bool
}

// AssignmentCallbacks are the session's surface toward the defining UI.
// Any callback may be nil.
type AssignmentCallbacks struct {
	// OnPreview receives the current pending chord's display string,
	// throttled to the configured interval
	OnPreview func(display string)
	// OnConflict fires when a captured chord collides with an existing
	// binding; the session stays live so the user can try again
	OnConflict func(chord Chord, owners []string)
	// OnRestricted fires when a captured chord uses a disallowed mouse
	// button
	OnRestricted func(chord Chord, sym Symbol)
	// OnDone fires exactly once with the terminal state; chord is set
	// only for SessionCommitted
	OnDone func(state SessionState, chord Chord)
}

// AssignmentSession is the short-lived interactive capture mode used to
// define a new hotkey for one owner slot. While active, the dispatch
// runtime is Suspended and raw events are diverted here; the session
// reuses the runtime's resolver and chord builder rather than
// reimplementing them. Commit validates against the registry; cancel and
// timeout leave the registry untouched.
type AssignmentSession struct {
	owner    string
	action   HotkeyAction
	cfg      AssignmentConfig
	registry *HotkeyRegistry
	runtime  *DispatchRuntime
	numlock  *NumLockManager
	log      *LogManager
	cb       AssignmentCallbacks

	// onCommitted triggers the async persistence side effect; never on
	// the input-latency path
	onCommitted func(owner string, chord Chord)

	mu            sync.Mutex
	state         SessionState
	timeoutGen    uint64
	timeoutTimer  *time.Timer
	lastPreviewAt time.Time
}

// NewAssignmentSession creates a session for owner. The session is Idle
// until Start.
func NewAssignmentSession(owner string, action HotkeyAction, cfg AssignmentConfig,
	registry *HotkeyRegistry, runtime *DispatchRuntime, numlock *NumLockManager,
	log *LogManager, cb AssignmentCallbacks, onCommitted func(string, Chord)) *AssignmentSession {

	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 4 * time.Second
	}
	if cfg.PreviewThrottle <= 0 {
		cfg.PreviewThrottle = 80 * time.Millisecond
	}
	return &AssignmentSession{
		owner:       owner,
		action:      action,
		cfg:         cfg,
		registry:    registry,
		runtime:     runtime,
		numlock:     numlock,
		log:         log,
		cb:          cb,
		onCommitted: onCommitted,
		state:       SessionIdle,
	}
}

// Start suspends normal dispatch and begins capturing. Returns a cancel
// handle for the defining UI.
func (s *AssignmentSession) Start() func() {
	s.mu.Lock()
	if s.state != SessionIdle {
		s.mu.Unlock()
		return s.Cancel
	}
	s.state = SessionCapturing
	s.mu.Unlock()

	if s.numlock != nil {
		s.numlock.Snapshot()
	}
	s.runtime.Suspend(s)
	s.armTimeout()

	s.log.LogInfo("Hotkey assignment started", "owner", s.owner)
	return s.Cancel
}

// State returns the session's current state
func (s *AssignmentSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleEvent receives a raw event diverted from the dispatch runtime.
// Key activity resets the inactivity timeout; the preview refresh itself
// does not.
func (s *AssignmentSession) HandleEvent(ev KeyEvent) {
	s.mu.Lock()
	if s.state != SessionCapturing && s.state != SessionPreviewing {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.armTimeout()

	resolved := s.runtime.resolver.Resolve(ev)
	if ev.Pressed {
		s.runtime.builder.OnKeyDown(resolved.Symbol)
		if resolved.Family == FamilyModifier {
			s.previewHeldModifiers()
		}
	} else {
		s.runtime.builder.OnKeyUp(resolved.Symbol)
	}
}

// OfferPreview receives the pending chord from the shared chord builder
func (s *AssignmentSession) OfferPreview(chord Chord) {
	s.mu.Lock()
	if s.state != SessionCapturing && s.state != SessionPreviewing {
		s.mu.Unlock()
		return
	}
	s.state = SessionPreviewing
	s.mu.Unlock()

	s.emitPreview(string(chord))
}

// OfferChord receives a finalized chord from the shared chord builder and
// runs the commit path
func (s *AssignmentSession) OfferChord(chord Chord) {
	s.mu.Lock()
	if s.state != SessionCapturing && s.state != SessionPreviewing {
		s.mu.Unlock()
		return
	}

	// Restricted buttons are rejected before conflict-checking so a
	// disallowed chord never reaches commit
	if sym, restricted := ChordRestrictedButton(chord); restricted && !s.cfg.AllowMousePrimary {
		s.state = SessionCapturing
		s.mu.Unlock()
		s.log.LogWarning("Assignment rejected by mouse-button setting", "owner", s.owner, "chord", string(chord))
		if s.cb.OnRestricted != nil {
			s.cb.OnRestricted(chord, sym)
		}
		return
	}

	// A collision sends the session back to Capturing rather than
	// aborting; one accidental clash should not restart the whole flow
	if owners := s.registry.ListConflicts(chord, s.owner); len(owners) > 0 {
		s.state = SessionCapturing
		s.mu.Unlock()
		s.log.LogWarning("Assignment conflict", "owner", s.owner, "chord", string(chord),
			"held_by", strings.Join(owners, ", "))
		if s.cb.OnConflict != nil {
			s.cb.OnConflict(chord, owners)
		}
		return
	}

	if err := s.commitLocked(chord); err != nil {
		// Lost a registration race between check and commit
		s.state = SessionCapturing
		s.mu.Unlock()
		if conflict, ok := err.(*ConflictError); ok && s.cb.OnConflict != nil {
			s.cb.OnConflict(chord, conflict.Owners)
		}
		return
	}
	s.state = SessionCommitted
	s.mu.Unlock()

	s.stopTimeout()
	s.runtime.Resume(s)
	s.log.LogInfo("Hotkey assigned", "owner", s.owner, "chord", string(chord))

	if s.onCommitted != nil {
		// Persistence runs off the input path
		go s.onCommitted(s.owner, chord)
	}
	if s.cb.OnDone != nil {
		s.cb.OnDone(SessionCommitted, chord)
	}
}

// commitLocked swaps the owner's previous binding for chord in one
// registry operation, so a commit that loses a registration race can
// never leave the owner holding neither chord
func (s *AssignmentSession) commitLocked(chord Chord) error {
	return s.registry.Replace(chord, s.owner, s.action)
}

// Cancel terminates the session without touching the registry. Safe to
// call from any goroutine and idempotent.
func (s *AssignmentSession) Cancel() {
	s.finish(SessionCancelled)
}

// finish moves the session to a terminal state exactly once
func (s *AssignmentSession) finish(terminal SessionState) {
	s.mu.Lock()
	switch s.state {
	case SessionCommitted, SessionCancelled, SessionTimedOut:
		s.mu.Unlock()
		return
	}
	s.state = terminal
	s.mu.Unlock()

	s.stopTimeout()
	if s.numlock != nil {
		// An aborted capture must not leave Num Lock flipped
		if err := s.numlock.Restore(); err != nil {
			s.log.LogWarning("Failed to restore Num Lock state", "error", err.Error())
		}
	}
	s.runtime.Resume(s)
	s.log.LogInfo("Hotkey assignment ended", "owner", s.owner, "state", terminal.String())

	if s.cb.OnDone != nil {
		s.cb.OnDone(terminal, "")
	}
}

// previewHeldModifiers surfaces the currently-held modifiers while the
// user is still building a chord
func (s *AssignmentSession) previewHeldModifiers() {
	held := s.runtime.builder.HeldModifiers()
	if len(held) == 0 {
		return
	}
	parts := make([]string, len(held))
	for i, m := range held {
		parts[i] = string(chordBaseName(m))
	}
	s.emitPreview(strings.Join(parts, "+") + "+...")
}

// emitPreview delivers a preview string, throttled to the configured
// interval
func (s *AssignmentSession) emitPreview(display string) {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastPreviewAt) < s.cfg.PreviewThrottle {
		s.mu.Unlock()
		return
	}
	s.lastPreviewAt = now
	s.mu.Unlock()

	if s.cb.OnPreview != nil {
		s.cb.OnPreview(display)
	}
}

// armTimeout (re)starts the inactivity timer
func (s *AssignmentSession) armTimeout() {
	s.mu.Lock()
	if s.timeoutTimer != nil {
		s.timeoutTimer.Stop()
	}
	s.timeoutGen++
	gen := s.timeoutGen
	s.timeoutTimer = time.AfterFunc(s.cfg.InactivityTimeout, func() {
		s.fireTimeout(gen)
	})
	s.mu.Unlock()
}

// fireTimeout ends the session if no activity arrived since this timer
// was armed
func (s *AssignmentSession) fireTimeout(gen uint64) {
	s.mu.Lock()
	stale := gen != s.timeoutGen
	s.mu.Unlock()
	if stale {
		return
	}
	s.finish(SessionTimedOut)
}

// stopTimeout cancels the inactivity timer. Idempotent, callable from
// any goroutine.
func (s *AssignmentSession) stopTimeout() {
	s.mu.Lock()
	if s.timeoutTimer != nil {
		s.timeoutTimer.Stop()
		s.timeoutTimer = nil
	}
	s.timeoutGen++
	s.mu.Unlock()
}
