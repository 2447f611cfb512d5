package main

import (
	"reflect"
	"testing"
	"time"
)

// sessionHarness wires an assignment session over a runtime harness
type sessionHarness struct {
	*runtimeHarness
	previews   []string
	conflicted []Chord
	rejected   []Chord
	doneState  SessionState
	doneChord  Chord
	doneCount  int
}

func newSessionHarness(t *testing.T) *sessionHarness {
	return &sessionHarness{
		runtimeHarness: newRuntimeHarness(t, DispatchRuntimeConfig{DebounceWindow: time.Millisecond}),
	}
}

func (h *sessionHarness) newSession(owner string, cfg AssignmentConfig) *AssignmentSession {
	cb := AssignmentCallbacks{
		OnPreview:    func(display string) { h.previews = append(h.previews, display) },
		OnConflict:   func(chord Chord, owners []string) { h.conflicted = append(h.conflicted, chord) },
		OnRestricted: func(chord Chord, sym Symbol) { h.rejected = append(h.rejected, chord) },
		OnDone: func(state SessionState, chord Chord) {
			h.doneState = state
			h.doneChord = chord
			h.doneCount++
		},
	}
	return NewAssignmentSession(owner, func() {}, cfg, h.registry, h.runtime, nil, newTestLog(), cb, nil)
}

func TestAssignmentCommit(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	session.Start()

	if h.runtime.State() != StateSuspended {
		t.Fatal("runtime not suspended during capture")
	}

	h.tap(0x70) // f1

	if session.State() != SessionCommitted {
		t.Fatalf("session state = %v, expected committed", session.State())
	}
	if h.doneState != SessionCommitted || h.doneChord != "f1" {
		t.Errorf("OnDone got (%v, %q), expected (committed, f1)", h.doneState, h.doneChord)
	}

	binding, ok := h.registry.Lookup("f1")
	if !ok || binding.Owner != "Area: Chat" {
		t.Errorf("registry binding = %+v, %v", binding, ok)
	}
	if h.runtime.State() != StateListening {
		t.Error("runtime still suspended after commit")
	}
}

func TestAssignmentCommitReplacesOwnersOldChord(t *testing.T) {
	h := newSessionHarness(t)
	h.registry.Register("f5", "Area: Chat", func() {})

	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	session.Start()
	h.tap(0x70) // f1

	if _, ok := h.registry.Lookup("f5"); ok {
		t.Error("owner's previous chord survived reassignment")
	}
	if binding, ok := h.registry.Lookup("f1"); !ok || binding.Owner != "Area: Chat" {
		t.Errorf("new chord not bound: %+v, %v", binding, ok)
	}
}

func TestAssignmentConflictKeepsSessionAlive(t *testing.T) {
	h := newSessionHarness(t)
	h.registry.Register("f1", "Area: Other", func() {})

	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	session.Start()

	h.tap(0x70) // f1 collides
	if len(h.conflicted) != 1 || h.conflicted[0] != "f1" {
		t.Fatalf("conflicts = %v, expected [f1]", h.conflicted)
	}
	if session.State() != SessionCapturing {
		t.Fatalf("session state = %v, expected capturing after conflict", session.State())
	}

	h.tap(0x71) // f2 succeeds on retry
	if session.State() != SessionCommitted || h.doneChord != "f2" {
		t.Errorf("retry did not commit: state=%v chord=%q", session.State(), h.doneChord)
	}

	// The colliding owner's binding was never disturbed
	if binding, _ := h.registry.Lookup("f1"); binding.Owner != "Area: Other" {
		t.Errorf("conflicting binding mutated: %+v", binding)
	}
}

func TestAssignmentConflictKeepsOwnersPreviousChord(t *testing.T) {
	h := newSessionHarness(t)
	h.registry.Register("f5", "Area: Chat", func() {})
	h.registry.Register("f1", "Area: Other", func() {})

	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	session.Start()

	h.tap(0x70) // f1 collides
	if len(h.conflicted) != 1 {
		t.Fatalf("conflicts = %v, expected one", h.conflicted)
	}

	// The refused commit must not cost the owner its old binding
	if binding, ok := h.registry.Lookup("f5"); !ok || binding.Owner != "Area: Chat" {
		t.Errorf("owner's previous binding lost after a refused commit: %+v, %v", binding, ok)
	}
	session.Cancel()
}

func TestAssignmentRestrictedButtonRejected(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour, AllowMousePrimary: false})
	session.Start()

	h.tapMouse(1)
	if len(h.rejected) != 1 || h.rejected[0] != "button1" {
		t.Fatalf("rejected = %v, expected [button1]", h.rejected)
	}
	if session.State() != SessionCapturing {
		t.Fatalf("session state = %v, expected capturing after rejection", session.State())
	}

	h.tap(0x72) // f3 commits
	if session.State() != SessionCommitted || h.doneChord != "f3" {
		t.Errorf("session did not recover: state=%v chord=%q", session.State(), h.doneChord)
	}
}

func TestAssignmentCancelLeavesRegistryUntouched(t *testing.T) {
	h := newSessionHarness(t)
	h.registry.Register("f5", "Area: Chat", func() {})
	h.registry.Register("ctrl+f6", "Area: Other", func() {})
	before := h.registry.Snapshot()

	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	cancel := session.Start()

	// Some half-built input, then the user backs out
	h.runtime.HandleEvent(KeyEvent{Source: SourceKeyboard, Code: 0xA2, Pressed: true})
	cancel()

	if session.State() != SessionCancelled {
		t.Fatalf("session state = %v, expected cancelled", session.State())
	}
	if !reflect.DeepEqual(before, h.registry.Snapshot()) {
		t.Errorf("registry changed across a cancelled session:\nbefore %v\nafter  %v", before, h.registry.Snapshot())
	}
	if h.runtime.State() != StateListening {
		t.Error("runtime still suspended after cancel")
	}
	if h.doneCount != 1 || h.doneState != SessionCancelled {
		t.Errorf("OnDone count=%d state=%v", h.doneCount, h.doneState)
	}
}

func TestAssignmentCancelIsIdempotent(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	cancel := session.Start()

	cancel()
	cancel()
	session.Cancel()

	if h.doneCount != 1 {
		t.Errorf("OnDone fired %d times, expected 1", h.doneCount)
	}
}

func TestAssignmentInactivityTimeout(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: 600 * time.Millisecond})
	session.Start()

	deadline := time.After(5 * time.Second)
	for session.State() != SessionTimedOut {
		select {
		case <-deadline:
			t.Fatalf("session never timed out (state=%v)", session.State())
		default:
			time.Sleep(20 * time.Millisecond)
		}
	}

	if h.doneState != SessionTimedOut {
		t.Errorf("OnDone state = %v, expected timed out", h.doneState)
	}
	if h.runtime.State() != StateListening {
		t.Error("runtime still suspended after timeout")
	}
}

func TestAssignmentActivityResetsTimeout(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: 700 * time.Millisecond})
	session.Start()

	// A held modifier's auto-repeat is activity; the timeout must keep
	// resetting without anything finalizing
	for i := 0; i < 4; i++ {
		time.Sleep(300 * time.Millisecond)
		h.runtime.HandleEvent(KeyEvent{Source: SourceKeyboard, Code: 0xA2, Pressed: true})
	}

	if session.State() == SessionTimedOut {
		t.Fatal("session timed out despite continuous activity")
	}
	session.Cancel()
}

func TestAssignmentPreviewDuringCapture(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour, PreviewThrottle: time.Nanosecond})
	session.Start()

	h.runtime.HandleEvent(KeyEvent{Source: SourceKeyboard, Code: 0xA2, Pressed: true}) // ctrl
	h.runtime.HandleEvent(KeyEvent{Source: SourceKeyboard, Code: 0x70, Pressed: true}) // f1 held

	found := false
	for _, p := range h.previews {
		if p == "ctrl+f1" {
			found = true
		}
	}
	if !found {
		t.Errorf("previews %v never showed the pending chord", h.previews)
	}
	session.Cancel()
}

func TestAssignmentBareModifierChord(t *testing.T) {
	h := newSessionHarness(t)
	session := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	session.Start()

	// Quick tap of a lone modifier assigns its side-aware bare chord
	h.runtime.HandleEvent(KeyEvent{Source: SourceKeyboard, Code: 0xA0, Pressed: true})
	h.runtime.HandleEvent(KeyEvent{Source: SourceKeyboard, Code: 0xA0, Pressed: false})

	if session.State() != SessionCommitted || h.doneChord != "left shift" {
		t.Errorf("bare modifier capture: state=%v chord=%q, expected committed left shift", session.State(), h.doneChord)
	}
	if binding, ok := h.registry.Lookup("left shift"); !ok || binding.Owner != "Area: Chat" {
		t.Errorf("bare chord not registered: %+v %v", binding, ok)
	}
}

func TestAssignmentNewSessionForceCancelsPrior(t *testing.T) {
	h := newSessionHarness(t)
	first := h.newSession("Area: Chat", AssignmentConfig{InactivityTimeout: time.Hour})
	first.Start()

	second := NewAssignmentSession("Area: Other", func() {}, AssignmentConfig{InactivityTimeout: time.Hour},
		h.registry, h.runtime, nil, newTestLog(), AssignmentCallbacks{}, nil)
	second.Start()

	if first.State() != SessionCancelled {
		t.Errorf("first session state = %v, expected cancelled", first.State())
	}

	// The second session owns the runtime now
	h.tap(0x70)
	if second.State() != SessionCommitted {
		t.Errorf("second session state = %v, expected committed", second.State())
	}
}
