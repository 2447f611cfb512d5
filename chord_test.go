package main

import (
	"testing"
	"time"
)

func TestComposeChordCanonicalOrder(t *testing.T) {
	tests := []struct {
		name     string
		held     []Symbol
		base     Symbol
		expected Chord
	}{
		{"no modifiers", nil, "f1", "f1"},
		{"single modifier", []Symbol{"left ctrl"}, "f1", "ctrl+f1"},
		{"order is fixed regardless of press order", []Symbol{"left shift", "left ctrl"}, "f1", "ctrl+shift+f1"},
		{"reverse press order gives same chord", []Symbol{"left ctrl", "left shift"}, "f1", "ctrl+shift+f1"},
		{"both sides collapse to one name", []Symbol{"left ctrl", "right ctrl"}, "a", "ctrl+a"},
		{"alt keys stay side aware", []Symbol{"left alt"}, "tab", "left alt+tab"},
		{"right alt stays distinct", []Symbol{"right alt"}, "e", "right alt+e"},
		{"both alts appear separately", []Symbol{"right alt", "left alt"}, "x", "left alt+right alt+x"},
		{"windows modifier", []Symbol{"left windows", "left ctrl"}, "d", "ctrl+windows+d"},
		{"full stack", []Symbol{"right shift", "left windows", "left alt", "left ctrl"}, "num_5", "ctrl+shift+left alt+windows+num_5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposeChord(tt.held, tt.base)
			if got != tt.expected {
				t.Errorf("ComposeChord(%v, %q) = %q, expected %q", tt.held, tt.base, got, tt.expected)
			}
		})
	}
}

func TestCanonicalizeChord(t *testing.T) {
	tests := []struct {
		input    string
		expected Chord
	}{
		{"ctrl+shift+f1", "ctrl+shift+f1"},
		{"shift+ctrl+f1", "ctrl+shift+f1"},
		{"Shift + Ctrl + F1", "ctrl+shift+f1"},
		{"left shift", "left shift"},
		{"f5", "f5"},
		{"windows+ctrl+d", "ctrl+windows+d"},
		{"left alt+right alt+x", "left alt+right alt+x"},
		// A hand-edited bare modifier in base-name form maps to the
		// sided chord the builder actually produces
		{"ctrl", "left ctrl"},
		{"shift", "left shift"},
		{"windows", "left windows"},
		{"left alt", "left alt"},
		{"right alt", "right alt"},
	}

	for _, tt := range tests {
		got := CanonicalizeChord(tt.input)
		if got != tt.expected {
			t.Errorf("CanonicalizeChord(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
		// Idempotence: canonicalizing a canonical chord is a no-op
		if again := CanonicalizeChord(string(got)); again != got {
			t.Errorf("CanonicalizeChord not idempotent: %q -> %q", got, again)
		}
	}
}

// builderHarness collects builder callbacks for assertions
type builderHarness struct {
	builder  *ChordBuilder
	previews chan Chord
	finals   chan Chord
}

func newBuilderHarness(cfg ChordBuilderConfig) *builderHarness {
	h := &builderHarness{
		previews: make(chan Chord, 16),
		finals:   make(chan Chord, 16),
	}
	h.builder = NewChordBuilder(cfg,
		func(c Chord) { h.previews <- c },
		func(c Chord) { h.finals <- c },
	)
	return h
}

func (h *builderHarness) expectFinal(t *testing.T, expected Chord) {
	t.Helper()
	select {
	case got := <-h.finals:
		if got != expected {
			t.Fatalf("finalized %q, expected %q", got, expected)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no chord finalized, expected %q", expected)
	}
}

func (h *builderHarness) expectNoFinal(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case got := <-h.finals:
		t.Fatalf("unexpected finalized chord %q", got)
	case <-time.After(wait):
	}
}

func TestBuilderFastFinalizeOnBaseRelease(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: time.Hour})

	h.builder.OnKeyDown("left ctrl")
	h.builder.OnKeyDown("left shift")
	h.builder.OnKeyDown("f1")
	h.builder.OnKeyUp("f1")

	// Release beats the (distant) finalize timer
	h.expectFinal(t, "ctrl+shift+f1")
	h.expectNoFinal(t, 50*time.Millisecond)
}

func TestBuilderFinalizeTimer(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: 30 * time.Millisecond, BareModifierDelay: time.Hour})

	h.builder.OnKeyDown("f5")
	// Key stays held; the timer finalizes
	h.expectFinal(t, "f5")

	// The later release of the already-finalized base emits nothing
	h.builder.OnKeyUp("f5")
	h.expectNoFinal(t, 80*time.Millisecond)
}

func TestBuilderSecondPressOverwritesPending(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: 80 * time.Millisecond, BareModifierDelay: time.Hour})

	h.builder.OnKeyDown("f5")
	h.builder.OnKeyDown("f6")
	h.builder.OnKeyUp("f6")

	// Only the replacement finalizes; f5 was overwritten, not queued
	h.expectFinal(t, "f6")
	h.expectNoFinal(t, 200*time.Millisecond)
}

func TestBuilderBareModifierByHold(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: 30 * time.Millisecond})

	h.builder.OnKeyDown("left shift")
	// Held past the delay with nothing else pressed: bare chord fires with
	// its side-aware name
	h.expectFinal(t, "left shift")

	h.builder.OnKeyUp("left shift")
	h.expectNoFinal(t, 80*time.Millisecond)
}

func TestBuilderBareModifierByQuickRelease(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: time.Hour})

	h.builder.OnKeyDown("right ctrl")
	h.builder.OnKeyUp("right ctrl")

	// Release beats the (distant) hold timer and still emits exactly once
	h.expectFinal(t, "right ctrl")
	h.expectNoFinal(t, 50*time.Millisecond)
}

func TestBuilderBareCancelledByBaseKey(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: 50 * time.Millisecond})

	h.builder.OnKeyDown("left ctrl")
	h.builder.OnKeyDown("c")
	h.builder.OnKeyUp("c")

	// The composed chord fires; the bare-modifier candidate was cancelled
	h.expectFinal(t, "ctrl+c")
	h.builder.OnKeyUp("left ctrl")
	h.expectNoFinal(t, 150*time.Millisecond)
}

func TestBuilderBareCancelledBySecondModifier(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: 30 * time.Millisecond})

	h.builder.OnKeyDown("left ctrl")
	h.builder.OnKeyDown("left shift")

	// Two held modifiers can no longer be a bare chord
	h.expectNoFinal(t, 120*time.Millisecond)
}

func TestBuilderPreviewOnPendingChange(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: time.Hour})

	h.builder.OnKeyDown("left ctrl")
	h.builder.OnKeyDown("f1")

	select {
	case got := <-h.previews:
		if got != "ctrl+f1" {
			t.Fatalf("preview %q, expected %q", got, "ctrl+f1")
		}
	case <-time.After(time.Second):
		t.Fatal("no preview emitted")
	}
}

func TestBuilderReset(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: 30 * time.Millisecond, BareModifierDelay: 30 * time.Millisecond})

	h.builder.OnKeyDown("left ctrl")
	h.builder.OnKeyDown("f1")
	h.builder.Reset()

	// Neither the pending chord nor any bare candidate survives a reset
	h.expectNoFinal(t, 120*time.Millisecond)

	if held := h.builder.HeldModifiers(); len(held) != 0 {
		t.Fatalf("held modifiers after reset: %v", held)
	}
}

func TestBuilderHeldModifiersOrder(t *testing.T) {
	h := newBuilderHarness(ChordBuilderConfig{FinalizeDelay: time.Hour, BareModifierDelay: time.Hour})

	h.builder.OnKeyDown("left windows")
	h.builder.OnKeyDown("left shift")
	h.builder.OnKeyDown("left ctrl")

	held := h.builder.HeldModifiers()
	expected := []Symbol{"left ctrl", "left shift", "left windows"}
	if len(held) != len(expected) {
		t.Fatalf("held = %v, expected %v", held, expected)
	}
	for i := range expected {
		if held[i] != expected[i] {
			t.Fatalf("held = %v, expected %v", held, expected)
		}
	}
}
