package main

import "sync"

// InputGate is the process-wide allow/block switch for hotkey dispatch.
// Surrounding workflows (modal dialogs, the area-selection overlay) block
// the gate to own all input without tearing down hooks. The runtime reads
// it on every event with no caching.
type InputGate struct {
	mu      sync.Mutex
	enabled bool
}

// NewInputGate creates a gate in the allowed state
func NewInputGate() *InputGate {
	return &InputGate{enabled: true}
}

// Allow enables hotkey dispatch
func (g *InputGate) Allow() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = true
}

// Block disables hotkey dispatch
func (g *InputGate) Block() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = false
}

// IsAllowed reports whether dispatch is currently enabled
func (g *InputGate) IsAllowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
