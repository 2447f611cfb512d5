//go:build windows
// +build windows

package main

import (
	"syscall"

	"github.com/micmonay/keybd_event"
)

var (
	user32      = syscall.NewLazyDLL("user32.dll")
	getKeyState = user32.NewProc("GetKeyState")
)

const vkNumLock = 0x90

// SystemLockState reads live toggle-key state from the OS
type SystemLockState struct{}

// NumLock returns the current Num Lock toggle state. The second return
// is false when the state cannot be read.
func (SystemLockState) NumLock() (bool, bool) {
	ret, _, err := getKeyState.Call(uintptr(vkNumLock))
	if err != nil && err != syscall.Errno(0) {
		return false, false
	}
	// GetKeyState returns a value where the low-order bit indicates if the key is toggled
	return (ret & 0x0001) != 0, true
}

// NumLockManager restores Num Lock to a snapshotted state. An assignment
// session snapshots on entry so an aborted capture does not leave the
// toggle flipped.
type NumLockManager struct {
	originalState bool
	snapshotted   bool
	kb            keybd_event.KeyBonding
}

// NewNumLockManager creates a new Num Lock manager
func NewNumLockManager() (*NumLockManager, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}
	return &NumLockManager{kb: kb}, nil
}

// Snapshot records the current Num Lock state
func (n *NumLockManager) Snapshot() {
	state, readable := SystemLockState{}.NumLock()
	n.originalState = state
	n.snapshotted = readable
}

// Restore toggles Num Lock back to the snapshotted state if it changed
func (n *NumLockManager) Restore() error {
	if !n.snapshotted {
		return nil
	}
	currentState, readable := SystemLockState{}.NumLock()
	if !readable || currentState == n.originalState {
		return nil
	}
	n.kb.SetKeys(keybd_event.VK_NUMLOCK)
	return n.kb.Launching()
}
