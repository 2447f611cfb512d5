//go:build !windows
// +build !windows

package main

// SystemLockState reads live toggle-key state from the OS
type SystemLockState struct{}

// NumLock reports the Num Lock toggle state as unreadable; the resolver
// falls back to its name/registry heuristics off Windows.
func (SystemLockState) NumLock() (bool, bool) {
	return false, false
}

// NumLockManager restores Num Lock to a snapshotted state. No-op off
// Windows.
type NumLockManager struct{}

// NewNumLockManager creates a new Num Lock manager
func NewNumLockManager() (*NumLockManager, error) {
	return &NumLockManager{}, nil
}

// Snapshot records the current Num Lock state
func (n *NumLockManager) Snapshot() {}

// Restore toggles Num Lock back to the snapshotted state if it changed
func (n *NumLockManager) Restore() error { return nil }
