package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// SingleInstance provides functionality to prevent multiple instances of
// the application. Two instances would install duplicate global hooks
// and fire every hotkey twice.
type SingleInstance struct {
	lockFile *os.File
	lockPath string
}

// NewSingleInstance creates a new SingleInstance manager
func NewSingleInstance(appName string) *SingleInstance {
	tempDir := os.TempDir()
	lockPath := filepath.Join(tempDir, fmt.Sprintf("%s.lock", appName))

	return &SingleInstance{
		lockPath: lockPath,
	}
}

// TryLock attempts to acquire the lock to prevent multiple instances.
// Returns true if lock was acquired successfully, false if another
// instance is running.
func (si *SingleInstance) TryLock() bool {
	file, err := os.OpenFile(si.lockPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		// If file already exists, check if the process is still running
		if os.IsExist(err) {
			return si.checkExistingInstance()
		}
		fmt.Printf("Warning: Failed to create lock file: %v\n", err)
		return false
	}

	// Write current process ID to the lock file
	pid := os.Getpid()
	if _, err := file.WriteString(strconv.Itoa(pid)); err != nil {
		file.Close()
		os.Remove(si.lockPath)
		fmt.Printf("Warning: Failed to write PID to lock file: %v\n", err)
		return false
	}

	si.lockFile = file
	return true
}

// checkExistingInstance checks if the process in the lock file is still running
func (si *SingleInstance) checkExistingInstance() bool {
	data, err := os.ReadFile(si.lockPath)
	if err != nil {
		// If we can't read the file, assume it's stale and try to remove it
		os.Remove(si.lockPath)
		return si.TryLock()
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		// Invalid PID in file, assume it's stale
		os.Remove(si.lockPath)
		return si.TryLock()
	}

	if !si.isProcessRunning(pid) {
		// Process is not running, remove stale lock file
		os.Remove(si.lockPath)
		return si.TryLock()
	}

	// Process is still running, another instance exists
	return false
}

// isProcessRunning checks if a process with the given PID is running
func (si *SingleInstance) isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Windows, FindProcess always succeeds, so we need to actually test it
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// Release releases the lock when the application is shutting down
func (si *SingleInstance) Release() {
	if si.lockFile != nil {
		si.lockFile.Close()
		si.lockFile = nil
	}

	if si.lockPath != "" {
		os.Remove(si.lockPath)
	}
}
