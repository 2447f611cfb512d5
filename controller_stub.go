//go:build !windows
// +build !windows

package main

// ControllerMonitor polls an attached game controller for hotkey input.
// Controller support is Windows-only; elsewhere it reports the missing
// source once and stays idle.
type ControllerMonitor struct {
	log *LogManager
}

// NewControllerMonitor creates a controller monitor delivering into runtime
func NewControllerMonitor(runtime *DispatchRuntime, log *LogManager) *ControllerMonitor {
	return &ControllerMonitor{log: log}
}

// Start reports the controller source as unavailable on this platform
func (cm *ControllerMonitor) Start() error {
	cm.log.LogInfo("Controller input not supported on this platform")
	return nil
}

// Stop terminates the poll loop
func (cm *ControllerMonitor) Stop() {}

// IsRunning returns whether the poll loop is active
func (cm *ControllerMonitor) IsRunning() bool { return false }
