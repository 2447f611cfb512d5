package main

import (
	"fmt"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// HookInstallError reports that the OS refused a global input hook for
// one source. Fatal to that source only; the others keep operating.
type HookInstallError struct {
	Source EventSource
	Err    error
}

// Error implements the error interface
func (e *HookInstallError) Error() string {
	return fmt.Sprintf("failed to install %s hook: %v", e.Source, e.Err)
}

// HookManager owns the global keyboard and mouse hook stream and feeds
// every raw event into the dispatch runtime's single funnel. The
// controller source runs its own poll loop (see ControllerMonitor); all
// three deliver into the same runtime.
type HookManager struct {
	runtime *DispatchRuntime
	log     *LogManager
	notify  *NotificationManager

	stopChannel chan bool
	running     bool
	hookActive  bool
	mutex       sync.RWMutex
}

// NewHookManager creates a hook manager delivering into runtime
func NewHookManager(runtime *DispatchRuntime, log *LogManager, notify *NotificationManager) *HookManager {
	return &HookManager{
		runtime:     runtime,
		log:         log,
		notify:      notify,
		stopChannel: make(chan bool, 1),
	}
}

// Start begins the global keyboard/mouse hook in a background goroutine
func (hm *HookManager) Start() error {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	if hm.running {
		return fmt.Errorf("hook manager already running")
	}
	hm.running = true

	go hm.monitorLoopWithRecovery()
	return nil
}

// Stop terminates the hook stream
func (hm *HookManager) Stop() {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	if !hm.running {
		return
	}
	hm.running = false

	if hm.hookActive {
		hook.End()
		hm.hookActive = false
	}

	select {
	case hm.stopChannel <- true:
	default:
	}
}

// IsRunning returns whether the hook stream is active
func (hm *HookManager) IsRunning() bool {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()
	return hm.running
}

// monitorLoopWithRecovery restarts the hook loop after transient errors.
// A hook the OS refuses permanently is surfaced once as a persistent
// status rather than a repeated popup.
func (hm *HookManager) monitorLoopWithRecovery() {
	maxRetries := 3
	retryCount := 0

	for {
		select {
		case <-hm.stopChannel:
			return
		default:
		}

		if !hm.IsRunning() {
			return
		}

		err := hm.monitorLoop()
		if !hm.IsRunning() {
			return
		}

		retryCount++
		if retryCount > maxRetries {
			installErr := &HookInstallError{Source: SourceKeyboard, Err: err}
			hm.log.LogError("Keyboard/mouse hook failed permanently, hotkeys from these sources are disabled", installErr)
			if hm.notify != nil {
				hm.notify.NotifyErrorThrottled("hook-install-failure", installErr.Error())
			}
			return
		}

		hm.log.LogWarning("Input hook error, restarting",
			"attempt", fmt.Sprintf("%d/%d", retryCount, maxRetries), "error", err.Error())
		time.Sleep(time.Duration(retryCount) * time.Second)
	}
}

// monitorLoop subscribes to the global hook stream and translates events.
// The hook observes rather than consumes: unmatched keys keep their
// normal effect in other applications, and the per-family suppression of
// numpad/special keys is applied by the OS-level hook backend where it
// supports it.
func (hm *HookManager) monitorLoop() error {
	evChan := hook.Start()
	if evChan == nil {
		return fmt.Errorf("global input hook refused by the OS")
	}
	defer hook.End()

	hm.mutex.Lock()
	hm.hookActive = true
	hm.mutex.Unlock()

	hm.log.LogInfo("Global keyboard and mouse hooks installed")

	for {
		select {
		case <-hm.stopChannel:
			hm.mutex.Lock()
			hm.hookActive = false
			hm.mutex.Unlock()
			return nil
		case ev, ok := <-evChan:
			if !ok {
				hm.mutex.Lock()
				hm.hookActive = false
				hm.mutex.Unlock()
				return fmt.Errorf("hook event channel closed unexpectedly")
			}
			if keyEvent, ok := translateHookEvent(ev); ok {
				hm.runtime.HandleEvent(keyEvent)
			}
		}
	}
}

// translateHookEvent converts a gohook event into the engine's KeyEvent.
// Move/drag/wheel events and key auto-repeat are dropped here.
func translateHookEvent(ev hook.Event) (KeyEvent, bool) {
	switch ev.Kind {
	case hook.KeyDown:
		return KeyEvent{
			Source:  SourceKeyboard,
			Code:    ev.Rawcode,
			Name:    hook.RawcodetoKeychar(ev.Rawcode),
			Pressed: true,
			When:    time.Now(),
		}, true
	case hook.KeyUp:
		return KeyEvent{
			Source:  SourceKeyboard,
			Code:    ev.Rawcode,
			Name:    hook.RawcodetoKeychar(ev.Rawcode),
			Pressed: false,
			When:    time.Now(),
		}, true
	case hook.MouseDown:
		return KeyEvent{
			Source:  SourceMouse,
			Code:    ev.Button,
			Pressed: true,
			When:    time.Now(),
		}, true
	case hook.MouseUp:
		return KeyEvent{
			Source:  SourceMouse,
			Code:    ev.Button,
			Pressed: false,
			When:    time.Now(),
		}, true
	}
	return KeyEvent{}, false
}
