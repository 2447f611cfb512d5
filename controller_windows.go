//go:build windows
// +build windows

package main

import (
	"fmt"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

var (
	winmm             = syscall.NewLazyDLL("winmm.dll")
	procJoyGetNumDevs = winmm.NewProc("joyGetNumDevs")
	procJoyGetPosEx   = winmm.NewProc("joyGetPosEx")
)

const (
	joyReturnAll    = 0x000000FF
	joyErrNoError   = 0
	joyErrUnplugged = 167
	povCentered     = 0xFFFF
)

// joyInfoEx mirrors the winmm JOYINFOEX structure
type joyInfoEx struct {
	dwSize         uint32
	dwFlags        uint32
	dwXpos         uint32
	dwYpos         uint32
	dwZpos         uint32
	dwRpos         uint32
	dwUpos         uint32
	dwVpos         uint32
	dwButtons      uint32
	dwButtonNumber uint32
	dwPOV          uint32
	dwReserved1    uint32
	dwReserved2    uint32
}

// controllerButtonCount is how many generic buttons are surfaced; the
// names are controller-agnostic (btn_1 is A/Cross/B depending on brand)
const controllerButtonCount = 11

// ControllerMonitor polls the first attached game controller and feeds
// button and D-pad transitions into the dispatch runtime as controller
// KeyEvents. It is the third independent event producer next to the
// keyboard and mouse hooks.
type ControllerMonitor struct {
	runtime      *DispatchRuntime
	log          *LogManager
	pollInterval time.Duration

	stopChannel chan bool
	running     bool
	mutex       sync.RWMutex

	prevButtons uint32
	prevPOV     Symbol
}

// NewControllerMonitor creates a controller monitor delivering into runtime
func NewControllerMonitor(runtime *DispatchRuntime, log *LogManager) *ControllerMonitor {
	return &ControllerMonitor{
		runtime:      runtime,
		log:          log,
		pollInterval: 30 * time.Millisecond,
		stopChannel:  make(chan bool, 1),
	}
}

// Start begins polling in a background goroutine
func (cm *ControllerMonitor) Start() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.running {
		return fmt.Errorf("controller monitor already running")
	}

	ret, _, _ := procJoyGetNumDevs.Call()
	if ret == 0 {
		return &HookInstallError{Source: SourceController, Err: fmt.Errorf("no joystick driver present")}
	}

	cm.running = true
	go cm.pollLoop()
	return nil
}

// Stop terminates the poll loop
func (cm *ControllerMonitor) Stop() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if !cm.running {
		return
	}
	cm.running = false

	select {
	case cm.stopChannel <- true:
	default:
	}
}

// IsRunning returns whether the poll loop is active
func (cm *ControllerMonitor) IsRunning() bool {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.running
}

// pollLoop reads controller state on a ticker and emits transitions
func (cm *ControllerMonitor) pollLoop() {
	cm.log.LogInfo("Controller monitor started")

	ticker := time.NewTicker(cm.pollInterval)
	defer ticker.Stop()

	unplugged := false
	for {
		select {
		case <-cm.stopChannel:
			cm.log.LogInfo("Controller monitor stopped")
			return
		case <-ticker.C:
			info := joyInfoEx{dwFlags: joyReturnAll}
			info.dwSize = uint32(unsafe.Sizeof(info))

			ret, _, _ := procJoyGetPosEx.Call(0, uintptr(unsafe.Pointer(&info)))
			switch ret {
			case joyErrNoError:
				if unplugged {
					cm.log.LogInfo("Controller reconnected")
					unplugged = false
				}
				cm.emitTransitions(info)
			case joyErrUnplugged:
				if !unplugged {
					cm.log.LogWarning("Controller disconnected, waiting for reconnect")
					unplugged = true
					cm.releaseAll()
				}
				time.Sleep(time.Second)
			default:
				// Transient driver errors: release held state, keep polling
				cm.releaseAll()
			}
		}
	}
}

// emitTransitions diffs the polled state against the previous poll and
// feeds press/release events into the runtime
func (cm *ControllerMonitor) emitTransitions(info joyInfoEx) {
	changed := info.dwButtons ^ cm.prevButtons
	for bit := uint(0); bit < controllerButtonCount; bit++ {
		mask := uint32(1) << bit
		if changed&mask == 0 {
			continue
		}
		cm.sendButton(uint16(bit+1), Symbol(fmt.Sprintf("btn_%d", bit+1)), info.dwButtons&mask != 0)
	}
	cm.prevButtons = info.dwButtons

	pov := povSymbol(info.dwPOV)
	if pov != cm.prevPOV {
		if cm.prevPOV != "" {
			cm.sendButton(0, cm.prevPOV, false)
		}
		if pov != "" {
			cm.sendButton(0, pov, true)
		}
		cm.prevPOV = pov
	}
}

// releaseAll emits releases for everything currently held, used when the
// controller goes away mid-press
func (cm *ControllerMonitor) releaseAll() {
	for bit := uint(0); bit < controllerButtonCount; bit++ {
		mask := uint32(1) << bit
		if cm.prevButtons&mask != 0 {
			cm.sendButton(uint16(bit+1), Symbol(fmt.Sprintf("btn_%d", bit+1)), false)
		}
	}
	cm.prevButtons = 0

	if cm.prevPOV != "" {
		cm.sendButton(0, cm.prevPOV, false)
		cm.prevPOV = ""
	}
}

// sendButton delivers one controller transition into the runtime funnel
func (cm *ControllerMonitor) sendButton(code uint16, sym Symbol, pressed bool) {
	cm.runtime.HandleEvent(KeyEvent{
		Source:  SourceController,
		Code:    code,
		Name:    string(sym),
		Pressed: pressed,
		When:    time.Now(),
	})
}

// povSymbol maps the four cardinal POV hat positions to D-pad Symbols.
// Diagonals and centered return "" so analog drift never triggers a
// hotkey.
func povSymbol(pov uint32) Symbol {
	switch pov {
	case 0:
		return "dpad_up"
	case 9000:
		return "dpad_right"
	case 18000:
		return "dpad_down"
	case 27000:
		return "dpad_left"
	}
	return ""
}
