package main

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
)

// notifyThrottleWindow limits how often the same throttle key may fire
const notifyThrottleWindow = 30 * time.Second

// NotificationManager handles system notifications
type NotificationManager struct {
	enabled     bool
	showSuccess bool
	showErrors  bool

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(config *Config) *NotificationManager {
	return &NotificationManager{
		enabled:     config.Notifications.Enabled,
		showSuccess: config.Notifications.ShowSuccess,
		showErrors:  config.Notifications.ShowErrors,
		lastSent:    make(map[string]time.Time),
	}
}

// NotifySuccess sends a success notification
func (nm *NotificationManager) NotifySuccess(message string) {
	if !nm.enabled || !nm.showSuccess {
		return
	}

	if err := beeep.Notify("GameTextReader", message, ""); err != nil {
		log.Printf("Failed to send success notification: %v", err)
	}
}

// NotifyError sends an error notification
func (nm *NotificationManager) NotifyError(message string) {
	if !nm.enabled || !nm.showErrors {
		return
	}

	if err := beeep.Alert("GameTextReader Error", message, ""); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

// NotifyErrorThrottled sends an error notification at most once per
// throttle window for the given key, so a repeating failure becomes a
// persistent status rather than a popup storm
func (nm *NotificationManager) NotifyErrorThrottled(key, message string) {
	nm.mu.Lock()
	last, seen := nm.lastSent[key]
	now := time.Now()
	if seen && now.Sub(last) < notifyThrottleWindow {
		nm.mu.Unlock()
		return
	}
	nm.lastSent[key] = now
	nm.mu.Unlock()

	nm.NotifyError(message)
}

// NotifyInfo sends an informational notification
func (nm *NotificationManager) NotifyInfo(title, message string) {
	if !nm.enabled {
		return
	}

	if err := beeep.Notify(title, message, ""); err != nil {
		log.Printf("Failed to send info notification: %v", err)
	}
}

// NotifyConflict surfaces a hotkey collision with the owners involved
func (nm *NotificationManager) NotifyConflict(chord Chord, owners []string) {
	nm.NotifyError("Hotkey " + string(chord) + " is already used by " + strings.Join(owners, ", "))
}

// NotifyRestricted surfaces a chord rejected by the mouse-button setting
func (nm *NotificationManager) NotifyRestricted(chord Chord, sym Symbol) {
	nm.NotifyError("Hotkey " + string(chord) + " uses " + string(sym) +
		"; enable \"allow mouse primary buttons\" in the settings to use it")
}
