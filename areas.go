package main

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Area is one user-defined screen region to read aloud
type Area struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// Voice optionally overrides the default voice for this area
	Voice string `json:"voice,omitempty"`
}

// AutomationDef is one user-defined interval reader. Definitions persist
// in layouts; whether an instance is running does not.
type AutomationDef struct {
	Name       string `json:"name"`
	Area       string `json:"area"`
	IntervalMs int    `json:"interval_ms"`
}

func (d AutomationDef) interval() time.Duration {
	return time.Duration(d.IntervalMs) * time.Millisecond
}

// automation is the running instance of a definition, speaking only when
// the text changed since the previous read
type automation struct {
	def      AutomationDef
	stop     chan struct{}
	lastText string
}

// RegionReader captures a screen rectangle and returns its text
type RegionReader interface {
	ReadRegion(x, y, width, height int) (string, error)
}

// AreaManager owns the screen areas, reading combos and interval
// automations, and binds their hotkey actions into the shared registry.
// Owner labels carry a category prefix so conflict messages read
// naturally ("Area: Chat log", "Combo: Status").
type AreaManager struct {
	registry *HotkeyRegistry
	ocr      RegionReader
	tts      *TTSManager
	history  *HistoryManager
	audio    *AudioManager
	notify   *NotificationManager
	log      *LogManager

	mutex       sync.Mutex
	areas       map[string]*Area
	combos      map[string][]string
	autoDefs    map[string]AutomationDef
	automations map[string]*automation
	editMode    bool

	latestOwner string
	latestText  string
}

// NewAreaManager creates an empty area manager. history may be nil when
// the history feature is disabled.
func NewAreaManager(registry *HotkeyRegistry, ocr RegionReader, tts *TTSManager,
	history *HistoryManager, audio *AudioManager, notify *NotificationManager,
	log *LogManager) *AreaManager {

	return &AreaManager{
		registry:    registry,
		ocr:         ocr,
		tts:         tts,
		history:     history,
		audio:       audio,
		notify:      notify,
		log:         log,
		areas:       make(map[string]*Area),
		combos:      make(map[string][]string),
		autoDefs:    make(map[string]AutomationDef),
		automations: make(map[string]*automation),
	}
}

// AreaOwner returns the registry owner label for an area name
func AreaOwner(name string) string { return "Area: " + name }

// ComboOwner returns the registry owner label for a combo name
func ComboOwner(name string) string { return "Combo: " + name }

// AutomationOwner returns the registry owner label for an automation name
func AutomationOwner(name string) string { return "Automation: " + name }

// AddArea defines or replaces an area
func (am *AreaManager) AddArea(area Area) error {
	if area.Name == "" {
		return fmt.Errorf("area name must not be empty")
	}
	if area.Width <= 0 || area.Height <= 0 {
		return fmt.Errorf("area %q has invalid size %dx%d", area.Name, area.Width, area.Height)
	}

	am.mutex.Lock()
	am.areas[area.Name] = &area
	am.mutex.Unlock()

	am.log.LogInfo("Area defined", "name", area.Name,
		"rect", fmt.Sprintf("%d,%d %dx%d", area.X, area.Y, area.Width, area.Height))
	return nil
}

// RemoveArea deletes an area and releases its hotkey
func (am *AreaManager) RemoveArea(name string) {
	am.mutex.Lock()
	delete(am.areas, name)
	am.mutex.Unlock()

	am.registry.UnregisterOwner(AreaOwner(name))
}

// Areas returns a snapshot of the defined areas
func (am *AreaManager) Areas() []Area {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	out := make([]Area, 0, len(am.areas))
	for _, area := range am.areas {
		out = append(out, *area)
	}
	return out
}

// AreaAction returns the hotkey action that reads the named area
func (am *AreaManager) AreaAction(name string) HotkeyAction {
	return func() {
		go am.readArea(AreaOwner(name), name)
	}
}

// SetEditMode makes the reading actions inert while the user is editing
// their layout; the toggle hotkey itself stays live
func (am *AreaManager) SetEditMode(editing bool) {
	am.mutex.Lock()
	am.editMode = editing
	am.mutex.Unlock()
}

func (am *AreaManager) editing() bool {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	return am.editMode
}

func (am *AreaManager) readArea(owner, name string) {
	if am.editing() {
		return
	}

	am.mutex.Lock()
	area, ok := am.areas[name]
	am.mutex.Unlock()

	if !ok {
		am.log.LogWarning("Hotkey fired for unknown area", "name", name)
		return
	}

	text, err := am.ocr.ReadRegion(area.X, area.Y, area.Width, area.Height)
	if err != nil {
		am.log.LogError("Failed to read area", err, "name", name)
		am.audio.PlayErrorSound()
		return
	}
	if text == "" {
		am.log.LogInfo("Area contained no readable text", "name", name)
		return
	}

	am.speak(owner, text, area.Voice)
}

// AddCombo defines an ordered group of areas read back-to-back
func (am *AreaManager) AddCombo(name string, areaNames []string) error {
	if name == "" {
		return fmt.Errorf("combo name must not be empty")
	}
	if len(areaNames) == 0 {
		return fmt.Errorf("combo %q names no areas", name)
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	for _, areaName := range areaNames {
		if _, ok := am.areas[areaName]; !ok {
			return fmt.Errorf("combo %q references unknown area %q", name, areaName)
		}
	}
	am.combos[name] = append([]string(nil), areaNames...)
	return nil
}

// RemoveCombo deletes a combo and releases its hotkey
func (am *AreaManager) RemoveCombo(name string) {
	am.mutex.Lock()
	delete(am.combos, name)
	am.mutex.Unlock()

	am.registry.UnregisterOwner(ComboOwner(name))
}

// ComboAction returns the hotkey action that reads the named combo
func (am *AreaManager) ComboAction(name string) HotkeyAction {
	return func() {
		go am.readCombo(name)
	}
}

func (am *AreaManager) readCombo(name string) {
	if am.editing() {
		return
	}

	am.mutex.Lock()
	areaNames, ok := am.combos[name]
	am.mutex.Unlock()

	if !ok {
		am.log.LogWarning("Hotkey fired for unknown combo", "name", name)
		return
	}

	var parts []string
	for _, areaName := range areaNames {
		am.mutex.Lock()
		area, ok := am.areas[areaName]
		am.mutex.Unlock()
		if !ok {
			continue
		}

		text, err := am.ocr.ReadRegion(area.X, area.Y, area.Width, area.Height)
		if err != nil {
			am.log.LogError("Failed to read combo area", err, "combo", name, "area", areaName)
			continue
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		am.log.LogInfo("Combo contained no readable text", "name", name)
		return
	}
	am.speak(ComboOwner(name), strings.Join(parts, ". "), "")
}

// AddAutomation defines or replaces an interval reader. A running
// instance of the old definition is stopped first.
func (am *AreaManager) AddAutomation(def AutomationDef) error {
	if def.Name == "" {
		return fmt.Errorf("automation name must not be empty")
	}
	if def.interval() < time.Second {
		return fmt.Errorf("automation %q interval must be at least 1s, got %v", def.Name, def.interval())
	}

	am.mutex.Lock()
	if _, ok := am.areas[def.Area]; !ok {
		am.mutex.Unlock()
		return fmt.Errorf("automation %q references unknown area %q", def.Name, def.Area)
	}
	if running, ok := am.automations[def.Name]; ok {
		close(running.stop)
		delete(am.automations, def.Name)
	}
	am.autoDefs[def.Name] = def
	am.mutex.Unlock()
	return nil
}

// RemoveAutomation stops and deletes an automation and releases its hotkey
func (am *AreaManager) RemoveAutomation(name string) {
	am.StopAutomation(name)

	am.mutex.Lock()
	delete(am.autoDefs, name)
	am.mutex.Unlock()

	am.registry.UnregisterOwner(AutomationOwner(name))
}

// Automations returns a snapshot of the defined automations
func (am *AreaManager) Automations() []AutomationDef {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	out := make([]AutomationDef, 0, len(am.autoDefs))
	for _, def := range am.autoDefs {
		out = append(out, def)
	}
	return out
}

// StartAutomation begins the named automation's poll loop. Starting an
// already-running automation is a no-op.
func (am *AreaManager) StartAutomation(name string) error {
	am.mutex.Lock()
	def, ok := am.autoDefs[name]
	if !ok {
		am.mutex.Unlock()
		return fmt.Errorf("unknown automation %q", name)
	}
	if _, running := am.automations[name]; running {
		am.mutex.Unlock()
		return nil
	}
	auto := &automation{def: def, stop: make(chan struct{})}
	am.automations[name] = auto
	am.mutex.Unlock()

	go am.automationLoop(auto)
	am.log.LogInfo("Automation started", "name", name, "area", def.Area, "interval", def.interval().String())
	return nil
}

// StopAutomation stops a running automation; a defined but idle one is
// left alone
func (am *AreaManager) StopAutomation(name string) {
	am.mutex.Lock()
	auto, ok := am.automations[name]
	if ok {
		close(auto.stop)
		delete(am.automations, name)
	}
	am.mutex.Unlock()

	if ok {
		am.log.LogInfo("Automation stopped", "name", name)
	}
}

// StopAllAutomations stops every running automation
func (am *AreaManager) StopAllAutomations() {
	am.mutex.Lock()
	for name, auto := range am.automations {
		close(auto.stop)
		delete(am.automations, name)
	}
	am.mutex.Unlock()
}

// AutomationRunning reports whether the named automation is polling
func (am *AreaManager) AutomationRunning(name string) bool {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	_, ok := am.automations[name]
	return ok
}

// AutomationToggleAction returns the hotkey action toggling the named
// automation on and off
func (am *AreaManager) AutomationToggleAction(name string) HotkeyAction {
	return func() {
		if am.AutomationRunning(name) {
			am.StopAutomation(name)
			return
		}
		if err := am.StartAutomation(name); err != nil {
			am.log.LogError("Failed to start automation", err, "name", name)
		}
	}
}

func (am *AreaManager) automationLoop(auto *automation) {
	ticker := time.NewTicker(auto.def.interval())
	defer ticker.Stop()

	for {
		select {
		case <-auto.stop:
			return
		case <-ticker.C:
			am.automationTick(auto)
		}
	}
}

// automationTick reads the automation's area and speaks only new text
func (am *AreaManager) automationTick(auto *automation) {
	if am.editing() {
		return
	}

	am.mutex.Lock()
	area, ok := am.areas[auto.def.Area]
	am.mutex.Unlock()
	if !ok {
		return
	}

	text, err := am.ocr.ReadRegion(area.X, area.Y, area.Width, area.Height)
	if err != nil {
		am.log.LogError("Automation read failed", err, "name", auto.def.Name)
		return
	}
	if text == "" || text == auto.lastText {
		return
	}
	auto.lastText = text

	am.speak(AutomationOwner(auto.def.Name), text, area.Voice)
}

// RepeatLatest re-speaks the most recently spoken text, falling back to
// the persisted history when nothing was spoken this run
func (am *AreaManager) RepeatLatest() {
	am.mutex.Lock()
	owner, text := am.latestOwner, am.latestText
	am.mutex.Unlock()

	if text == "" && am.history != nil {
		if entries, err := am.history.Latest(1); err == nil && len(entries) > 0 {
			owner, text = entries[0].Owner, entries[0].Text
		}
	}
	if text == "" {
		am.log.LogInfo("Nothing to repeat yet")
		return
	}
	am.log.LogInfo("Repeating latest text", "owner", owner)
	am.tts.Speak(text)
}

// speak queues text, remembers it for repeat-latest and records history
func (am *AreaManager) speak(owner, text, voice string) {
	am.mutex.Lock()
	am.latestOwner = owner
	am.latestText = text
	am.mutex.Unlock()

	if voice != "" {
		if err := am.tts.engine.SetVoice(voice); err != nil {
			am.log.LogWarning("Per-area voice not available", "voice", voice, "error", err.Error())
		}
	}

	am.tts.Speak(text)
	am.log.LogSpokenText(owner, text)

	if am.history != nil {
		if err := am.history.Record(owner, text); err != nil {
			am.log.LogWarning("Failed to record history", "error", err.Error())
		}
	}
}
