package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skratchdot/open-golang/open"
)

// ComboDef is the persisted form of a reading combo
type ComboDef struct {
	Name  string   `json:"name"`
	Areas []string `json:"areas"`
}

// BindingDef is the persisted form of one hotkey binding
type BindingDef struct {
	Owner string `json:"owner"`
	Chord string `json:"chord"`
}

// LayoutFile is the on-disk layout format
type LayoutFile struct {
	Name        string          `json:"name"`
	SavedAt     time.Time       `json:"saved_at"`
	Areas       []Area          `json:"areas"`
	Combos      []ComboDef      `json:"combos"`
	Automations []AutomationDef `json:"automations,omitempty"`
	Bindings    []BindingDef    `json:"bindings"`
}

// LayoutManager saves and restores area definitions and hotkey bindings
// as JSON files in the layouts directory. Chords are persisted in their
// canonical form, so save and load round-trip losslessly. Colliding
// bindings found while loading are parked as stale so neither claimant
// fires until the user reassigns one.
type LayoutManager struct {
	dir      string
	areas    *AreaManager
	registry *HotkeyRegistry
	notify   *NotificationManager
	log      *LogManager

	mutex sync.Mutex
	// slotActions resolves owner labels that are not area or combo
	// prefixed, e.g. the global speech slots
	slotActions map[string]HotkeyAction
}

// NewLayoutManager creates a layout manager rooted at dir
func NewLayoutManager(dir string, areas *AreaManager, registry *HotkeyRegistry,
	notify *NotificationManager, log *LogManager) (*LayoutManager, error) {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create layouts directory: %v", err)
	}
	return &LayoutManager{
		dir:         dir,
		areas:       areas,
		registry:    registry,
		notify:      notify,
		log:         log,
		slotActions: make(map[string]HotkeyAction),
	}, nil
}

// SetSlotAction registers the action used when a loaded layout names a
// non-area owner, such as a global speech slot
func (lm *LayoutManager) SetSlotAction(owner string, action HotkeyAction) {
	lm.mutex.Lock()
	lm.slotActions[owner] = action
	lm.mutex.Unlock()
}

// layoutPath returns the file path for a layout name
func (lm *LayoutManager) layoutPath(name string) string {
	return filepath.Join(lm.dir, name+".json")
}

// Save writes the current areas, combos and bindings to dir/name.json
func (lm *LayoutManager) Save(name string) error {
	if name == "" {
		return fmt.Errorf("layout name must not be empty")
	}

	layout := LayoutFile{
		Name:    name,
		SavedAt: time.Now(),
		Areas:   lm.areas.Areas(),
	}
	sort.Slice(layout.Areas, func(i, j int) bool { return layout.Areas[i].Name < layout.Areas[j].Name })

	lm.areas.mutex.Lock()
	for comboName, areaNames := range lm.areas.combos {
		layout.Combos = append(layout.Combos, ComboDef{Name: comboName, Areas: append([]string(nil), areaNames...)})
	}
	lm.areas.mutex.Unlock()
	sort.Slice(layout.Combos, func(i, j int) bool { return layout.Combos[i].Name < layout.Combos[j].Name })

	layout.Automations = lm.areas.Automations()
	sort.Slice(layout.Automations, func(i, j int) bool { return layout.Automations[i].Name < layout.Automations[j].Name })

	for _, binding := range lm.registry.Bindings() {
		layout.Bindings = append(layout.Bindings, BindingDef{
			Owner: binding.Owner,
			Chord: string(binding.Chord),
		})
	}

	data, err := json.MarshalIndent(&layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode layout: %v", err)
	}

	path := lm.layoutPath(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write layout: %v", err)
	}

	lm.rememberLast(name)
	lm.log.LogInfo("Layout saved", "name", name, "path", path)
	return nil
}

// SaveAsync saves off the input path, logging failures
func (lm *LayoutManager) SaveAsync(name string) {
	go func() {
		if err := lm.Save(name); err != nil {
			lm.log.LogError("Background layout save failed", err, "name", name)
		}
	}()
}

// Load reads dir/name.json and applies it: areas and combos replace the
// current set, bindings register into the shared registry. A chord
// claimed twice in the file is registered once and parked stale for the
// later claimants.
func (lm *LayoutManager) Load(name string) error {
	data, err := os.ReadFile(lm.layoutPath(name))
	if err != nil {
		return fmt.Errorf("failed to read layout: %v", err)
	}

	var layout LayoutFile
	if err := json.Unmarshal(data, &layout); err != nil {
		return fmt.Errorf("failed to parse layout: %v", err)
	}

	for _, area := range layout.Areas {
		if err := lm.areas.AddArea(area); err != nil {
			lm.log.LogWarning("Skipping invalid area in layout", "name", area.Name, "error", err.Error())
		}
	}
	for _, combo := range layout.Combos {
		if err := lm.areas.AddCombo(combo.Name, combo.Areas); err != nil {
			lm.log.LogWarning("Skipping invalid combo in layout", "name", combo.Name, "error", err.Error())
		}
	}
	for _, def := range layout.Automations {
		if err := lm.areas.AddAutomation(def); err != nil {
			lm.log.LogWarning("Skipping invalid automation in layout", "name", def.Name, "error", err.Error())
		}
	}

	var staleChords []string
	for _, def := range layout.Bindings {
		chord := CanonicalizeChord(def.Chord)
		if chord == "" {
			lm.log.LogWarning("Skipping binding with empty chord", "owner", def.Owner)
			continue
		}

		action, ok := lm.resolveAction(def.Owner)
		if !ok {
			lm.log.LogWarning("Skipping binding with unknown owner", "owner", def.Owner, "chord", string(chord))
			continue
		}

		if err := lm.registry.Register(chord, def.Owner, action); err != nil {
			if _, conflict := err.(*ConflictError); conflict {
				// Both claimants go inert until the user reassigns one
				lm.registry.RegisterStale(chord, def.Owner)
				staleChords = append(staleChords, string(chord))
				continue
			}
			lm.log.LogWarning("Failed to register binding from layout", "owner", def.Owner,
				"chord", string(chord), "error", err.Error())
		}
	}

	if len(staleChords) > 0 {
		lm.notify.NotifyError("Layout " + name + " has duplicate hotkeys (" +
			strings.Join(staleChords, ", ") + "); reassign them to reactivate")
	}

	lm.rememberLast(name)
	lm.log.LogInfo("Layout loaded", "name", name,
		"areas", fmt.Sprintf("%d", len(layout.Areas)),
		"bindings", fmt.Sprintf("%d", len(layout.Bindings)))
	return nil
}

// resolveAction maps a persisted owner label back to its action
func (lm *LayoutManager) resolveAction(owner string) (HotkeyAction, bool) {
	if name, ok := strings.CutPrefix(owner, "Area: "); ok {
		return lm.areas.AreaAction(name), true
	}
	if name, ok := strings.CutPrefix(owner, "Combo: "); ok {
		return lm.areas.ComboAction(name), true
	}
	if name, ok := strings.CutPrefix(owner, "Automation: "); ok {
		return lm.areas.AutomationToggleAction(name), true
	}

	lm.mutex.Lock()
	action, ok := lm.slotActions[owner]
	lm.mutex.Unlock()
	return action, ok
}

// List returns the saved layout names sorted alphabetically
func (lm *LayoutManager) List() ([]string, error) {
	entries, err := os.ReadDir(lm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// LastUsed returns the most recently saved or loaded layout name
func (lm *LayoutManager) LastUsed() (string, bool) {
	data, err := os.ReadFile(filepath.Join(lm.dir, ".last"))
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", false
	}
	if _, err := os.Stat(lm.layoutPath(name)); err != nil {
		return "", false
	}
	return name, true
}

// rememberLast records name as the most recently used layout
func (lm *LayoutManager) rememberLast(name string) {
	if err := os.WriteFile(filepath.Join(lm.dir, ".last"), []byte(name), 0644); err != nil {
		lm.log.LogWarning("Failed to record last layout", "error", err.Error())
	}
}

// OpenFolder opens the layouts directory in the system file manager
func (lm *LayoutManager) OpenFolder() error {
	return open.Start(lm.dir)
}
