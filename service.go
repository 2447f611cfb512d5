package main

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Owner labels for the built-in global slots. These appear verbatim in
// conflict messages and saved layouts.
const (
	ownerStopSpeech   = "Stop Speech"
	ownerPauseResume  = "Pause/Resume Speech"
	ownerToggleEditor = "Toggle Edit Mode"
	ownerRepeatLatest = "Repeat Latest"
)

// GameReaderService wires the capture engine, the reading pipeline and
// the persistence layers together and owns their lifecycle
type GameReaderService struct {
	config *Config
	log    *LogManager
	notify *NotificationManager
	audio  *AudioManager

	registry   *HotkeyRegistry
	resolver   *KeySymbolResolver
	gate       *InputGate
	runtime    *DispatchRuntime
	hooks      *HookManager
	controller *ControllerMonitor
	numlock    *NumLockManager

	ocr     *OCRManager
	tts     *TTSManager
	areas   *AreaManager
	layouts *LayoutManager
	history *HistoryManager
	updater *UpdateChecker

	mutex        sync.Mutex
	activeLayout string
	editMode     bool
}

// NewGameReaderService builds the full object graph from configuration
func NewGameReaderService(config *Config, log *LogManager) (*GameReaderService, error) {
	notify := NewNotificationManager(config)
	audio := NewAudioManager(config, log)

	ocr, err := NewOCRManager(config, log)
	if err != nil {
		return nil, err
	}

	tts, err := NewTTSManager(config, log)
	if err != nil {
		ocr.Close()
		return nil, err
	}

	var history *HistoryManager
	if config.History.Enabled {
		historyPath := filepath.Join(filepath.Dir(config.Layout.Dir), "history.db")
		history, err = NewHistoryManager(historyPath, config.History.MaxEntries)
		if err != nil {
			// History is a convenience; the reader still works without it
			log.LogWarning("History disabled", "error", err.Error())
			history = nil
		}
	}

	numlock, err := NewNumLockManager()
	if err != nil {
		log.LogWarning("Num Lock restore unavailable", "error", err.Error())
		numlock = nil
	}

	registry := NewHotkeyRegistry()
	resolver := NewKeySymbolResolver(SystemLockState{}, log)
	gate := NewInputGate()

	runtime := NewDispatchRuntime(config.RuntimeConfig(), registry, resolver, gate, log,
		config.BuilderConfig(), notify.NotifyConflict, notify.NotifyRestricted)

	areas := NewAreaManager(registry, ocr, tts, history, audio, notify, log)

	layouts, err := NewLayoutManager(config.Layout.Dir, areas, registry, notify, log)
	if err != nil {
		tts.Close()
		ocr.Close()
		return nil, err
	}

	s := &GameReaderService{
		config:     config,
		log:        log,
		notify:     notify,
		audio:      audio,
		registry:   registry,
		resolver:   resolver,
		gate:       gate,
		runtime:    runtime,
		hooks:      NewHookManager(runtime, log, notify),
		controller: NewControllerMonitor(runtime, log),
		numlock:    numlock,
		ocr:        ocr,
		tts:        tts,
		areas:      areas,
		layouts:    layouts,
		history:    history,
		updater:    NewUpdateChecker(config, notify),
	}

	s.registerSlotActions()
	return s, nil
}

// Start brings up speech, the input hooks and the persisted layout
func (s *GameReaderService) Start() error {
	if err := s.tts.Start(); err != nil {
		return fmt.Errorf("failed to start speech: %v", err)
	}

	if err := s.registerGlobalSlots(); err != nil {
		return err
	}

	if s.config.Layout.AutoloadLast {
		if name, ok := s.layouts.LastUsed(); ok {
			if err := s.layouts.Load(name); err != nil {
				s.log.LogError("Failed to autoload layout", err, "name", name)
			} else {
				s.mutex.Lock()
				s.activeLayout = name
				s.mutex.Unlock()
			}
		}
	}

	if err := s.hooks.Start(); err != nil {
		return err
	}
	if err := s.controller.Start(); err != nil {
		// A missing controller backend only loses one input source
		s.log.LogWarning("Controller input unavailable", "error", err.Error())
	}

	if s.config.Updates.CheckOnStartup {
		go s.updater.PerformUpdateCheck()
	}

	s.log.LogInfo("GameTextReader started", "version", Version)
	s.notify.NotifyInfo("GameTextReader", "Running. Hotkeys are live.")
	return nil
}

// Shutdown tears everything down in reverse dependency order
func (s *GameReaderService) Shutdown() {
	s.areas.StopAllAutomations()
	s.controller.Stop()
	s.hooks.Stop()
	s.tts.Close()
	s.ocr.Close()
	if s.history != nil {
		s.history.Close()
	}
	s.log.LogInfo("GameTextReader stopped")
}

// RequestAssignment starts an interactive hotkey capture for owner.
// Returns a cancel handle; the outcome arrives through cb.OnDone. A
// committed chord is persisted to the active layout off the input path.
func (s *GameReaderService) RequestAssignment(owner string, action HotkeyAction, cb AssignmentCallbacks) func() {
	session := NewAssignmentSession(owner, action, s.config.AssignmentConfig(),
		s.registry, s.runtime, s.numlock, s.log, cb, s.onAssignmentCommitted)
	return session.Start()
}

// onAssignmentCommitted persists the updated bindings after a commit
func (s *GameReaderService) onAssignmentCommitted(owner string, chord Chord) {
	s.audio.PlaySuccessSound()
	s.notify.NotifySuccess(fmt.Sprintf("%s is now %s", owner, string(chord)))

	s.mutex.Lock()
	name := s.activeLayout
	s.mutex.Unlock()
	if name != "" {
		s.layouts.SaveAsync(name)
	}
}

// SaveLayout persists the current state under name and makes it active
func (s *GameReaderService) SaveLayout(name string) error {
	if err := s.layouts.Save(name); err != nil {
		return err
	}
	s.mutex.Lock()
	s.activeLayout = name
	s.mutex.Unlock()
	return nil
}

// LoadLayout applies a saved layout and makes it active
func (s *GameReaderService) LoadLayout(name string) error {
	if err := s.layouts.Load(name); err != nil {
		return err
	}
	s.mutex.Lock()
	s.activeLayout = name
	s.mutex.Unlock()
	return nil
}

// registerSlotActions teaches the layout loader how to rebuild the
// global slots' actions from their persisted owner labels
func (s *GameReaderService) registerSlotActions() {
	s.layouts.SetSlotAction(ownerStopSpeech, s.tts.Interrupt)
	s.layouts.SetSlotAction(ownerPauseResume, s.tts.TogglePause)
	s.layouts.SetSlotAction(ownerToggleEditor, s.toggleEditMode)
	s.layouts.SetSlotAction(ownerRepeatLatest, s.areas.RepeatLatest)
}

// registerGlobalSlots binds the built-in speech slots to their default
// chords. A chord already claimed by a loaded layout wins; the default
// is skipped with a log line rather than an error.
func (s *GameReaderService) registerGlobalSlots() error {
	slots := []struct {
		owner  string
		chord  string
		action HotkeyAction
	}{
		{ownerStopSpeech, s.config.Hotkeys.StopSpeech, s.tts.Interrupt},
		{ownerPauseResume, s.config.Hotkeys.PauseResume, s.tts.TogglePause},
		{ownerToggleEditor, s.config.Hotkeys.ToggleEditor, s.toggleEditMode},
		{ownerRepeatLatest, s.config.Hotkeys.RepeatLatest, s.areas.RepeatLatest},
	}

	for _, slot := range slots {
		if slot.chord == "" {
			continue
		}
		chord := CanonicalizeChord(slot.chord)
		if err := s.registry.Register(chord, slot.owner, slot.action); err != nil {
			if _, conflict := err.(*ConflictError); conflict {
				s.log.LogWarning("Default chord for global slot already taken",
					"owner", slot.owner, "chord", string(chord))
				continue
			}
			return fmt.Errorf("failed to register %s: %v", slot.owner, err)
		}
	}
	return nil
}

// toggleEditMode flips edit mode: while editing, reading hotkeys are
// inert and the layouts folder is opened for direct file edits
func (s *GameReaderService) toggleEditMode() {
	s.mutex.Lock()
	s.editMode = !s.editMode
	entering := s.editMode
	s.mutex.Unlock()

	s.areas.SetEditMode(entering)
	if entering {
		s.tts.Interrupt()
		s.notify.NotifyInfo("GameTextReader", "Edit mode on: reading hotkeys paused")
		if err := s.layouts.OpenFolder(); err != nil {
			s.log.LogWarning("Failed to open layouts folder", "error", err.Error())
		}
	} else {
		s.notify.NotifyInfo("GameTextReader", "Edit mode off: reading hotkeys live")
	}
}
