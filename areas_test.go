package main

import (
	"testing"
)

// fakeRegionReader returns scripted texts in call order
type fakeRegionReader struct {
	texts []string
	calls int
}

func (f *fakeRegionReader) ReadRegion(x, y, width, height int) (string, error) {
	if f.calls >= len(f.texts) {
		return "", nil
	}
	text := f.texts[f.calls]
	f.calls++
	return text, nil
}

func newAreaHarness(t *testing.T, reader RegionReader) (*AreaManager, *TTSManager, *HotkeyRegistry) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Notifications.Enabled = false
	notify := NewNotificationManager(cfg)

	// No engine and no drain loop: Speak only queues, so the queue is the
	// observable record of what would have been spoken
	tts := &TTSManager{
		log:         newTestLog(),
		queue:       make(chan string, 16),
		stopChannel: make(chan bool, 1),
	}
	registry := NewHotkeyRegistry()
	areas := NewAreaManager(registry, reader, tts, nil, nil, notify, newTestLog())
	return areas, tts, registry
}

// drainSpoken empties the queued speech texts
func drainSpoken(tts *TTSManager) []string {
	var out []string
	for {
		select {
		case text := <-tts.queue:
			out = append(out, text)
		default:
			return out
		}
	}
}

func TestAutomationSpeaksOnlyChangedText(t *testing.T) {
	reader := &fakeRegionReader{texts: []string{"score 1", "score 1", "score 2", ""}}
	areas, tts, _ := newAreaHarness(t, reader)

	areas.AddArea(Area{Name: "Score", X: 0, Y: 0, Width: 50, Height: 20})
	if err := areas.AddAutomation(AutomationDef{Name: "Score watch", Area: "Score", IntervalMs: 1000}); err != nil {
		t.Fatalf("AddAutomation failed: %v", err)
	}

	auto := &automation{def: AutomationDef{Name: "Score watch", Area: "Score", IntervalMs: 1000}}
	for i := 0; i < 4; i++ {
		areas.automationTick(auto)
	}

	spoken := drainSpoken(tts)
	if len(spoken) != 2 || spoken[0] != "score 1" || spoken[1] != "score 2" {
		t.Errorf("spoken = %v, expected [score 1, score 2]", spoken)
	}
}

func TestAutomationToggle(t *testing.T) {
	areas, _, _ := newAreaHarness(t, &fakeRegionReader{})
	defer areas.StopAllAutomations()

	areas.AddArea(Area{Name: "Score", X: 0, Y: 0, Width: 50, Height: 20})
	if err := areas.AddAutomation(AutomationDef{Name: "Score watch", Area: "Score", IntervalMs: 60000}); err != nil {
		t.Fatalf("AddAutomation failed: %v", err)
	}

	toggle := areas.AutomationToggleAction("Score watch")

	toggle()
	if !areas.AutomationRunning("Score watch") {
		t.Fatal("automation not running after first toggle")
	}
	toggle()
	if areas.AutomationRunning("Score watch") {
		t.Fatal("automation still running after second toggle")
	}

	// The definition survives the stop, so a third toggle restarts it
	toggle()
	if !areas.AutomationRunning("Score watch") {
		t.Error("automation did not restart from its definition")
	}
}

func TestAddAutomationValidation(t *testing.T) {
	areas, _, _ := newAreaHarness(t, &fakeRegionReader{})
	areas.AddArea(Area{Name: "Score", X: 0, Y: 0, Width: 50, Height: 20})

	tests := []struct {
		name string
		def  AutomationDef
	}{
		{"empty name", AutomationDef{Name: "", Area: "Score", IntervalMs: 2000}},
		{"unknown area", AutomationDef{Name: "Watch", Area: "Missing", IntervalMs: 2000}},
		{"interval too short", AutomationDef{Name: "Watch", Area: "Score", IntervalMs: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := areas.AddAutomation(tt.def); err == nil {
				t.Errorf("AddAutomation(%+v) accepted an invalid definition", tt.def)
			}
		})
	}
}

func TestRemoveAutomationReleasesHotkey(t *testing.T) {
	areas, _, registry := newAreaHarness(t, &fakeRegionReader{})

	areas.AddArea(Area{Name: "Score", X: 0, Y: 0, Width: 50, Height: 20})
	areas.AddAutomation(AutomationDef{Name: "Score watch", Area: "Score", IntervalMs: 60000})
	registry.Register("f7", AutomationOwner("Score watch"), areas.AutomationToggleAction("Score watch"))
	areas.StartAutomation("Score watch")

	areas.RemoveAutomation("Score watch")

	if areas.AutomationRunning("Score watch") {
		t.Error("automation still running after removal")
	}
	if len(areas.Automations()) != 0 {
		t.Error("definition survived removal")
	}
	if _, ok := registry.Lookup("f7"); ok {
		t.Error("hotkey still bound after removal")
	}
}

func TestEditModeMakesReadingInert(t *testing.T) {
	reader := &fakeRegionReader{texts: []string{"hello", "hello again"}}
	areas, tts, _ := newAreaHarness(t, reader)
	areas.AddArea(Area{Name: "Chat", X: 0, Y: 0, Width: 50, Height: 20})

	areas.SetEditMode(true)
	areas.readArea(AreaOwner("Chat"), "Chat")
	if spoken := drainSpoken(tts); len(spoken) != 0 {
		t.Errorf("reading fired during edit mode: %v", spoken)
	}

	areas.SetEditMode(false)
	areas.readArea(AreaOwner("Chat"), "Chat")
	if spoken := drainSpoken(tts); len(spoken) != 1 || spoken[0] != "hello" {
		t.Errorf("spoken = %v, expected [hello]", spoken)
	}
}

func TestRepeatLatestFallsBackToHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifications.Enabled = false
	notify := NewNotificationManager(cfg)

	history, err := NewHistoryManager(t.TempDir()+"/history.db", 10)
	if err != nil {
		t.Fatalf("NewHistoryManager failed: %v", err)
	}
	defer history.Close()

	if err := history.Record(AreaOwner("Chat"), "text from last run"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	tts := &TTSManager{
		log:         newTestLog(),
		queue:       make(chan string, 16),
		stopChannel: make(chan bool, 1),
	}
	registry := NewHotkeyRegistry()
	areas := NewAreaManager(registry, nil, tts, history, nil, notify, newTestLog())

	// Nothing spoken this run: the persisted history fills in
	areas.RepeatLatest()
	if spoken := drainSpoken(tts); len(spoken) != 1 || spoken[0] != "text from last run" {
		t.Errorf("spoken = %v, expected the persisted text", spoken)
	}
}
