package main

import "testing"

// fakeLockState is a scripted LockStateReader for resolver tests
type fakeLockState struct {
	on       bool
	readable bool
}

func (f fakeLockState) NumLock() (bool, bool) { return f.on, f.readable }

func newTestLog() *LogManager {
	return &LogManager{}
}

func TestResolveModifiers(t *testing.T) {
	resolver := NewKeySymbolResolver(fakeLockState{}, newTestLog())

	tests := []struct {
		name     string
		code     uint16
		expected Symbol
	}{
		{"left shift", 0xA0, "left shift"},
		{"right shift", 0xA1, "right shift"},
		{"left ctrl", 0xA2, "left ctrl"},
		{"right ctrl", 0xA3, "right ctrl"},
		{"left alt", 0xA4, "left alt"},
		{"right alt", 0xA5, "right alt"},
		{"left windows", 0x5B, "left windows"},
		{"generic shift maps to left", 0x10, "left shift"},
		{"generic ctrl maps to left", 0x11, "left ctrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: tt.code, Pressed: true})
			if resolved.Symbol != tt.expected {
				t.Errorf("Resolve(%#x) = %q, expected %q", tt.code, resolved.Symbol, tt.expected)
			}
			if resolved.Family != FamilyModifier {
				t.Errorf("Resolve(%#x) family = %d, expected FamilyModifier", tt.code, resolved.Family)
			}
		})
	}
}

func TestResolveSharedPadByNumLock(t *testing.T) {
	tests := []struct {
		name           string
		numLockOn      bool
		code           uint16
		expected       Symbol
		expectedFamily SymbolFamily
	}{
		{"num lock on gives numpad 7", true, 71, "num_7", FamilyNumpad},
		{"num lock off gives home", false, 71, "home", FamilyArrow},
		{"num lock on gives numpad 4", true, 75, "num_4", FamilyNumpad},
		{"num lock off gives left", false, 75, "left", FamilyArrow},
		{"num lock on gives numpad decimal", true, 83, "num_decimal", FamilyNumpad},
		{"num lock off gives delete", false, 83, "delete", FamilyArrow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewKeySymbolResolver(fakeLockState{on: tt.numLockOn, readable: true}, newTestLog())
			resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: tt.code, Pressed: true})
			if resolved.Symbol != tt.expected {
				t.Errorf("Resolve(%d) = %q, expected %q", tt.code, resolved.Symbol, tt.expected)
			}
			if resolved.Family != tt.expectedFamily {
				t.Errorf("Resolve(%d) family = %d, expected %d", tt.code, resolved.Family, tt.expectedFamily)
			}
		})
	}
}

func TestResolveSharedPadNameOverridesNumLock(t *testing.T) {
	// Num Lock says numpad, but the driver name says arrow; the name wins
	resolver := NewKeySymbolResolver(fakeLockState{on: true, readable: true}, newTestLog())

	resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: 72, Name: "up", Pressed: true})
	if resolved.Symbol != "up" {
		t.Errorf("expected name to override Num Lock, got %q", resolved.Symbol)
	}

	resolved = resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: 72, Name: "numpad 8", Pressed: true})
	if resolved.Symbol != "num_8" {
		t.Errorf("expected numpad name to resolve to num_8, got %q", resolved.Symbol)
	}
}

func TestResolveSharedPadFamilyPreference(t *testing.T) {
	// Num Lock unreadable: the installed preference breaks the tie
	resolver := NewKeySymbolResolver(fakeLockState{readable: false}, newTestLog())
	resolver.SetFamilyPreference(func(numpad, arrow Symbol) (Symbol, bool) {
		return numpad, true
	})

	resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: 80, Pressed: true})
	if resolved.Symbol != "num_2" {
		t.Errorf("expected preference to pick num_2, got %q", resolved.Symbol)
	}
	if resolved.Family != FamilyNumpad {
		t.Errorf("expected FamilyNumpad, got %d", resolved.Family)
	}
}

func TestResolveSharedPadDefaultsToArrow(t *testing.T) {
	// No name, no Num Lock, no preference: arrow family wins
	resolver := NewKeySymbolResolver(fakeLockState{readable: false}, newTestLog())

	resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: 72, Pressed: true})
	if resolved.Symbol != "up" {
		t.Errorf("expected arrow default, got %q", resolved.Symbol)
	}
}

func TestResolveSpecialKeys(t *testing.T) {
	resolver := NewKeySymbolResolver(fakeLockState{}, newTestLog())

	tests := []struct {
		code     uint16
		name     string
		expected Symbol
	}{
		{0x70, "", "f1"},
		{0x7B, "", "f12"},
		{0x87, "", "f24"},
		{0x0D, "", "enter"},
		{0x1B, "", "escape"},
		{0x20, "", "space"},
		{0x41, "a", "a"},
		{0x5A, "z", "z"},
		{0x30, "", "0"},
		{0x39, "", "9"},
		// Letters whose virtual-key codes fall inside the shared keypad
		// scan range still resolve as letters
		{0x47, "g", "g"},
		{0x48, "h", "h"},
		{0x4D, "m", "m"},
		{0x53, "s", "s"},
	}

	for _, tt := range tests {
		resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: tt.code, Name: tt.name, Pressed: true})
		if resolved.Symbol != tt.expected {
			t.Errorf("Resolve(%#x) = %q, expected %q", tt.code, resolved.Symbol, tt.expected)
		}
		if resolved.Family != FamilySpecial {
			t.Errorf("Resolve(%#x) family = %d, expected FamilySpecial", tt.code, resolved.Family)
		}
	}
}

func TestResolveLetterNameBeatsSharedPad(t *testing.T) {
	// The letter virtual keys G..S share their numeric codes with the
	// keypad scan range; whatever Num Lock says, a letter stays a letter
	for _, numLockOn := range []bool{true, false} {
		resolver := NewKeySymbolResolver(fakeLockState{on: numLockOn, readable: true}, newTestLog())

		tests := []struct {
			code uint16
			name string
		}{
			{0x47, "g"},
			{0x48, "h"},
			{0x53, "s"},
		}
		for _, tt := range tests {
			resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: tt.code, Name: tt.name, Pressed: true})
			if resolved.Symbol != Symbol(tt.name) {
				t.Errorf("NumLock=%v: Resolve(%#x, %q) = %q, expected %q",
					numLockOn, tt.code, tt.name, resolved.Symbol, tt.name)
			}
			if resolved.Family != FamilySpecial {
				t.Errorf("NumLock=%v: Resolve(%#x, %q) family = %d, expected FamilySpecial",
					numLockOn, tt.code, tt.name, resolved.Family)
			}
		}
	}
}

func TestResolveMouseButtons(t *testing.T) {
	resolver := NewKeySymbolResolver(fakeLockState{}, newTestLog())

	resolved := resolver.Resolve(KeyEvent{Source: SourceMouse, Code: 4, Pressed: true})
	if resolved.Symbol != "button4" {
		t.Errorf("expected button4, got %q", resolved.Symbol)
	}
	if resolved.Family != FamilyButton {
		t.Errorf("expected FamilyButton, got %d", resolved.Family)
	}
}

func TestResolveControllerButtons(t *testing.T) {
	resolver := NewKeySymbolResolver(fakeLockState{}, newTestLog())

	resolved := resolver.Resolve(KeyEvent{Source: SourceController, Code: 3, Name: "btn_3", Pressed: true})
	if resolved.Symbol != "btn_3" {
		t.Errorf("expected btn_3, got %q", resolved.Symbol)
	}
	if resolved.Family != FamilyButton {
		t.Errorf("expected FamilyButton, got %d", resolved.Family)
	}
}

func TestResolvePassthroughNeverFails(t *testing.T) {
	resolver := NewKeySymbolResolver(fakeLockState{}, newTestLog())

	// Named unknown key uses the lowercased driver name
	resolved := resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: 0xFF, Name: "Mute", Pressed: true})
	if resolved.Symbol != "mute" {
		t.Errorf("expected mute, got %q", resolved.Symbol)
	}
	if resolved.Family != FamilyPassthrough {
		t.Errorf("expected FamilyPassthrough, got %d", resolved.Family)
	}

	// Nameless unknown key falls back to the raw code
	resolved = resolver.Resolve(KeyEvent{Source: SourceKeyboard, Code: 0xFE, Pressed: true})
	if resolved.Symbol != "key_254" {
		t.Errorf("expected key_254, got %q", resolved.Symbol)
	}
}

func TestIsModifier(t *testing.T) {
	for _, sym := range []Symbol{"left shift", "right ctrl", "left alt", "right windows"} {
		if !IsModifier(sym) {
			t.Errorf("IsModifier(%q) = false, expected true", sym)
		}
	}
	for _, sym := range []Symbol{"f1", "a", "button1", "ctrl"} {
		if IsModifier(sym) {
			t.Errorf("IsModifier(%q) = true, expected false", sym)
		}
	}
}
