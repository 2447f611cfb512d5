package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	OCR struct {
		Language      string  `yaml:"language"`
		Scale         float64 `yaml:"scale"`
		Invert        bool    `yaml:"invert"`
		TesseractPath string  `yaml:"tesseract_path"`
	} `yaml:"ocr"`
	TTS struct {
		Voice  string `yaml:"voice"`
		Rate   int    `yaml:"rate"`
		Volume int    `yaml:"volume"`
	} `yaml:"tts"`
	Hotkeys struct {
		DebounceMs        int  `yaml:"debounce_ms"`
		FinalizeMs        int  `yaml:"finalize_ms"`
		BareModifierMs    int  `yaml:"bare_modifier_ms"`
		AssignTimeoutMs   int  `yaml:"assign_timeout_ms"`
		PreviewThrottleMs int  `yaml:"preview_throttle_ms"`
		AllowMousePrimary bool `yaml:"allow_mouse_primary"`

		StopSpeech   string `yaml:"stop_speech"`
		PauseResume  string `yaml:"pause_resume"`
		ToggleEditor string `yaml:"toggle_editor"`
		RepeatLatest string `yaml:"repeat_latest"`
	} `yaml:"hotkeys"`
	Notifications struct {
		Enabled     bool `yaml:"enabled"`
		ShowSuccess bool `yaml:"show_success"`
		ShowErrors  bool `yaml:"show_errors"`
	} `yaml:"notifications"`
	Audio struct {
		Enabled      bool   `yaml:"enabled"`
		SuccessSound string `yaml:"success_sound"`
		ErrorSound   string `yaml:"error_sound"`
		Volume       int    `yaml:"volume"`
	} `yaml:"audio"`
	Updates struct {
		Enabled        bool `yaml:"enabled"`
		CheckOnStartup bool `yaml:"check_on_startup"`
		// OpenReleasePage opens the browser on the release when a newer
		// version is found
		OpenReleasePage bool `yaml:"open_release_page"`
	} `yaml:"updates"`
	History struct {
		Enabled    bool `yaml:"enabled"`
		MaxEntries int  `yaml:"max_entries"`
	} `yaml:"history"`
	Layout struct {
		AutoloadLast bool   `yaml:"autoload_last"`
		Dir          string `yaml:"dir"`
	} `yaml:"layout"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	config := &Config{}

	// OCR defaults
	config.OCR.Language = "eng"
	config.OCR.Scale = 2.0
	config.OCR.Invert = false
	config.OCR.TesseractPath = ""

	// TTS defaults
	config.TTS.Voice = ""
	config.TTS.Rate = 0
	config.TTS.Volume = 100

	// Hotkey engine defaults; tuning constants, not hard constraints
	config.Hotkeys.DebounceMs = 100
	config.Hotkeys.FinalizeMs = 250
	config.Hotkeys.BareModifierMs = 300
	config.Hotkeys.AssignTimeoutMs = 4000
	config.Hotkeys.PreviewThrottleMs = 80
	config.Hotkeys.AllowMousePrimary = false
	config.Hotkeys.StopSpeech = "f9"
	config.Hotkeys.PauseResume = "f10"
	config.Hotkeys.ToggleEditor = "f11"
	config.Hotkeys.RepeatLatest = "f8"

	// Notification defaults
	config.Notifications.Enabled = true
	config.Notifications.ShowSuccess = true
	config.Notifications.ShowErrors = true

	// Audio defaults
	config.Audio.Enabled = true
	config.Audio.SuccessSound = "beep"
	config.Audio.ErrorSound = "error"
	config.Audio.Volume = 70

	// Update defaults
	config.Updates.Enabled = true
	config.Updates.CheckOnStartup = true
	config.Updates.OpenReleasePage = false

	// History defaults
	config.History.Enabled = true
	config.History.MaxEntries = 500

	// Layout defaults
	config.Layout.AutoloadLast = true
	config.Layout.Dir = defaultLayoutDir()

	return config
}

// defaultLayoutDir returns the layout directory under the user's
// documents folder
func defaultLayoutDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Layouts")
	}
	return filepath.Join(home, "Documents", "GameTextReader", "Layouts")
}

// LoadConfig loads configuration from YAML file with fallback to command-line flags
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	configPath := "config.yaml"
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Loading configuration from %s\n", configPath)
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %v", err)
		}
	} else {
		fmt.Println("No config.yaml found, using defaults and command-line flags")
	}

	overrideWithFlags(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a YAML file
func loadConfigFromFile(config *Config, filename string) error {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// overrideWithFlags applies command-line flags over configuration file settings
func overrideWithFlags(config *Config) {
	flag.StringVar(&config.OCR.Language, "ocr-language", config.OCR.Language, "Tesseract language code")
	flag.StringVar(&config.OCR.TesseractPath, "tesseract", config.OCR.TesseractPath, "Path to the tesseract data directory (empty = system default)")
	flag.StringVar(&config.TTS.Voice, "voice", config.TTS.Voice, "TTS voice name (empty = system default)")
	flag.IntVar(&config.TTS.Rate, "rate", config.TTS.Rate, "TTS speaking rate (-10..10)")
	flag.BoolVar(&config.Hotkeys.AllowMousePrimary, "allow-mouse-primary", config.Hotkeys.AllowMousePrimary, "Allow primary/secondary mouse buttons as hotkeys")
	flag.BoolVar(&config.Updates.CheckOnStartup, "check-updates", config.Updates.CheckOnStartup, "Check for a newer release on startup")
	flag.StringVar(&config.Layout.Dir, "layout-dir", config.Layout.Dir, "Directory holding saved layouts")

	flag.Parse()
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if config.OCR.Scale <= 0 {
		return fmt.Errorf("ocr scale must be positive, got: %v", config.OCR.Scale)
	}

	if config.TTS.Rate < -10 || config.TTS.Rate > 10 {
		return fmt.Errorf("tts rate must be between -10 and 10, got: %d", config.TTS.Rate)
	}

	if config.TTS.Volume < 0 || config.TTS.Volume > 100 {
		return fmt.Errorf("tts volume must be between 0 and 100, got: %d", config.TTS.Volume)
	}

	if config.Hotkeys.DebounceMs < 0 {
		return fmt.Errorf("debounce window must be non-negative, got: %d", config.Hotkeys.DebounceMs)
	}

	if config.Hotkeys.FinalizeMs < 1 {
		return fmt.Errorf("finalize delay must be at least 1ms, got: %d", config.Hotkeys.FinalizeMs)
	}

	if config.Hotkeys.BareModifierMs < 1 {
		return fmt.Errorf("bare modifier delay must be at least 1ms, got: %d", config.Hotkeys.BareModifierMs)
	}

	if config.Hotkeys.AssignTimeoutMs < 500 {
		return fmt.Errorf("assignment timeout must be at least 500ms, got: %d", config.Hotkeys.AssignTimeoutMs)
	}

	if config.History.MaxEntries < 1 {
		return fmt.Errorf("history max entries must be at least 1, got: %d", config.History.MaxEntries)
	}

	return nil
}

// BuilderConfig derives the chord builder delays from the configuration
func (c *Config) BuilderConfig() ChordBuilderConfig {
	return ChordBuilderConfig{
		BareModifierDelay: time.Duration(c.Hotkeys.BareModifierMs) * time.Millisecond,
		FinalizeDelay:     time.Duration(c.Hotkeys.FinalizeMs) * time.Millisecond,
	}
}

// RuntimeConfig derives the dispatch runtime policy from the configuration
func (c *Config) RuntimeConfig() DispatchRuntimeConfig {
	return DispatchRuntimeConfig{
		DebounceWindow:    time.Duration(c.Hotkeys.DebounceMs) * time.Millisecond,
		AllowMousePrimary: c.Hotkeys.AllowMousePrimary,
	}
}

// AssignmentConfig derives the assignment session policy from the configuration
func (c *Config) AssignmentConfig() AssignmentConfig {
	return AssignmentConfig{
		InactivityTimeout: time.Duration(c.Hotkeys.AssignTimeoutMs) * time.Millisecond,
		PreviewThrottle:   time.Duration(c.Hotkeys.PreviewThrottleMs) * time.Millisecond,
		AllowMousePrimary: c.Hotkeys.AllowMousePrimary,
	}
}
