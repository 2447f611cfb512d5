package main

import (
	"fmt"
	"sync"
)

// SpeechEngine is the platform speech backend. On Windows it is SAPI;
// elsewhere a logging stub.
type SpeechEngine interface {
	Speak(text string) error
	Stop() error
	Pause() error
	Resume() error
	SetVoice(name string) error
	Voices() ([]string, error)
	Close()
}

// TTSManager queues text for the speech backend and exposes the stop,
// pause and resume controls the global hotkey slots bind to. Speaking is
// asynchronous; the dispatch path never blocks on audio.
type TTSManager struct {
	engine SpeechEngine
	log    *LogManager

	queue       chan string
	stopChannel chan bool

	mutex   sync.Mutex
	running bool
	paused  bool
}

// NewTTSManager creates a TTS manager over the platform engine,
// applying the configured voice, rate and volume
func NewTTSManager(config *Config, log *LogManager) (*TTSManager, error) {
	engine, err := newSpeechEngine(config.TTS.Rate, config.TTS.Volume)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speech engine: %v", err)
	}

	if config.TTS.Voice != "" {
		if err := engine.SetVoice(config.TTS.Voice); err != nil {
			log.LogWarning("Configured voice not available, using default", "voice", config.TTS.Voice, "error", err.Error())
		}
	}

	tm := &TTSManager{
		engine:      engine,
		log:         log,
		queue:       make(chan string, 16),
		stopChannel: make(chan bool, 1),
	}
	return tm, nil
}

// Start begins draining the speech queue
func (tm *TTSManager) Start() error {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if tm.running {
		return fmt.Errorf("tts manager already running")
	}
	tm.running = true

	go tm.speakLoop()
	return nil
}

// Stop halts current speech, drops everything queued and ends the loop
func (tm *TTSManager) Stop() {
	tm.mutex.Lock()
	if !tm.running {
		tm.mutex.Unlock()
		return
	}
	tm.running = false
	tm.mutex.Unlock()

	tm.engine.Stop()

	select {
	case tm.stopChannel <- true:
	default:
	}
}

// Speak queues text for speaking. Queuing never blocks; when the queue
// is full the oldest entry is dropped first.
func (tm *TTSManager) Speak(text string) {
	if text == "" {
		return
	}

	for {
		select {
		case tm.queue <- text:
			return
		default:
			select {
			case <-tm.queue:
			default:
			}
		}
	}
}

// Interrupt stops the current utterance and clears the queue without
// shutting the manager down; this is the "stop speech" hotkey action
func (tm *TTSManager) Interrupt() {
	for {
		select {
		case <-tm.queue:
		default:
			if err := tm.engine.Stop(); err != nil {
				tm.log.LogWarning("Failed to stop speech", "error", err.Error())
			}
			return
		}
	}
}

// TogglePause pauses or resumes the current utterance; this is the
// "pause/resume" hotkey action
func (tm *TTSManager) TogglePause() {
	tm.mutex.Lock()
	paused := tm.paused
	tm.paused = !paused
	tm.mutex.Unlock()

	var err error
	if paused {
		err = tm.engine.Resume()
	} else {
		err = tm.engine.Pause()
	}
	if err != nil {
		tm.log.LogWarning("Failed to toggle speech pause", "error", err.Error())
	}
}

// Voices lists the available voice names
func (tm *TTSManager) Voices() ([]string, error) {
	return tm.engine.Voices()
}

// Close releases the speech backend
func (tm *TTSManager) Close() {
	tm.Stop()
	tm.engine.Close()
}

// speakLoop drains the queue into the engine
func (tm *TTSManager) speakLoop() {
	for {
		select {
		case <-tm.stopChannel:
			return
		case text := <-tm.queue:
			if err := tm.engine.Speak(text); err != nil {
				tm.log.LogError("Failed to speak text", err)
			}
		}
	}
}
