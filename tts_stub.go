//go:build !windows
// +build !windows

package main

import "log"

// logEngine is the non-Windows speech backend: it logs what would have
// been spoken so the rest of the pipeline stays testable
type logEngine struct{}

// newSpeechEngine creates the logging speech engine
func newSpeechEngine(rate, volume int) (SpeechEngine, error) {
	return &logEngine{}, nil
}

func (e *logEngine) Speak(text string) error {
	log.Printf("[TTS] %s", text)
	return nil
}

func (e *logEngine) Stop() error   { return nil }
func (e *logEngine) Pause() error  { return nil }
func (e *logEngine) Resume() error { return nil }

func (e *logEngine) SetVoice(name string) error { return nil }

func (e *logEngine) Voices() ([]string, error) { return nil, nil }

func (e *logEngine) Close() {}
