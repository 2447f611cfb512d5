//go:build windows
// +build windows

package main

import (
	"fmt"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// SAPI Speak flags
const (
	svsfAsync            = 1
	svsfPurgeBeforeSpeak = 2
)

// sapiCommand is one operation for the COM worker goroutine. SAPI is
// apartment-threaded, so every call runs on the single locked OS thread
// that initialized COM.
type sapiCommand struct {
	run  func(voice *ole.IDispatch) (interface{}, error)
	done chan sapiResult
}

type sapiResult struct {
	value interface{}
	err   error
}

// sapiEngine drives the Windows SAPI.SpVoice automation object
type sapiEngine struct {
	commands chan sapiCommand
	closed   chan struct{}
}

// newSpeechEngine creates the SAPI-backed speech engine
func newSpeechEngine(rate, volume int) (SpeechEngine, error) {
	e := &sapiEngine{
		commands: make(chan sapiCommand),
		closed:   make(chan struct{}),
	}

	ready := make(chan error, 1)
	go e.comWorker(rate, volume, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return e, nil
}

// comWorker owns the SpVoice object for the engine's lifetime
func (e *sapiEngine) comWorker(rate, volume int, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitialize(0); err != nil {
		ready <- fmt.Errorf("CoInitialize failed: %v", err)
		return
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("SAPI.SpVoice")
	if err != nil {
		ready <- fmt.Errorf("failed to create SAPI voice: %v", err)
		return
	}
	voice, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		unknown.Release()
		ready <- fmt.Errorf("failed to query SAPI voice: %v", err)
		return
	}
	defer voice.Release()

	oleutil.PutProperty(voice, "Rate", rate)
	oleutil.PutProperty(voice, "Volume", volume)

	ready <- nil

	for {
		select {
		case <-e.closed:
			return
		case cmd := <-e.commands:
			value, err := cmd.run(voice)
			cmd.done <- sapiResult{value: value, err: err}
		}
	}
}

// call runs one operation on the COM thread and waits for its result
func (e *sapiEngine) call(run func(voice *ole.IDispatch) (interface{}, error)) (interface{}, error) {
	cmd := sapiCommand{run: run, done: make(chan sapiResult, 1)}
	select {
	case e.commands <- cmd:
	case <-e.closed:
		return nil, fmt.Errorf("speech engine closed")
	}
	res := <-cmd.done
	return res.value, res.err
}

// Speak queues text asynchronously on the SAPI voice
func (e *sapiEngine) Speak(text string) error {
	_, err := e.call(func(voice *ole.IDispatch) (interface{}, error) {
		return oleutil.CallMethod(voice, "Speak", text, svsfAsync)
	})
	return err
}

// Stop purges the current utterance
func (e *sapiEngine) Stop() error {
	_, err := e.call(func(voice *ole.IDispatch) (interface{}, error) {
		return oleutil.CallMethod(voice, "Speak", "", svsfAsync|svsfPurgeBeforeSpeak)
	})
	return err
}

// Pause pauses speech output
func (e *sapiEngine) Pause() error {
	_, err := e.call(func(voice *ole.IDispatch) (interface{}, error) {
		return oleutil.CallMethod(voice, "Pause")
	})
	return err
}

// Resume resumes paused speech output
func (e *sapiEngine) Resume() error {
	_, err := e.call(func(voice *ole.IDispatch) (interface{}, error) {
		return oleutil.CallMethod(voice, "Resume")
	})
	return err
}

// SetVoice selects a voice by (partial) description match
func (e *sapiEngine) SetVoice(name string) error {
	_, err := e.call(func(voice *ole.IDispatch) (interface{}, error) {
		tokens, err := oleutil.CallMethod(voice, "GetVoices")
		if err != nil {
			return nil, err
		}
		collection := tokens.ToIDispatch()
		defer collection.Release()

		countVar, err := oleutil.GetProperty(collection, "Count")
		if err != nil {
			return nil, err
		}
		count := int(countVar.Val)

		for i := 0; i < count; i++ {
			itemVar, err := oleutil.CallMethod(collection, "Item", i)
			if err != nil {
				continue
			}
			item := itemVar.ToIDispatch()
			descVar, err := oleutil.CallMethod(item, "GetDescription")
			if err != nil {
				item.Release()
				continue
			}
			if descVar.ToString() == name {
				_, err := oleutil.PutPropertyRef(voice, "Voice", item)
				item.Release()
				return nil, err
			}
			item.Release()
		}
		return nil, fmt.Errorf("voice %q not found", name)
	})
	return err
}

// Voices lists the descriptions of the installed SAPI voices
func (e *sapiEngine) Voices() ([]string, error) {
	value, err := e.call(func(voice *ole.IDispatch) (interface{}, error) {
		tokens, err := oleutil.CallMethod(voice, "GetVoices")
		if err != nil {
			return nil, err
		}
		collection := tokens.ToIDispatch()
		defer collection.Release()

		countVar, err := oleutil.GetProperty(collection, "Count")
		if err != nil {
			return nil, err
		}
		count := int(countVar.Val)

		var names []string
		for i := 0; i < count; i++ {
			itemVar, err := oleutil.CallMethod(collection, "Item", i)
			if err != nil {
				continue
			}
			item := itemVar.ToIDispatch()
			if descVar, err := oleutil.CallMethod(item, "GetDescription"); err == nil {
				names = append(names, descVar.ToString())
			}
			item.Release()
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

// Close shuts down the COM worker
func (e *sapiEngine) Close() {
	select {
	case <-e.closed:
	default:
		close(e.closed)
	}
}
