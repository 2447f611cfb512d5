package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	fmt.Printf("GameTextReader %s\n", Version)
	fmt.Println("=================")

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Only one instance may own the global input hooks
	instance := NewSingleInstance("gametextreader")
	if !instance.TryLock() {
		fmt.Println("GameTextReader is already running.")
		os.Exit(1)
	}
	defer instance.Release()

	logManager := NewLogManager()
	defer logManager.Close()

	service, err := NewGameReaderService(config, logManager)
	if err != nil {
		logManager.LogError("Failed to initialize", err)
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := service.Start(); err != nil {
		logManager.LogError("Failed to start", err)
		fmt.Printf("Failed to start: %v\n", err)
		service.Shutdown()
		os.Exit(1)
	}

	fmt.Println("Running. Press Ctrl+C to exit.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("Shutting down...")
	service.Shutdown()
}
