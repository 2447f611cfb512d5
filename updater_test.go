package main

import (
	"testing"
)

func TestVersionComparison(t *testing.T) {
	config := DefaultConfig()
	uc := &UpdateChecker{
		config:         config,
		currentVersion: "0.9.3",
	}

	tests := []struct {
		remote   string
		current  string
		expected bool
		name     string
	}{
		{"0.9.4", "0.9.3", true, "patch version upgrade"},
		{"0.10.0", "0.9.3", true, "minor version upgrade"},
		{"1.0.0", "0.9.3", true, "major version upgrade"},
		{"0.9.3", "0.9.3", false, "same version"},
		{"0.9.2", "0.9.3", false, "downgrade"},
		{"v0.9.4", "v0.9.3", true, "version with v prefix"},
		{"0.9.10", "0.9.9", true, "double digit version"},
		{"1.0", "0.9.3", true, "short remote version padded"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := uc.isNewerVersion(test.remote, test.current)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != test.expected {
				t.Errorf("Expected %v for %s vs %s, got %v", test.expected, test.remote, test.current, result)
			}
		})
	}
}

func TestVersionComparisonRejectsGarbage(t *testing.T) {
	uc := &UpdateChecker{currentVersion: "0.9.3"}

	if _, err := uc.isNewerVersion("not.a.version", "0.9.3"); err == nil {
		t.Error("expected an error for a non-numeric remote version")
	}
}
