package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skratchdot/open-golang/open"
)

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// UpdateChecker checks GitHub for a newer release. Updates are never
// installed automatically; the notification offers the release page.
type UpdateChecker struct {
	config              *Config
	notificationManager *NotificationManager
	currentVersion      string
	githubOwner         string
	githubRepo          string
}

// NewUpdateChecker creates a new update checker
func NewUpdateChecker(config *Config, notificationManager *NotificationManager) *UpdateChecker {
	return &UpdateChecker{
		config:              config,
		notificationManager: notificationManager,
		currentVersion:      Version,
		githubOwner:         GitHubOwner,
		githubRepo:          GitHubRepo,
	}
}

// CheckForUpdates checks if a newer version is available
func (uc *UpdateChecker) CheckForUpdates() (*GitHubRelease, bool, error) {
	if !uc.config.Updates.Enabled {
		return nil, false, nil
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", uc.githubOwner, uc.githubRepo)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for updates: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, false, fmt.Errorf("failed to parse release data: %v", err)
	}

	// Skip draft and prerelease versions
	if release.Draft || release.Prerelease {
		return nil, false, nil
	}

	hasUpdate, err := uc.isNewerVersion(release.TagName, uc.currentVersion)
	if err != nil {
		return nil, false, fmt.Errorf("failed to compare versions: %v", err)
	}

	return &release, hasUpdate, nil
}

// isNewerVersion compares version strings (basic semantic version comparison)
func (uc *UpdateChecker) isNewerVersion(remote, current string) (bool, error) {
	// Remove 'v' prefix if present
	remote = strings.TrimPrefix(remote, "v")
	current = strings.TrimPrefix(current, "v")

	remoteParts := strings.Split(remote, ".")
	currentParts := strings.Split(current, ".")

	// Ensure both have at least 3 parts (major.minor.patch)
	for len(remoteParts) < 3 {
		remoteParts = append(remoteParts, "0")
	}
	for len(currentParts) < 3 {
		currentParts = append(currentParts, "0")
	}

	for i := 0; i < 3; i++ {
		remoteNum, err := strconv.Atoi(remoteParts[i])
		if err != nil {
			return false, fmt.Errorf("invalid remote version part: %s", remoteParts[i])
		}

		currentNum, err := strconv.Atoi(currentParts[i])
		if err != nil {
			return false, fmt.Errorf("invalid current version part: %s", currentParts[i])
		}

		if remoteNum > currentNum {
			return true, nil
		} else if remoteNum < currentNum {
			return false, nil
		}
	}

	return false, nil // Versions are equal
}

// OpenReleasePage opens the release in the user's browser
func (uc *UpdateChecker) OpenReleasePage(release *GitHubRelease) error {
	url := release.HTMLURL
	if url == "" {
		url = fmt.Sprintf("https://github.com/%s/%s/releases/latest", uc.githubOwner, uc.githubRepo)
	}
	return open.Start(url)
}

// PerformUpdateCheck runs one check and surfaces the result as a
// notification; failures are throttled so a flaky network stays quiet
func (uc *UpdateChecker) PerformUpdateCheck() error {
	release, hasUpdate, err := uc.CheckForUpdates()
	if err != nil {
		if uc.notificationManager != nil {
			uc.notificationManager.NotifyErrorThrottled("update-check-error", fmt.Sprintf("Failed to check for updates: %v", err))
		}
		return err
	}

	if !hasUpdate {
		return nil
	}

	fmt.Printf("Update available: %s -> %s\n", uc.currentVersion, release.TagName)
	if uc.notificationManager != nil {
		uc.notificationManager.NotifyInfo("Update Available",
			fmt.Sprintf("GameTextReader %s is available (you have %s)", release.TagName, uc.currentVersion))
	}
	if uc.config.Updates.OpenReleasePage {
		if err := uc.OpenReleasePage(release); err != nil {
			fmt.Printf("Failed to open release page: %v\n", err)
		}
	}

	return nil
}
