package main

// Version represents the current version of the application
const Version = "0.9.3"

// GitHubOwner and GitHubRepo define the GitHub repository for updates
const (
	GitHubOwner = "MertenNor"
	GitHubRepo  = "GameTextReader"
)
