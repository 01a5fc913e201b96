package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network *Network // nil if not specified

	// Execution settings
	Debug          bool
	NonInteractive bool
	Timeout        time.Duration

	// Command-specific settings (only populated for relevant commands)
	DryRun bool
	Tags   []string

	// Paths resolved against ProjectRoot
	UnitsFile    string
	ArtifactsDir string

	// Resolved configurations
	Project *ProjectConfig
}

// Network represents network configuration
type Network struct {
	ChainID uint64 `json:"chainId"`
	Name    string `json:"name"`
	RPCURL  string `json:"rpcUrl"`
}
