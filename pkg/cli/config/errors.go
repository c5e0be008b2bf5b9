package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound  = goerr.New("configuration file not found")
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrMissingAPIKey   = goerr.New("embedding API key is required")
	ErrTimeoutOrdering = goerr.New("embedding request timeout must be shorter than search timeout")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	ProviderKey   = "provider"
	BackendKey    = "backend"
)
