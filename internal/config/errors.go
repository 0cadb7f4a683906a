package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	ErrEmptyAddr       = errors.New("addr must not be empty")
	ErrUnknownBackend  = errors.New("unknown store backend")
	ErrEmptySQLitePath = errors.New("sqlite_path must not be empty")
	ErrEmptyRedisURL   = errors.New("redis_url must not be empty")
	ErrEmptySecretName = errors.New("secret_name must not be empty")
	ErrInvalidMaxScore = errors.New("max_score must be positive")
)
