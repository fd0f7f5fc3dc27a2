package types

import "errors"

// Failure taxonomy shared by every dialogue component. Callers wrap these
// with fmt.Errorf("...: %w", err) and inspect them with errors.Is.
var (
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrParseFailure          = errors.New("provider response could not be parsed")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrCacheUnavailable      = errors.New("cache unavailable")
	ErrConfiguration         = errors.New("configuration error")

	ErrCacheMiss       = errors.New("cache miss")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidContext  = errors.New("invalid turn context")
)
