package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Transport errors
	ErrTransport = fmt.Errorf("network request failed")
	ErrTimeout   = fmt.Errorf("operation timed out")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and payload errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrMalformedPayload   = fmt.Errorf("malformed response payload")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Validation errors
	ErrMissingSeeds     = fmt.Errorf("at least one seed parameter is required")
	ErrInvalidTimeRange = fmt.Errorf("invalid time range")
	ErrNoTracks         = fmt.Errorf("no tracks found")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
)
