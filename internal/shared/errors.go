package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrInvalidToken     = fmt.Errorf("invalid bearer token")

	// API errors
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrNotFound        = fmt.Errorf("resource not found")
	ErrUnknownEndpoint = fmt.Errorf("unknown endpoint")
	ErrUnknownTagType  = fmt.Errorf("unknown cache tag type")
	ErrMissingID       = fmt.Errorf("entity id is required")

	// Storage errors
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrServiceUnavailable = fmt.Errorf("service not initialized")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
