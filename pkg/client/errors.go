package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrTooManyRequests is returned when the CMS answers 429. Callers
	// use it to trigger the fixed rate-limit cooldown before retrying.
	ErrTooManyRequests = errors.New("too many requests")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError represents a CMS error response with additional context.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("cms %s error (status %d): %s",
		e.Class(), e.StatusCode, e.Message)
}

// Unwrap lets errors.Is recognize rate-limit responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrTooManyRequests
	}
	return nil
}

// Class categorizes the error for metrics and handling.
func (e *APIError) Class() ErrorClass {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrorClassClient
	case e.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassNetwork
	}
}
