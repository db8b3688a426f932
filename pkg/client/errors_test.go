package client

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError_Class(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorClass
	}{
		{"not found", http.StatusNotFound, ErrorClassClient},
		{"unauthorized", http.StatusUnauthorized, ErrorClassClient},
		{"rate limit", http.StatusTooManyRequests, ErrorClassRateLimit},
		{"server error", http.StatusInternalServerError, ErrorClassServer},
		{"bad gateway", http.StatusBadGateway, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &APIError{StatusCode: tt.status}
			if got := e.Class(); got != tt.want {
				t.Errorf("Class() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_UnwrapRateLimit(t *testing.T) {
	rateLimited := &APIError{StatusCode: http.StatusTooManyRequests, Message: "429"}
	if !errors.Is(rateLimited, ErrTooManyRequests) {
		t.Error("429 APIError should match ErrTooManyRequests")
	}

	serverErr := &APIError{StatusCode: http.StatusInternalServerError, Message: "500"}
	if errors.Is(serverErr, ErrTooManyRequests) {
		t.Error("500 APIError should not match ErrTooManyRequests")
	}
}

func TestAPIError_Error(t *testing.T) {
	e := &APIError{StatusCode: 503, Endpoint: "/cdn/stories", Message: "503 Service Unavailable"}
	msg := e.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	if want := "cms server error (status 503): 503 Service Unavailable"; msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}
