package client

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses that survived the retry.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// RequestError is the failure of one API call: a transport-level fault or
// a non-2xx status the operation does not special-case. StatusCode is 0
// when no response was received.
type RequestError struct {
	Op         string
	StatusCode int
	Duration   time.Duration
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hubspot: %s failed after %s: %v", e.Op, e.Duration.Round(time.Millisecond), e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("hubspot: %s returned status %d after %s: %s",
			e.Op, e.StatusCode, e.Duration.Round(time.Millisecond), e.Message)
	}
	return fmt.Sprintf("hubspot: %s returned status %d after %s",
		e.Op, e.StatusCode, e.Duration.Round(time.Millisecond))
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Class returns the error classification for observability.
func (e *RequestError) Class() ErrorClass {
	if e.StatusCode == 0 {
		return ErrorClassNetwork
	}
	return classifyStatus(e.StatusCode)
}

// classifyStatus categorizes an HTTP status for metrics and handling.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// errorBodyLimit bounds how much of an error response body is carried in
// the error message.
const errorBodyLimit = 512

// ErrorFromResponse builds a RequestError from a non-2xx response,
// consuming and closing the body. Callers pass the elapsed duration of
// the whole operation.
func ErrorFromResponse(op string, resp *http.Response, elapsed time.Duration) *RequestError {
	msg := resp.Status
	if body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit)); err == nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			msg = s
		}
	}
	resp.Body.Close()

	return &RequestError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Duration:   elapsed,
		Message:    msg,
	}
}
