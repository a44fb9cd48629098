package client

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrMissingBaseURL is returned by New when no API base URL is configured.
	ErrMissingBaseURL = errors.New("alma api base url is required")

	// ErrMissingAPIKey is returned by New when no API key is configured.
	ErrMissingAPIKey = errors.New("alma api key is required")
)

// InvalidParameterCode is the Alma error code for a query parameter outside
// its allowed values.
const InvalidParameterCode = "40166410"

var invalidParameterPattern = regexp.MustCompile(`The parameter (\w+) is invalid\..*Valid options are: \[([^\]]*)\]`)

// ErrorDetail is one entry of Alma's errorList.
type ErrorDetail struct {
	Code       string `json:"errorCode"`
	Message    string `json:"errorMessage"`
	TrackingID string `json:"trackingId,omitempty"`
}

// errorBody is the JSON error envelope returned by Alma.
type errorBody struct {
	ErrorsExist bool `json:"errorsExist"`
	ErrorList   struct {
		Error []ErrorDetail `json:"error"`
	} `json:"errorList"`
}

// APIError is a failed Alma request.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Path       string
	Message    string
	Errors     []ErrorDetail
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		msg = e.Errors[0].Message
	}
	if e.Err != nil {
		return fmt.Sprintf("alma %s error (status %d) for %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.Path, msg, e.Err)
	}
	return fmt.Sprintf("alma %s error (status %d) for %s: %s",
		e.ErrorClass, e.StatusCode, e.Path, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HasCode reports whether Alma returned the given error code.
func (e *APIError) HasCode(code string) bool {
	for _, d := range e.Errors {
		if d.Code == code {
			return true
		}
	}
	return false
}

// InvalidParameterError reports a query parameter Alma rejected, with the
// values it would have accepted.
type InvalidParameterError struct {
	Parameter    string
	ValidOptions []string
	Err          error
}

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("the parameter %s is invalid", e.Parameter)
}

// Unwrap returns the underlying APIError.
func (e *InvalidParameterError) Unwrap() error {
	return e.Err
}

// InvalidParameterFrom converts an Alma "parameter out of range" failure
// into an InvalidParameterError. It returns nil for any other error.
func InvalidParameterFrom(err error) *InvalidParameterError {
	var already *InvalidParameterError
	if errors.As(err, &already) {
		return already
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	for _, d := range apiErr.Errors {
		if d.Code != InvalidParameterCode {
			continue
		}
		match := invalidParameterPattern.FindStringSubmatch(d.Message)
		if match == nil {
			continue
		}
		return &InvalidParameterError{
			Parameter:    match[1],
			ValidOptions: splitOptions(match[2]),
			Err:          apiErr,
		}
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 from Alma.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func splitOptions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
