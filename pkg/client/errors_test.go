package client

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				ErrorClass: ErrorClassNetwork,
				Path:       "/almaws/v1/users/42",
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "alma network error (status 0) for /almaws/v1/users/42: request failed: connection refused",
		},
		{
			name: "alma error message wins over status text",
			apiError: &APIError{
				StatusCode: 400,
				ErrorClass: ErrorClassClient,
				Path:       "/almaws/v1/task-lists/requested-resources",
				Message:    "400 Bad Request",
				Errors:     []ErrorDetail{{Code: "402204", Message: "Input parameters are not valid"}},
			},
			expected: "alma client error (status 400) for /almaws/v1/task-lists/requested-resources: Input parameters are not valid",
		},
		{
			name: "status text only",
			apiError: &APIError{
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Path:       "/almaws/v1/conf/libraries/MAIN/locations",
				Message:    "503 Service Unavailable",
			},
			expected: "alma server error (status 503) for /almaws/v1/conf/libraries/MAIN/locations: 503 Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &APIError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestAPIError_HasCode(t *testing.T) {
	err := &APIError{Errors: []ErrorDetail{{Code: "1"}, {Code: InvalidParameterCode}}}
	if !err.HasCode(InvalidParameterCode) {
		t.Error("HasCode should find the second error code")
	}
	if err.HasCode("2") {
		t.Error("HasCode reported an absent code")
	}
}

func TestInvalidParameterFrom(t *testing.T) {
	invalid := func(msg string) error {
		return &APIError{
			StatusCode: 400,
			ErrorClass: ErrorClassClient,
			Errors:     []ErrorDetail{{Code: InvalidParameterCode, Message: msg}},
		}
	}

	tests := []struct {
		name      string
		err       error
		wantNil   bool
		parameter string
		options   []string
	}{
		{
			name:      "library out of range",
			err:       invalid("The parameter library is invalid. Some text. Valid options are: [ABC,DEF]"),
			parameter: "library",
			options:   []string{"ABC", "DEF"},
		},
		{
			name:      "spaces around options are trimmed",
			err:       invalid("The parameter circ_desk is invalid. Valid options are: [DEFAULT_CIRC_DESK, RES_DESK]"),
			parameter: "circ_desk",
			options:   []string{"DEFAULT_CIRC_DESK", "RES_DESK"},
		},
		{
			name:      "empty option list",
			err:       invalid("The parameter location is invalid. Valid options are: []"),
			parameter: "location",
			options:   []string{},
		},
		{
			name:      "wrapped api error",
			err:       fmt.Errorf("fetch page 0: %w", invalid("The parameter library is invalid. Valid options are: [MAIN]")),
			parameter: "library",
			options:   []string{"MAIN"},
		},
		{
			name:    "different code",
			err:     &APIError{Errors: []ErrorDetail{{Code: "402204", Message: "The parameter library is invalid. Valid options are: [A]"}}},
			wantNil: true,
		},
		{
			name:    "message does not match",
			err:     invalid("Something else went wrong"),
			wantNil: true,
		},
		{
			name:    "not an api error",
			err:     errors.New("boom"),
			wantNil: true,
		},
		{
			name:    "nil",
			err:     nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InvalidParameterFrom(tt.err)
			if tt.wantNil {
				if got != nil {
					t.Errorf("InvalidParameterFrom() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("InvalidParameterFrom() = nil")
			}
			if got.Parameter != tt.parameter {
				t.Errorf("Parameter = %q, want %q", got.Parameter, tt.parameter)
			}
			if !reflect.DeepEqual(got.ValidOptions, tt.options) {
				t.Errorf("ValidOptions = %#v, want %#v", got.ValidOptions, tt.options)
			}
			var apiErr *APIError
			if !errors.As(got, &apiErr) {
				t.Error("InvalidParameterError should unwrap to the APIError")
			}
		})
	}
}

func TestInvalidParameterFrom_Idempotent(t *testing.T) {
	first := &InvalidParameterError{Parameter: "library", ValidOptions: []string{"A"}}
	if got := InvalidParameterFrom(fmt.Errorf("wrap: %w", first)); got != first {
		t.Errorf("InvalidParameterFrom() = %p, want %p", got, first)
	}
}

func TestInvalidParameterError_Error(t *testing.T) {
	err := &InvalidParameterError{Parameter: "library"}
	if got, want := err.Error(), "the parameter library is invalid"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(fmt.Errorf("wrap: %w", &APIError{StatusCode: 401})) {
		t.Error("401 should be unauthorized")
	}
	if IsUnauthorized(&APIError{StatusCode: 403}) {
		t.Error("403 should not be unauthorized")
	}
	if IsUnauthorized(errors.New("x")) {
		t.Error("plain error should not be unauthorized")
	}
}
