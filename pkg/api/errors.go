package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMissingField is wrapped by DecodeError when a response lacks a
// required field.
var ErrMissingField = errors.New("missing required field")

// TransportError reports a request that never produced a usable HTTP
// response: connection failures, timeouts, cancelled contexts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "api: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx response.
//
// Detail carries the server's error message when the body could be parsed;
// Parsed is false when the body was empty or unrecognised.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
	Parsed     bool
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api: %s: status %d", e.Op, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// DecodeError reports a 2xx response whose body was malformed or missing
// required fields.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return "api: " + e.Op + ": decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure: the server was not
// reached, or it answered with an error status and no parseable body.
func IsTransport(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Parsed
	}
	return false
}

// IsDecode reports whether err is a response decoding failure.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsStatus reports whether err is a StatusError with one of the given codes.
func IsStatus(err error, codes ...int) bool {
	code := StatusCode(err)
	if code == 0 {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// Detail returns the server-supplied error message carried by err, if any.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}

// errorBody covers the error shapes the index server and the mock server
// produce: {"detail": "..."}, {"error": {"message": "..."}}, {"message": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newStatusError(op string, status int, body []byte) *StatusError {
	se := &StatusError{Op: op, StatusCode: status}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return se
	}

	var eb errorBody
	if err := json.Unmarshal([]byte(trimmed), &eb); err != nil {
		return se
	}

	switch {
	case len(eb.Detail) > 0:
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			se.Detail = s
		} else {
			// Validation errors arrive as structured detail; keep the raw JSON.
			se.Detail = string(eb.Detail)
		}
		se.Parsed = true
	case eb.Error != nil:
		se.Detail = eb.Error.Message
		se.Parsed = true
	case eb.Message != "":
		se.Detail = eb.Message
		se.Parsed = true
	}
	if se.Parsed && se.Detail == "" {
		se.Detail = http.StatusText(status)
	}
	return se
}
