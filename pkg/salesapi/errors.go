package salesapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthExpired matches a 403 that survived the single token refresh.
	ErrAuthExpired = errors.New("request rejected after csrf refresh")
	ErrNoJSONBody  = errors.New("response has no JSON body")
)

// RequestError is a response with a non-success status.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	// Detail is the server "detail" message, else the plain-text body,
	// else the status line.
	Detail  string
	Body    string
	Retried bool
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrAuthExpired && e.StatusCode == http.StatusForbidden && e.Retried
}

// NetworkError is a transport failure where no response was obtained.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func newRequestError(method, url string, resp *Response, retried bool) *RequestError {
	re := &RequestError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Retried:    retried,
	}
	if resp.JSON != nil {
		re.Body = string(resp.JSON)
		re.Detail = jsonDetail(resp.JSON)
	} else {
		re.Body = resp.Text
	}
	if re.Detail == "" && strings.TrimSpace(resp.Text) != "" {
		re.Detail = resp.Text
	}
	if re.Detail == "" {
		re.Detail = statusLine(resp.StatusCode)
	}
	return re
}

func jsonDetail(data json.RawMessage) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 || string(body.Detail) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}

func statusLine(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

// Message turns any error from this package into user-facing text,
// falling back through detail, raw body and "HTTP {status}".
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *RequestError
	if errors.As(err, &re) {
		switch {
		case re.Detail != "":
			return re.Detail
		case re.Body != "":
			return re.Body
		default:
			return fmt.Sprintf("HTTP %d", re.StatusCode)
		}
	}
	var ne *NetworkError
	if errors.As(err, &ne) && ne.Err != nil {
		return ne.Err.Error()
	}
	return err.Error()
}
