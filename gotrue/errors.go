package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is an error reported by the provider. Message is human readable and
// safe to show to end users.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gotrue: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gotrue: %d: %s", e.Status, e.Message)
}

var (
	// ErrSessionMissing is returned by SetSession when the access token has expired
	// and no refresh token is available.
	ErrSessionMissing = &APIError{Status: http.StatusUnauthorized, Code: "session_missing", Message: "Auth session missing!"}
	// ErrMalformedToken is returned when an access token is not a decodable JWT.
	ErrMalformedToken = &APIError{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "Invalid JWT structure"}

	errEmptyResponse = errors.New("gotrue: empty response")
)

// errorBody covers the shapes GoTrue has used over time.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &APIError{Status: resp.StatusCode}

	var body errorBody
	if err := json.Unmarshal(b, &body); err == nil {
		e.Code = body.ErrorCode
		if e.Code == "" {
			// "code" is the HTTP status (number) in older releases and a string code in newer ones.
			var s string
			if json.Unmarshal(body.Code, &s) == nil {
				e.Code = s
			}
		}
		if e.Code == "" {
			e.Code = body.Error
		}
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if strings.TrimSpace(m) != "" {
				e.Message = strings.TrimSpace(m)
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
