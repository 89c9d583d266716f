package gotrue

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPError is returned when the auth API answers with a status outside [200, 300).
// Body holds the raw response body, nil if the response had none.
type HTTPError struct {
	Status int
	Body   *string
}

// maxErrorBody bounds how much of the response body Error includes.
const maxErrorBody = 256

func (e *HTTPError) Error() string {
	if e.Body == nil {
		return fmt.Sprintf("unexpected response status: %d", e.Status)
	}
	body := *e.Body
	if len(body) > maxErrorBody {
		body = strings.ToValidUTF8(body[:maxErrorBody], "") + "..."
	}
	return fmt.Sprintf("unexpected response status: %d: %s", e.Status, body)
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

// DeserializationError means a successful response did not match the expected shape.
type DeserializationError struct {
	Target string
	Err    error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialize %s: %v", e.Target, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}
