// utils/http.go
package utils

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is shared by outbound calls to the milestone endpoint.
var HTTPClient = &http.Client{
	Timeout: 10 * time.Second,
}

const maxErrorBody = 1024

// StatusError is a non-2xx response; Body holds at most 1 KiB of the payload.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// CheckResponse returns a *StatusError for any non-2xx response.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// DrainAndClose empties and closes a response body so the connection can be reused.
func DrainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
