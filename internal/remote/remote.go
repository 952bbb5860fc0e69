// Package remote holds the failure taxonomy and request plumbing shared
// by the workflow and ticketing API clients.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/support-console/backend/internal/metrics"
)

var (
	// ErrUnavailable wraps transport failures: the request never got an
	// HTTP response.
	ErrUnavailable = errors.New("remote service unavailable")

	// ErrMalformedResponse wraps bodies that are not the expected JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a non-2xx answer.
type StatusError struct {
	API  string
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.API, e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s returned status %d", e.API, e.Op, e.Code)
}

type Category string

const (
	CategoryNone    Category = ""
	CategoryNetwork Category = "network"
	CategoryStatus  Category = "status"
	CategoryPayload Category = "payload"
	CategoryOther   Category = "other"
)

func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return CategoryStatus
	case errors.Is(err, ErrMalformedResponse):
		return CategoryPayload
	case errors.Is(err, ErrUnavailable):
		return CategoryNetwork
	default:
		return CategoryOther
	}
}

// NewHTTPClient returns a client with the given timeout; zero leaves
// the call bounded only by the context and the transport defaults.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Do sends req once and decodes a 2xx JSON body into out (skipped when
// out is nil). Every outcome is recorded against api/op.
func Do(client *http.Client, req *http.Request, api, op string, out any) error {
	start := time.Now()
	err := do(client, req, api, op, out)
	outcome := string(Classify(err))
	if outcome == "" {
		outcome = "ok"
	}
	metrics.ObserveOutbound(api, op, outcome, time.Since(start))
	return err
}

func do(client *http.Client, req *http.Request, api, op string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", api, op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %v", api, op, ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{API: api, Op: op, Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", api, op, ErrMalformedResponse, err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
