package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Summary string `json:"error"`
	Message string `json:"message"`
	// Code is the domain error code, e.g. "payment_already_applied".
	Code string `json:"code"`
}

func (e *apiError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%d %s (%s): %s", e.Status, e.Summary, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%d %s: %s", e.Status, e.Summary, e.Message)
	default:
		return fmt.Sprintf("status %d", e.Status)
	}
}

type apiClient struct {
	baseURL    string
	actor      string
	http       *http.Client
	maxElapsed time.Duration
}

func newAPIClient(baseURL, actor string, timeout, maxElapsed time.Duration) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		actor:      actor,
		http:       &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
	}
}

// do sends one request. Mutations carry a fresh Idempotency-Key that is
// reused across retries, so a 503 from a busy sequence counter can be
// retried without double posting.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	key := ""
	if method != http.MethodGet {
		key = ulid.Make().String()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = c.maxElapsed

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		if c.actor != "" {
			req.Header.Set("X-Actor", c.actor)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 300 {
			apiErr := &apiError{Status: resp.StatusCode}
			_ = json.Unmarshal(raw, apiErr)
			if resp.StatusCode == http.StatusServiceUnavailable {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

// hasCode reports whether err is an API error carrying the given domain code.
func hasCode(err error, code string) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
