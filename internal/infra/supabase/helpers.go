package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/resilience"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for GET, POST, upsert and PATCH
// ============================================================

// statusError is a non-2xx PostgREST response.
type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.method, e.path, e.code, e.body)
}

// send executes an authenticated request to PostgREST. 4xx responses are
// returned as permanent errors so neither the retry loop nor the breaker
// treats them as outages.
func (c *Client) send(ctx context.Context, method, path string, data any, prefer string) ([]byte, error) {
	var reader io.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		se := &statusError{method: method, path: path, code: resp.StatusCode, body: string(body)}
		if resp.StatusCode < 500 {
			return nil, resilience.Permanent(se)
		}
		return nil, se
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	return c.send(ctx, method, path, nil, "")
}

func (c *Client) doPost(ctx context.Context, table string, data map[string]any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, table, data, "return=representation")
}

// doUpsert inserts data unless a row already matches onConflict. The
// response holds the inserted row, or is empty when the insert was ignored.
func (c *Client) doUpsert(ctx context.Context, table, onConflict string, data map[string]any) ([]byte, error) {
	path := table + "?on_conflict=" + url.QueryEscape(onConflict)
	return c.send(ctx, http.MethodPost, path, data, "resolution=ignore-duplicates,return=representation")
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) error {
	_, err := c.send(ctx, http.MethodPatch, path, data, "return=minimal")
	return err
}
