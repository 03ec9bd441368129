// Package supabase implements the persistence ports on top of the Supabase
// PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// Ping checks that PostgREST answers with the service key.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "profiles?select=id&limit=1")
	return err
}

// eq builds a PostgREST equality filter value.
func eq(v string) string {
	return "eq." + url.QueryEscape(v)
}

// in builds a PostgREST list filter value.
func in(values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = url.QueryEscape(v)
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// fetch runs a GET through the breaker with retries and decodes the rows.
// Client errors are not retried.
func fetch[T any](ctx context.Context, c *Client, table, path string) ([]T, error) {
	var rows []T
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			rows = nil
			if len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, &rows); err != nil {
				return resilience.Permanent(fmt.Errorf("decode %s: %w", table, err))
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr(table, err)
	}
	return rows, nil
}

// fetchOne returns the first row or nil when the query matched nothing.
func fetchOne[T any](ctx context.Context, c *Client, table, path string) (*T, error) {
	rows, err := fetch[T](ctx, c, table, path)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// insert posts one row and decodes the representation returned.
func insert[T any](ctx context.Context, c *Client, table string, row map[string]any) (*T, error) {
	var out *T
	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doPost(ctx, table, row)
		if err != nil {
			return nil, err
		}
		var rows []T
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("decode %s: %w", table, err))
		}
		if len(rows) == 0 {
			return nil, resilience.Permanent(fmt.Errorf("no result from %s insert", table))
		}
		out = &rows[0]
		return nil, nil
	})
	if err != nil {
		return nil, wrapErr(table, err)
	}
	return out, nil
}

// insertIfAbsent inserts row unless a row with the same conflict key exists.
// It reports whether the row was created; when it was not, existing is
// queried and returned instead.
func insertIfAbsent[T any](ctx context.Context, c *Client, table, onConflict string, row map[string]any, existing string) (*T, bool, error) {
	var rows []T
	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doUpsert(ctx, table, onConflict, row)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("decode %s: %w", table, err))
		}
		return nil, nil
	})
	if err != nil {
		return nil, false, wrapErr(table, err)
	}
	if len(rows) > 0 {
		return &rows[0], true, nil
	}

	found, err := fetchOne[T](ctx, c, table, existing)
	if err != nil {
		return nil, false, err
	}
	if found == nil {
		return nil, false, &domain.ErrConflict{Message: fmt.Sprintf("%s: insert ignored but no existing row on %s", table, onConflict)}
	}
	return found, false, nil
}

// update patches the rows matched by path.
func (c *Client) update(ctx context.Context, table, path string, data map[string]any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.doPatch(ctx, path, data)
	})
	if err != nil {
		return wrapErr(table, err)
	}
	return nil
}

// wrapErr maps transport failures onto domain errors.
func wrapErr(table string, err error) error {
	err = resilience.Unwrap(err)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return &domain.ErrConflict{Message: fmt.Sprintf("%s: %s", table, se.body)}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	return &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
}
