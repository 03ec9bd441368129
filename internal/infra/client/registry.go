// Package client holds HTTP clients for external services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 64 << 10

// RegistryClient calls the external sender registry. It never retries;
// callers decide whether to try again.
type RegistryClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	cb         *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRegistryClient creates a new RegistryClient.
func NewRegistryClient(httpClient *http.Client, baseURL, apiKey, apiSecret string, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *RegistryClient {
	return &RegistryClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		cb:         cb,
		metrics:    metrics,
		logger:     logger,
	}
}

// SubmitBrand registers a brand with the registry.
func (c *RegistryClient) SubmitBrand(ctx context.Context, req *domain.BrandRequest) (*domain.BrandResult, error) {
	ctx, span := tracer.Start(ctx, "RegistryClient.SubmitBrand")
	defer span.End()

	var out domain.BrandResult
	err := c.call(ctx, domain.ActionSubmitBrand, http.MethodPost, "/v2/brands", req, &out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("registry.brand_id", out.BrandID))
	return &out, nil
}

// SubmitCampaign registers a campaign under an existing registry brand.
func (c *RegistryClient) SubmitCampaign(ctx context.Context, req *domain.CampaignRequest) (*domain.CampaignResult, error) {
	ctx, span := tracer.Start(ctx, "RegistryClient.SubmitCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("registry.brand_id", req.BrandID))

	var out domain.CampaignResult
	err := c.call(ctx, domain.ActionSubmitCampaign, http.MethodPost, "/v2/campaigns", req, &out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &out, nil
}

// CheckBrandStatus fetches the current registry status of a brand.
func (c *RegistryClient) CheckBrandStatus(ctx context.Context, brandID string) (*domain.BrandResult, error) {
	ctx, span := tracer.Start(ctx, "RegistryClient.CheckBrandStatus")
	defer span.End()
	span.SetAttributes(attribute.String("registry.brand_id", brandID))

	if brandID == "" {
		return nil, &domain.ErrValidation{Field: "brandId", Message: "required"}
	}

	var out domain.BrandResult
	err := c.call(ctx, domain.ActionCheckBrandStatus, http.MethodGet, "/v2/brands/"+url.PathEscape(brandID), nil, &out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if out.BrandID == "" {
		out.BrandID = brandID
	}
	return &out, nil
}

// CheckCampaignStatus fetches the current registry status of a campaign.
func (c *RegistryClient) CheckCampaignStatus(ctx context.Context, campaignID string) (*domain.CampaignResult, error) {
	ctx, span := tracer.Start(ctx, "RegistryClient.CheckCampaignStatus")
	defer span.End()
	span.SetAttributes(attribute.String("registry.campaign_id", campaignID))

	if campaignID == "" {
		return nil, &domain.ErrValidation{Field: "campaignId", Message: "required"}
	}

	var out domain.CampaignResult
	err := c.call(ctx, domain.ActionCheckCampaignStatus, http.MethodGet, "/v2/campaigns/"+url.PathEscape(campaignID), nil, &out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if out.CampaignID == "" {
		out.CampaignID = campaignID
	}
	return &out, nil
}

// call performs one request through the circuit breaker and decodes a 2xx
// body into out. 4xx responses are marked permanent so they do not trip
// the breaker.
func (c *RegistryClient) call(ctx context.Context, action, method, path string, in, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		var body io.Reader
		if in != nil {
			b, err := json.Marshal(in)
			if err != nil {
				return nil, resilience.Permanent(err)
			}
			body = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		req.SetBasicAuth(c.apiKey, c.apiSecret)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			regErr := &domain.ErrRegistry{StatusCode: resp.StatusCode, Body: string(raw)}
			if resp.StatusCode < 500 {
				return nil, resilience.Permanent(regErr)
			}
			return nil, regErr
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding registry response: %w", err)
		}
		return nil, nil
	})

	if c.metrics != nil {
		c.metrics.IncrRegistryCall(action, err)
	}
	if err == nil {
		return nil
	}

	err = resilience.Unwrap(err)
	if c.logger != nil {
		c.logger.Warn("registry call failed", zap.String("action", action), zap.Error(err))
	}

	var regErr *domain.ErrRegistry
	switch {
	case errors.As(err, &regErr):
		return regErr
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "registry"}
	default:
		if c.metrics != nil {
			c.metrics.IncrExternalError("registry")
		}
		return &domain.ErrExternalService{Service: "registry", Err: err}
	}
}
