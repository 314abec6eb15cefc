// Package nova provides a client for the OpenStack Compute (Nova) API.
package nova

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"vm-reconcile/internal/config"
	"vm-reconcile/internal/model"
)

// ComputeBinary is the service binary that identifies hypervisor hosts.
const ComputeBinary = "nova-compute"

// defaultPageSize is used when the configured page size is zero.
const defaultPageSize = 1000

// Client is a client for the Nova API.
// It is built once per run and shared read-only by the inspector.
type Client struct {
	endpoint        string             // Nova API endpoint
	token           string             // Authentication token
	timeout         time.Duration      // Request timeout
	pageSize        int                // Servers per page
	includeDisabled bool               // Include disabled compute services
	retry           config.RetryConfig // Retry configuration
	httpClient      *resty.Client      // HTTP client
	logger          zerolog.Logger     // Logger
}

// NewClient creates a new Nova API client.
func NewClient(cfg *config.NovaConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	retry := config.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
	if retryCfg != nil {
		retry = *retryCfg
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("X-Auth-Token", cfg.Token).
		SetHeader("Accept", "application/json").
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8). // Max wait time for exponential backoff
		AddRetryCondition(retryCondition)

	return &Client{
		endpoint:        cfg.Endpoint,
		token:           cfg.Token,
		timeout:         timeout,
		pageSize:        pageSize,
		includeDisabled: cfg.IncludeDisabled,
		retry:           retry,
		httpClient:      httpClient,
		logger:          logger.With().Str("component", "nova-client").Logger(),
	}
}

// retryCondition determines whether a request should be retried.
// Only retry on timeout, 5xx errors, or connection failures.
// Do not retry on 4xx errors.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if resp != nil && resp.StatusCode() >= 500 {
		return true
	}

	return false
}

// apiError builds an error from a non-200 response.
func apiError(resp *resty.Response, what string) error {
	var body ErrorResponse
	msg := string(resp.Body())
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message() != "" {
		msg = body.Message()
	}
	return fmt.Errorf("nova API returned status %d for %s: %s", resp.StatusCode(), what, msg)
}

// ListComputeHosts retrieves the nova-compute hosts, sorted by name.
// Disabled services are skipped unless include_disabled is set.
func (c *Client) ListComputeHosts(ctx context.Context) ([]*model.ComputeHost, error) {
	c.logger.Debug().Msg("fetching compute services from nova")

	var result ServicesResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParam("binary", ComputeBinary).
		Get("/os-services")

	if err != nil {
		c.logger.Error().Err(err).Msg("failed to fetch compute services")
		return nil, fmt.Errorf("failed to fetch compute services: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Msg("nova API returned non-200 status")
		return nil, apiError(resp, "compute services")
	}

	seen := make(map[string]bool)
	var hosts []*model.ComputeHost
	var skipped int
	for i := range result.Services {
		svc := &result.Services[i]
		if svc.Binary != "" && svc.Binary != ComputeBinary {
			continue
		}
		if svc.Host == "" {
			continue
		}
		if !svc.IsEnabled() && !c.includeDisabled {
			c.logger.Debug().Str("host", svc.Host).Msg("skipping disabled compute service")
			skipped++
			continue
		}
		key := model.NormalizeHostname(svc.Host)
		if seen[key] {
			continue
		}
		seen[key] = true
		hosts = append(hosts, svc.ToComputeHost())
	}

	c.logger.Info().Int("count", len(hosts)).Int("disabled", skipped).Msg("fetched compute hosts successfully")
	return model.SortHosts(hosts), nil
}

// ListInstances retrieves every server across all tenants, following pagination.
// Deleted servers and servers without a hypervisor label are skipped.
func (c *Client) ListInstances(ctx context.Context) ([]*model.ControlPlaneInstance, error) {
	c.logger.Debug().Int("page_size", c.pageSize).Msg("fetching servers from nova")

	var instances []*model.ControlPlaneInstance
	var skipped, pages int
	marker := ""

	for {
		page, err := c.listServersPage(ctx, marker)
		if err != nil {
			return nil, err
		}
		pages++

		for i := range page.Servers {
			srv := &page.Servers[i]
			if srv.IsDeleted() || srv.InstanceName == "" {
				skipped++
				continue
			}
			instances = append(instances, srv.ToInstance())
		}

		if len(page.Servers) == 0 || !hasNext(page.Links) {
			break
		}
		next := page.Servers[len(page.Servers)-1].ID
		if next == marker {
			break
		}
		marker = next
	}

	c.logger.Info().
		Int("count", len(instances)).
		Int("skipped", skipped).
		Int("pages", pages).
		Msg("fetched servers successfully")
	return instances, nil
}

// listServersPage fetches one page of /servers/detail.
func (c *Client) listServersPage(ctx context.Context, marker string) (*ServersResponse, error) {
	queryParams := map[string]string{
		"all_tenants": "1",
		"limit":       strconv.Itoa(c.pageSize),
	}
	if marker != "" {
		queryParams["marker"] = marker
	}

	var result ServersResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParams(queryParams).
		Get("/servers/detail")

	if err != nil {
		c.logger.Error().Err(err).Str("marker", marker).Msg("failed to fetch servers")
		return nil, fmt.Errorf("failed to fetch servers: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("marker", marker).
			Str("body", string(resp.Body())).
			Msg("nova API returned non-200 status")
		return nil, apiError(resp, "servers")
	}

	return &result, nil
}

// hasNext reports whether the pagination links include a next page.
func hasNext(links []Link) bool {
	for _, l := range links {
		if l.Rel == "next" {
			return true
		}
	}
	return false
}
