package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/domain"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Client talks to the Elizabeth backend: auth, search, provider credentials
// and the detail-job correlation endpoints.
type Client interface {
	Login(ctx context.Context) (*AuthResponse, error)
	Register(ctx context.Context, email, password string) (*AuthResponse, error)
	Me(ctx context.Context) (*Profile, error)
	UpdateProfile(ctx context.Context, patch map[string]any) (*Profile, error)

	ArmtekCredentials(ctx context.Context) (*ArmtekCredentials, error)
	SaveArmtekCredentials(ctx context.Context, creds ArmtekCredentials) error
	DeleteArmtekCredentials(ctx context.Context) error

	Search(ctx context.Context, query domain.SearchQuery) (*SearchResponse, error)
	BulkSearch(ctx context.Context, queries []domain.SearchQuery) (*SearchResponse, error)

	RequestDetails(ctx context.Context, productIDs []int64) ([]CreatedJob, error)
	DetailJobs(ctx context.Context, limit int) ([]domain.DetailJob, error)
	PollStatuses(ctx context.Context, requestIDs []string) ([]RowSnapshot, error)
	PostDetails(ctx context.Context, productID, correlationID string, payload map[string]any) error
}

type client struct {
	cfg        config.BackendConfig
	httpClient *resty.Client
}

func NewClient(cfg config.BackendConfig) Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetHeader("Accept", "application/json")

	return &client{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// Login exchanges the configured account for a token pair and installs the
// access token on every subsequent request.
func (c *client) Login(ctx context.Context) (*AuthResponse, error) {
	var result AuthResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": c.cfg.Email, "password": c.cfg.Password}).
		SetResult(&result).
		Post("/auth/login")
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("login rejected: %d %s", resp.StatusCode(), resp.Status())
	}

	c.httpClient.SetAuthToken(result.Tokens.Access)
	log.Infof("Authenticated as %s", result.User.Email)
	return &result, nil
}

func (c *client) Register(ctx context.Context, email, password string) (*AuthResponse, error) {
	var result AuthResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		Post("/auth/register")
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("register rejected: %d %s", resp.StatusCode(), resp.Status())
	}

	c.httpClient.SetAuthToken(result.Tokens.Access)
	return &result, nil
}

func (c *client) Me(ctx context.Context) (*Profile, error) {
	var result Profile
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/auth/me")
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("profile request rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return &result, nil
}

func (c *client) UpdateProfile(ctx context.Context, patch map[string]any) (*Profile, error) {
	var result Profile
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(patch).
		SetResult(&result).
		Patch("/auth/me")
	if err != nil {
		return nil, fmt.Errorf("profile update failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("profile update rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return &result, nil
}

// ArmtekCredentials returns the stored supplier login, or nil when the
// backend answers 204 (nothing stored yet).
func (c *client) ArmtekCredentials(ctx context.Context) (*ArmtekCredentials, error) {
	var result ArmtekCredentials
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/providers/armtek/credentials")
	if err != nil {
		return nil, fmt.Errorf("credentials request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("credentials request rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return &result, nil
}

func (c *client) SaveArmtekCredentials(ctx context.Context, creds ArmtekCredentials) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(creds).
		Post("/providers/armtek/credentials")
	if err != nil {
		return fmt.Errorf("credentials save failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("credentials save rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return nil
}

func (c *client) DeleteArmtekCredentials(ctx context.Context) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Delete("/providers/armtek/credentials")
	if err != nil {
		return fmt.Errorf("credentials delete failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("credentials delete rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return nil
}

func (c *client) Search(ctx context.Context, query domain.SearchQuery) (*SearchResponse, error) {
	var result SearchResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"query": query.String()}).
		SetResult(&result).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return &result, nil
}

func (c *client) BulkSearch(ctx context.Context, queries []domain.SearchQuery) (*SearchResponse, error) {
	lines := make([]string, 0, len(queries))
	for _, q := range queries {
		lines = append(lines, q.String())
	}

	var result SearchResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"queries": lines}).
		SetResult(&result).
		Post("/search/bulk")
	if err != nil {
		return nil, fmt.Errorf("bulk search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bulk search rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return &result, nil
}

func (c *client) RequestDetails(ctx context.Context, productIDs []int64) ([]CreatedJob, error) {
	var result []CreatedJob
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"product_ids": productIDs}).
		SetResult(&result).
		Post("/products/details/request")
	if err != nil {
		return nil, fmt.Errorf("details request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("details request rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return result, nil
}

func (c *client) DetailJobs(ctx context.Context, limit int) ([]domain.DetailJob, error) {
	var result []domain.DetailJob
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&result).
		Get("/products/details/jobs")
	if err != nil {
		return nil, fmt.Errorf("jobs request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("jobs request rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return result, nil
}

func (c *client) PollStatuses(ctx context.Context, requestIDs []string) ([]RowSnapshot, error) {
	var result []RowSnapshot
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"request_ids": requestIDs}).
		SetResult(&result).
		Post("/products/details/status")
	if err != nil {
		return nil, fmt.Errorf("status poll failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status poll rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return result, nil
}

// PostDetails is the scraper-side ingest call. The correlation id travels in
// the URL and is repeated in the X-Details-Token header for integrity; the
// payload is sparse (resolved fields only).
func (c *client) PostDetails(ctx context.Context, productID, correlationID string, payload map[string]any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Details-Token", correlationID).
		SetQueryParam("request_id", correlationID).
		SetBody(payload).
		Post(fmt.Sprintf("/products/%s/details", url.PathEscape(productID)))
	if err != nil {
		return fmt.Errorf("details ingest failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("details ingest rejected: %d %s", resp.StatusCode(), resp.Status())
	}
	return nil
}
