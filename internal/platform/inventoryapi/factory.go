package inventoryapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/invsync/invsync/internal/constants"
	"github.com/invsync/invsync/internal/domain"
	"golang.org/x/time/rate"
)

// ErrInvalidConfig is returned when the client configuration is unusable.
var ErrInvalidConfig = errors.New("invalid inventory api configuration")

// ClientFactory creates organization-scoped clients sharing one HTTP client
// and one rate limiter.
type ClientFactory struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a ClientFactory.
type Option func(*ClientFactory)

// WithHTTPClient replaces the factory's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *ClientFactory) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// NewClientFactory validates cfg and creates a factory.
func NewClientFactory(cfg Config, logger *slog.Logger, opts ...Option) (*ClientFactory, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url must use http or https", ErrInvalidConfig)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: base url has no host", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	f := &ClientFactory{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With("component", constants.ComponentInventoryClient),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ForOrg returns a client scoped to orgID.
func (f *ClientFactory) ForOrg(orgID string) (*Client, error) {
	if err := domain.ValidateOrgID(orgID); err != nil {
		return nil, err
	}
	return &Client{
		orgID:      orgID,
		baseURL:    f.baseURL,
		httpClient: f.httpClient,
		limiter:    f.limiter,
		logger:     f.logger.With("org_id", orgID),
	}, nil
}
