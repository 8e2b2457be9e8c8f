package inventoryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/invsync/invsync/internal/constants"
	"github.com/invsync/invsync/internal/domain"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Config holds inventory API client settings.
type Config struct {
	// BaseURL is the scheme and host of the inventory API, e.g. https://inventory.internal
	BaseURL string

	// Timeout bounds each HTTP request. Zero uses 30 seconds.
	Timeout time.Duration

	// RequestsPerSecond limits the request rate shared by all clients of a
	// factory. Zero or less disables the limit.
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the rate. Defaults to 1.
	Burst int
}

// Client fetches inventory for a single organization.
type Client struct {
	orgID      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type inventoryResponse struct {
	Items []domain.InventoryItem `json:"items"`
}

// OrgID returns the organization the client is scoped to.
func (c *Client) OrgID() string {
	return c.orgID
}

// FetchInventory returns the organization's current inventory items.
func (c *Client) FetchInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/orgs/%s/inventory", c.baseURL, url.PathEscape(c.orgID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build inventory request: %w", err)
	}
	req.Header.Set(constants.HeaderAccept, "application/json")
	req.Header.Set(constants.HeaderUserAgent, constants.UserAgent)
	req.Header.Set(constants.HeaderOrgID, c.orgID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		c.logger.WarnContext(ctx, "inventory request failed", "error", err)
		return nil, NewInventoryServiceUnavailableError("inventory service request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, NewInventoryServiceUnavailableError("failed to read inventory response", err)
	}

	c.logger.DebugContext(ctx, "inventory response received",
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(body))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeItems(body)

	case resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout:
		msg := fmt.Sprintf("inventory service returned status %d", resp.StatusCode)
		if retryAfter := resp.Header.Get(constants.HeaderRetryAfter); retryAfter != "" {
			msg += ", retry after " + retryAfter
		}
		return nil, NewInventoryServiceUnavailableError(msg, nil)

	default:
		return nil, NewAPIError(resp, parseErrorDetails(body))
	}
}

func decodeItems(body []byte) ([]domain.InventoryItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidResponse)
	}
	items := gjson.GetBytes(body, "items")
	if !items.Exists() {
		return nil, fmt.Errorf("%w: missing items", ErrInvalidResponse)
	}
	if items.Type == gjson.Null {
		return []domain.InventoryItem{}, nil
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("%w: items is not an array", ErrInvalidResponse)
	}

	var resp inventoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.Items == nil {
		resp.Items = []domain.InventoryItem{}
	}
	return resp.Items, nil
}

// parseErrorDetails extracts error details from an error body. It accepts
// {"errors":[{"code":..,"message":..}]}, {"errors":["msg"]} and
// {"error":"msg"} shapes; anything else yields nil.
func parseErrorDetails(body []byte) []ErrorDetail {
	if !gjson.ValidBytes(body) {
		return nil
	}

	errs := gjson.GetBytes(body, "errors")
	if errs.IsArray() {
		details := make([]ErrorDetail, 0, len(errs.Array()))
		errs.ForEach(func(_, value gjson.Result) bool {
			if value.IsObject() {
				details = append(details, ErrorDetail{
					Code:    value.Get("code").String(),
					Message: value.Get("message").String(),
					Field:   value.Get("field").String(),
				})
			} else {
				details = append(details, ErrorDetail{Message: value.String()})
			}
			return true
		})
		return details
	}

	for _, path := range []string{"error.message", "error", "message"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && strings.TrimSpace(r.String()) != "" {
			return []ErrorDetail{{
				Code:    gjson.GetBytes(body, "error.code").String(),
				Message: r.String(),
			}}
		}
	}
	return nil
}
