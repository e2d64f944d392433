package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/storepulse/storepulse/pkg/types"
	"github.com/storepulse/storepulse/server/internal/config"
)

// Sentinel errors inspected with errors.Is.
var (
	ErrStoreNotFound = errors.New("store not found")
	ErrUpstream      = errors.New("upstream request failed")
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// OrderPage is the decoded result of one orders request.
type OrderPage struct {
	Orders []types.Order
	// Total is the count reported by the provider.
	Total int
	// Skipped counts records that could not be decoded at all.
	Skipped int
}

// Client talks to the upstream provider. It is safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	pageSize int
	logger   *slog.Logger
}

// New builds a Client for cfg. The HTTP client is built once and reused.
func New(cfg config.UpstreamConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("upstream: parse url %q: %w", cfg.URL, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	return &Client{
		base:     base,
		http:     buildHTTPClient(cfg),
		pageSize: pageSize,
		logger:   logger.With("component", "upstream"),
	}, nil
}

// ListStores returns every store, following limit/offset pagination until
// the provider's total is reached or a short page arrives.
func (c *Client) ListStores(ctx context.Context) ([]types.Store, error) {
	var all []types.Store
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page types.StoreList
		if err := c.getJSON(ctx, "/api/stores", q, &page); err != nil {
			return nil, fmt.Errorf("upstream: list stores: %w", err)
		}
		all = append(all, page.Stores...)
		offset += len(page.Stores)

		if len(page.Stores) == 0 || len(page.Stores) < c.pageSize || offset >= page.Total {
			return all, nil
		}
	}
}

// GetStore returns one store's attributes and profile.
func (c *Client) GetStore(ctx context.Context, storeID string) (types.Store, error) {
	var s types.Store
	if err := c.getJSON(ctx, "/api/stores/"+url.PathEscape(storeID), nil, &s); err != nil {
		return types.Store{}, fmt.Errorf("upstream: get store %q: %w", storeID, err)
	}
	return s, nil
}

// GetOrders returns the store's raw orders. Records that are not JSON
// objects are skipped and counted; field-level problems are left to the
// lenient field decoders.
func (c *Client) GetOrders(ctx context.Context, storeID string) (OrderPage, error) {
	var env struct {
		Orders []json.RawMessage `json:"orders"`
		Total  int               `json:"total"`
	}
	if err := c.getJSON(ctx, "/api/stores/"+url.PathEscape(storeID)+"/orders", nil, &env); err != nil {
		return OrderPage{}, fmt.Errorf("upstream: get orders for %q: %w", storeID, err)
	}

	page := OrderPage{Orders: make([]types.Order, 0, len(env.Orders)), Total: env.Total}
	for _, raw := range env.Orders {
		var o types.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			page.Skipped++
			continue
		}
		page.Orders = append(page.Orders, o)
	}
	if page.Skipped > 0 {
		c.logger.Warn("upstream: skipped undecodable orders", "store", storeID, "count", page.Skipped)
	}
	return page, nil
}

// getJSON performs a GET on path and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return ErrStoreNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrUpstream, err)
	}
	return nil
}
