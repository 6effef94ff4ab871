// Package backend talks to the managed backend's PostgREST-style REST API.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tradertrackr/internal/config"
	"tradertrackr/internal/models"
	"tradertrackr/internal/observability"
	"tradertrackr/internal/store"
)

const (
	maxRetries         = 3
	defaultBackoffBase = time.Second
)

// APIError is returned when the backend answers with a non-retryable error status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's session token so row-level policies apply to the request.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func accessToken(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(accessTokenKey{}).(string)
	return tok, ok && tok != ""
}

// Client is a trade repository backed by the managed REST API.
type Client struct {
	client      *resty.Client
	apiKey      string
	table       string
	logger      *zap.Logger
	limiter     *rate.Limiter
	backoffBase time.Duration
	now         func() time.Time
}

// ensure Client implements the repository
var _ store.TradeRepository = (*Client)(nil)

// NewClient creates a new backend client.
func NewClient(cfg *config.Backend, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Accept", "application/json")

	table := cfg.Table
	if table == "" {
		table = "trades"
	}

	return &Client{
		client:      client,
		apiKey:      cfg.APIKey,
		table:       table,
		logger:      logger.Named("backend"),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		backoffBase: defaultBackoffBase,
		now:         time.Now,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	bearer := c.apiKey
	if tok, ok := accessToken(ctx); ok {
		bearer = tok
	}
	return c.client.R().
		SetContext(ctx).
		SetHeader("apikey", c.apiKey).
		SetHeader("Authorization", "Bearer "+bearer)
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, op string, req *resty.Request) (*resty.Response, error) {
	start := time.Now()
	resp, err := c.execute(ctx, method, req)
	observability.RecordFetch("backend", op, time.Since(start).Seconds(), err)
	return resp, err
}

func (c *Client) execute(ctx context.Context, method string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	url := "/" + c.table

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			if !shouldRetry {
				return nil, &APIError{StatusCode: statusCode, Body: resp.String()}
			}
			err = &APIError{StatusCode: statusCode, Body: resp.String()}
		} else {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			shouldRetry = true
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoffBase
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// filterParams translates a TradeFilter into PostgREST query parameters.
func filterParams(userID string, filter models.TradeFilter) map[string]string {
	params := map[string]string{
		"user_id": "eq." + userID,
		"order":   "entry_date.desc",
	}
	if filter.Since != nil {
		params["entry_date"] = "gte." + filter.Since.UTC().Format(time.RFC3339)
	}
	if filter.InstrumentType != "" {
		params["instrument_type"] = "eq." + string(filter.InstrumentType)
	}
	if filter.TradeType != "" {
		params["trade_type"] = "eq." + filter.TradeType
	}
	if filter.Strategy != "" {
		params["strategy"] = "eq." + filter.Strategy
	}
	if filter.TickerSubstring != "" {
		params["ticker"] = "ilike.*" + filter.TickerSubstring + "*"
	}
	switch filter.ProfitLossSign {
	case models.PnLProfit:
		params["profit_loss"] = "gt.0"
	case models.PnLLoss:
		params["profit_loss"] = "lt.0"
	case models.PnLBreakeven:
		params["or"] = "(profit_loss.eq.0,profit_loss.is.null)"
	}
	return params
}

// List fetches the user's trades matching the filter, newest entry first.
func (c *Client) List(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, error) {
	if !models.ValidTickerSearch(filter.TickerSubstring) {
		return nil, fmt.Errorf("%w: ticker search %q", store.ErrInvalidInput, filter.TickerSubstring)
	}
	var trades []models.Trade
	req := c.request(ctx).
		SetQueryParams(filterParams(userID, filter)).
		SetResult(&trades)

	if _, err := c.doRequest(ctx, http.MethodGet, "list", req); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Get fetches one of the user's trades.
func (c *Client) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Trade, error) {
	var trades []models.Trade
	req := c.request(ctx).
		SetQueryParams(map[string]string{
			"id":      "eq." + id.String(),
			"user_id": "eq." + userID,
			"limit":   "1",
		}).
		SetResult(&trades)

	if _, err := c.doRequest(ctx, http.MethodGet, "get", req); err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	if len(trades) == 0 {
		return nil, store.ErrNotFound
	}
	return &trades[0], nil
}

// Create validates and inserts a trade, adopting the stored representation.
func (c *Client) Create(ctx context.Context, trade *models.Trade) error {
	if err := store.Prepare(trade); err != nil {
		return err
	}
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	now := c.now().UTC()
	trade.CreatedAt, trade.UpdatedAt = now, now

	var created []models.Trade
	req := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetBody(trade).
		SetResult(&created)

	if _, err := c.doRequest(ctx, http.MethodPost, "create", req); err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	if len(created) > 0 {
		*trade = created[0]
	}
	return nil
}

// Update validates and replaces one of the user's trades.
func (c *Client) Update(ctx context.Context, trade *models.Trade) error {
	if err := store.Prepare(trade); err != nil {
		return err
	}
	trade.UpdatedAt = c.now().UTC()

	body, err := patchBody(trade)
	if err != nil {
		return fmt.Errorf("failed to encode trade: %w", err)
	}

	var updated []models.Trade
	req := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{
			"id":      "eq." + trade.ID.String(),
			"user_id": "eq." + trade.UserID,
		}).
		SetBody(body).
		SetResult(&updated)

	if _, err := c.doRequest(ctx, http.MethodPatch, "update", req); err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	if len(updated) == 0 {
		return store.ErrNotFound
	}
	*trade = updated[0]
	return nil
}

// immutableColumns are owned by the row and never sent in an update.
var immutableColumns = []string{"id", "user_id", "created_at"}

// patchBody encodes the trade without its immutable columns. Raw values keep decimals exact.
func patchBody(trade *models.Trade) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(trade)
	if err != nil {
		return nil, err
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	for _, col := range immutableColumns {
		delete(body, col)
	}
	return body, nil
}

type deletedRow struct {
	ID uuid.UUID `json:"id"`
}

func (c *Client) deleteWhere(ctx context.Context, op string, params map[string]string) (int64, error) {
	var deleted []deletedRow
	params["select"] = "id"
	req := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(params).
		SetResult(&deleted)

	if _, err := c.doRequest(ctx, http.MethodDelete, op, req); err != nil {
		return 0, err
	}
	return int64(len(deleted)), nil
}

// Delete removes one of the user's trades.
func (c *Client) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	n, err := c.deleteWhere(ctx, "delete", map[string]string{
		"id":      "eq." + id.String(),
		"user_id": "eq." + userID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteAll removes every trade the user owns.
func (c *Client) DeleteAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, store.ErrInvalidInput
	}
	n, err := c.deleteWhere(ctx, "delete_all", map[string]string{"user_id": "eq." + userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades: %w", err)
	}
	c.logger.Info("Deleted all trades for user", zap.String("user_id", userID), zap.Int64("count", n))
	return n, nil
}
