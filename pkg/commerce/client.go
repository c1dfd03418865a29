package commerce

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
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"golang.org/x/sync/singleflight"
)

// MockCodePrefix prefixes the codes issued in mock mode.
const MockCodePrefix = "SUSHI-"

// APIError is a non-success response from the commerce platform
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce api returned status %d: %s", e.StatusCode, e.Body)
}

// Client represents a commerce platform API client that issues discount codes
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	MockAPI      bool
	tokens       *TokenCache
	refresh      singleflight.Group
	client       *http.Client
	now          func() time.Time
}

type discountCodeRequest struct {
	Value         decimal.Decimal `json:"value"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customerEmail"`
	UsageLimit    int             `json:"usageLimit"`
	PointsCost    int             `json:"pointsCost"`
}

type discountCodeResponse struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Value     decimal.Decimal `json:"value"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewClient creates a new commerce API client. tokens is shared by every
// request the client makes; a nil cache gets a private one.
func NewClient(cfg config.CommerceConfig, tokens *TokenCache) *Client {
	if tokens == nil {
		tokens = NewTokenCache(DefaultTokenSkew)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Currency:     cfg.Currency,
		MockAPI:      cfg.MockAPI,
		tokens:       tokens,
		client:       &http.Client{Timeout: timeout},
		now:          time.Now,
	}
}

// IssueCoupon creates a single-use discount code worth req.Value
func (c *Client) IssueCoupon(ctx context.Context, req models.CouponRequest) (*models.Coupon, error) {
	if c.MockAPI {
		return c.mockIssueCoupon(req), nil
	}

	body, err := json.Marshal(discountCodeRequest{
		Value:         req.Value,
		Currency:      c.Currency,
		CustomerEmail: req.Email,
		UsageLimit:    1,
		PointsCost:    req.PointsCost,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}
	status, respBody, err := c.do(ctx, http.MethodPost, "/discount_codes", body, headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, &APIError{StatusCode: status, Body: string(respBody)}
	}

	var response discountCodeResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if response.ID == "" || response.Code == "" {
		return nil, errors.New("commerce api returned a discount code without id or code")
	}

	coupon := &models.Coupon{
		ID:       response.ID,
		Code:     response.Code,
		Value:    response.Value,
		Currency: response.Currency,
		IssuedAt: response.CreatedAt,
	}
	if coupon.Currency == "" {
		coupon.Currency = c.Currency
	}
	if coupon.IssuedAt.IsZero() {
		coupon.IssuedAt = c.now()
	}
	return coupon, nil
}

// VoidCoupon deletes a discount code. A code that no longer exists counts as voided.
func (c *Client) VoidCoupon(ctx context.Context, couponID string) error {
	if c.MockAPI {
		return nil
	}
	status, respBody, err := c.do(ctx, http.MethodDelete, "/discount_codes/"+url.PathEscape(couponID), nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return &APIError{StatusCode: status, Body: string(respBody)}
	}
}

// mockIssueCoupon issues a local code without calling the platform
func (c *Client) mockIssueCoupon(req models.CouponRequest) *models.Coupon {
	id := uuid.New()
	code := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return &models.Coupon{
		ID:       id.String(),
		Code:     MockCodePrefix + code,
		Value:    req.Value,
		Currency: c.Currency,
		IssuedAt: c.now(),
	}
}

// do sends an authenticated request. A 401 drops the cached token and the
// request is retried once with a fresh one.
func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.token(ctx)
		if err != nil {
			return 0, nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to send request: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.tokens.Invalidate()
			continue
		}
		return resp.StatusCode, respBody, nil
	}
}

// token returns a cached access token or exchanges the client credentials
// for a new one. Concurrent callers share a single exchange, which runs on
// its own timeout so one cancelled caller cannot fail the others.
func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(); ok {
		return token, nil
	}
	ch := c.refresh.DoChan("token", func() (interface{}, error) {
		if token, ok := c.tokens.Get(); ok {
			return token, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
		defer cancel()
		return c.fetchToken(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response carried no access_token")
	}
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.tokens.Set(tr.AccessToken, ttl)
	return tr.AccessToken, nil
}
