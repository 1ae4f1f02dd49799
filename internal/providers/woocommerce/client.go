// Package woocommerce talks to the shop's WooCommerce REST API (v3).
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"storefront/internal/domain"
)

// DesignMetaKey is the line-item meta key carrying the artwork URL.
const DesignMetaKey = "design_url"

type Options struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
}

// Client authenticates with consumer key/secret query parameters.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	logger         zerolog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base != "" && !strings.HasSuffix(base, "/wp-json/wc/v3") {
		base += "/wp-json/wc/v3"
	}
	return &Client{
		baseURL:        base,
		consumerKey:    strings.TrimSpace(opts.ConsumerKey),
		consumerSecret: strings.TrimSpace(opts.ConsumerSecret),
		httpClient:     httpClient,
		logger:         opts.Logger,
	}
}

// HasCredentials reports whether the store URL and both keys are set.
func (c *Client) HasCredentials() bool {
	return c != nil && c.baseURL != "" && c.consumerKey != "" && c.consumerSecret != ""
}

// GetOrder returns the raw order document.
func (c *Client) GetOrder(ctx context.Context, id string) (json.RawMessage, error) {
	id = strings.TrimSpace(id)
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, fmt.Errorf("woocommerce: order id %q: %w", id, domain.ErrInvalidInput)
	}
	return c.do(ctx, http.MethodGet, "/orders/"+id, nil, nil)
}

// SearchOrders returns up to 100 orders matching the search term.
func (c *Client) SearchOrders(ctx context.Context, search string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("search", search)
	q.Set("per_page", "100")
	raw, err := c.do(ctx, http.MethodGet, "/orders", q, nil)
	if err != nil {
		return nil, err
	}
	var orders []json.RawMessage
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("woocommerce: decode orders: %w", err)
	}
	return orders, nil
}

type orderPayload struct {
	PaymentMethod string          `json:"payment_method,omitempty"`
	SetPaid       bool            `json:"set_paid"`
	Billing       domain.Address  `json:"billing"`
	Shipping      domain.Address  `json:"shipping"`
	LineItems     []lineItemInput `json:"line_items"`
}

type lineItemInput struct {
	ProductID   int64      `json:"product_id"`
	VariationID int64      `json:"variation_id,omitempty"`
	Quantity    int        `json:"quantity"`
	MetaData    []metaData `json:"meta_data,omitempty"`
}

type metaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateOrder places an order. Only the first line item is forwarded; any
// further items are dropped and logged.
func (c *Client) CreateOrder(ctx context.Context, order domain.NewOrder) (json.RawMessage, error) {
	if len(order.LineItems) == 0 {
		return nil, fmt.Errorf("woocommerce: at least one line item: %w", domain.ErrInvalidInput)
	}
	if dropped := len(order.LineItems) - 1; dropped > 0 {
		c.logger.Warn().Int("dropped_items", dropped).Msg("woocommerce: only the first line item is forwarded")
	}
	first := order.LineItems[0]
	quantity := first.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	item := lineItemInput{ProductID: first.ProductID, VariationID: first.VariationID, Quantity: quantity}
	if u := strings.TrimSpace(order.DesignURL); u != "" {
		item.MetaData = []metaData{{Key: DesignMetaKey, Value: u}}
	}
	payload := orderPayload{
		PaymentMethod: order.PaymentMethod,
		SetPaid:       order.SetPaid,
		Billing:       order.Billing,
		Shipping:      order.Shipping,
		LineItems:     []lineItemInput{item},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: encode order: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/orders", nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("woocommerce: %w", domain.ErrNotConfigured)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", c.consumerKey)
	query.Set("consumer_secret", c.consumerSecret)
	endpoint := c.baseURL + path + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "message").String()
		if msg == "" {
			msg = fmt.Sprintf("woocommerce returned status %d", resp.StatusCode)
		}
		return nil, &domain.UpstreamError{Service: "woocommerce", Status: resp.StatusCode, Message: msg}
	}
	return raw, nil
}

// Status returns the order's status field.
func Status(order json.RawMessage) string {
	return gjson.GetBytes(order, "status").String()
}

// BillingEmail returns the order's billing email.
func BillingEmail(order json.RawMessage) string {
	return gjson.GetBytes(order, "billing.email").String()
}

// FilterByBillingEmail keeps orders billed to email, compared case-insensitively.
// WooCommerce's search parameter is a fuzzy match over several fields, so
// results must be narrowed before they are shown to a shopper. The result is
// never nil.
func FilterByBillingEmail(orders []json.RawMessage, email string) []json.RawMessage {
	email = strings.TrimSpace(email)
	out := make([]json.RawMessage, 0, len(orders))
	for _, o := range orders {
		if email != "" && strings.EqualFold(strings.TrimSpace(BillingEmail(o)), email) {
			out = append(out, o)
		}
	}
	return out
}

// FilterByStatus keeps orders whose status equals status. The result is never nil.
func FilterByStatus(orders []json.RawMessage, status string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(orders))
	for _, o := range orders {
		if Status(o) == status {
			out = append(out, o)
		}
	}
	return out
}
