// Package upstream adapts the remote storefront product and cart API.
package upstream

import (
	"bytes"
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

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceName labels upstream errors and breakers.
const ServiceName = "storefront-api"

// DefaultSessionHeader carries the browser session on cart calls so the API
// resolves the caller's own cart.
const DefaultSessionHeader = "X-Session-ID"

const maxResponseBytes = 8 << 20

var collectionPaths = map[domain.Collection]string{
	domain.CollectionAll: "/product/all-products",
	domain.CollectionOur: "/product/our",
	domain.CollectionPC:  "/product/pc",
}

// Config holds the remote API settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// SessionHeader names the header forwarded on cart calls.
	// Empty means DefaultSessionHeader.
	SessionHeader string
}

// Reply is the optional body of a successful cart call.
type Reply struct {
	Message string `json:"message"`
}

// breakerDoer is satisfied by *httpclient.CircuitBreakerClient.
type breakerDoer interface {
	httpclient.Doer
	State() gobreaker.State
}

// Client calls the remote storefront API. Listing reads are retried; cart
// writes are not, since the API has no idempotent add. Each side sits behind
// its own circuit breaker.
type Client struct {
	baseURL       string
	sessionHeader string
	reads         breakerDoer
	writes        breakerDoer
	logger        *slog.Logger
}

// NewClient builds a client for cfg.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	readCfg := httpclient.DefaultConfig()
	readCfg.Timeout = cfg.Timeout
	readCfg.MaxRetries = cfg.MaxRetries

	writeCfg := readCfg
	writeCfg.MaxRetries = 0

	header := cfg.SessionHeader
	if header == "" {
		header = DefaultSessionHeader
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		sessionHeader: header,
		reads: httpclient.NewCircuitBreakerClient(httpclient.New(readCfg),
			httpclient.DefaultCircuitBreakerConfig(ServiceName+"-read"), logger),
		writes: httpclient.NewCircuitBreakerClient(httpclient.New(writeCfg),
			httpclient.DefaultCircuitBreakerConfig(ServiceName+"-write"), logger),
		logger: logger,
	}
}

// ListProducts fetches a collection and normalizes it. The API may answer
// with a bare array or wrap it in {"data": [...]} or {"products": [...]}.
func (c *Client) ListProducts(ctx context.Context, collection domain.Collection) (_ []domain.Product, err error) {
	path, ok := collectionPaths[collection]
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown collection %q", collection))
	}

	ctx, span := tracing.StartSpan(ctx, "upstream.ListProducts", attribute.String("storefront.collection", string(collection)))
	defer func() { tracing.EndSpan(span, err) }()

	body, err := c.call(ctx, c.reads, http.MethodGet, path, "")
	if err != nil {
		return nil, err
	}

	raws, err := decodeProductList(body)
	if err != nil {
		return nil, &apperrors.AppError{
			Code:    apperrors.CodeUpstreamFailed,
			Message: "unexpected product list format",
			Status:  http.StatusBadGateway,
			Err:     err,
		}
	}

	products, missing := domain.NormalizeAll(raws)
	if missing > 0 {
		c.logger.WarnContext(ctx, "products without identifier in listing",
			slog.String("collection", string(collection)),
			slog.Int("count", missing),
		)
	}
	return products, nil
}

// CreateCart asks the API to create the session's cart.
func (c *Client) CreateCart(ctx context.Context, sessionID string) (Reply, error) {
	return c.cartCall(ctx, "upstream.CreateCart", "/cart", sessionID, "")
}

// AddItem adds one unit of productID to the session's cart.
func (c *Client) AddItem(ctx context.Context, sessionID, productID string) (Reply, error) {
	return c.cartCall(ctx, "upstream.AddItem", "/cart/items/"+url.PathEscape(productID), sessionID, productID)
}

// IncreaseItem increments the quantity of productID in the session's cart.
func (c *Client) IncreaseItem(ctx context.Context, sessionID, productID string) (Reply, error) {
	return c.cartCall(ctx, "upstream.IncreaseItem", "/cart/items/"+url.PathEscape(productID)+"/increase", sessionID, productID)
}

// Healthy returns an error while the listing breaker is open.
func (c *Client) Healthy(context.Context) error {
	if c.reads.State() == gobreaker.StateOpen {
		return fmt.Errorf("%s circuit breaker open", ServiceName)
	}
	return nil
}

func (c *Client) cartCall(ctx context.Context, spanName, path, sessionID, productID string) (reply Reply, err error) {
	if sessionID == "" {
		return Reply{}, apperrors.InvalidInput("session id is required for cart calls")
	}

	ctx, span := tracing.StartSpan(ctx, spanName, attribute.String("storefront.product_id", productID))
	defer func() { tracing.EndSpan(span, err) }()

	body, err := c.call(ctx, c.writes, http.MethodPost, path, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if len(bytes.TrimSpace(body)) > 0 {
		// Bodies without a message are fine; only the message is used.
		_ = json.Unmarshal(body, &reply)
	}
	reply.Message = strings.TrimSpace(reply.Message)
	return reply, nil
}

func (c *Client) call(ctx context.Context, doer httpclient.Doer, method, path, sessionID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if sessionID != "" {
		req.Header.Set(c.sessionHeader, sessionID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := doer.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperrors.Unavailable(ServiceName+" unavailable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, ServiceName)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Unavailable(ServiceName+" response truncated", err)
	}
	return body, nil
}

func decodeProductList(body []byte) ([]domain.RawProduct, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []domain.RawProduct
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var envelope struct {
		Data     []domain.RawProduct `json:"data"`
		Products []domain.RawProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	switch {
	case envelope.Data != nil:
		return envelope.Data, nil
	case envelope.Products != nil:
		return envelope.Products, nil
	}
	return nil, errors.New("response has neither data nor products")
}
