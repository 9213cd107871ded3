package minting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/machikado/market/internal/config"
	paymentdomain "github.com/machikado/market/internal/payment/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Client submits mint requests to the external minting service. The service
// answers asynchronously through the mint callback webhook, so a request only
// acknowledges receipt.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.MintServiceURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.MintServiceToken),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log.Named("minting.client"),
	}
}

type mintRequest struct {
	RequestID string `json:"request_id"`
	ProductID int64  `json:"product_id"`
	TokenID   int64  `json:"token_id"`
}

func (c *Client) RequestMint(ctx context.Context, productID, tokenID int64) error {
	payload := mintRequest{
		RequestID: ulid.Make().String(),
		ProductID: productID,
		TokenID:   tokenID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/mints", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// The minting service dedupes on this key when we retry after a timeout.
	req.Header.Set("Idempotency-Key", fmt.Sprintf("%d-%d", productID, tokenID))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mint request rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	c.log.Info("mint requested",
		zap.Int64("product_id", productID),
		zap.Int64("token_id", tokenID),
		zap.String("request_id", payload.RequestID),
	)
	return nil
}

var _ paymentdomain.MintRequester = (*Client)(nil)
