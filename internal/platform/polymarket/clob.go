package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DefaultClobURL is the production CLOB API root.
const DefaultClobURL = "https://clob.polymarket.com"

// ClobClient reads public quotes from the Polymarket CLOB (Central Limit
// Order Book) API.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.Quoter = (*ClobClient)(nil)

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, timeout time.Duration) *ClobClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AskPrice returns the best ask for a token: the price a buyer pays right now.
// The book's sell side carries the asks, hence side=sell.
func (c *ClobClient) AskPrice(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)
	params.Set("side", "sell")

	body, err := doGet(ctx, c.httpClient, c.baseURL+"/price?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: price %s: %w", tokenID, err)
	}

	var resp PriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode price: %w", err)
	}
	if !resp.Price.Set {
		return 0, fmt.Errorf("polymarket/clob: price %s: %w", tokenID, domain.ErrNotFound)
	}
	return resp.Price.Value, nil
}
