package domain

import "context"

// Quoter returns the executable ask price for an order book token.
type Quoter interface {
	AskPrice(ctx context.Context, tokenID string) (float64, error)
}
