package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrInvalidSymbol = errors.New("symbol cannot be empty")
	ErrInvalidPrice  = errors.New("price must be informed")
)

// PriceTick is one price observation for a symbol at a point in time.
// Immutable after construction.
type PriceTick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
}

// NewPriceTick validates and constructs a PriceTick. A zero timestamp
// defaults to the ingestion time.
func NewPriceTick(symbol string, price *decimal.Decimal, timestamp int64) (PriceTick, error) {
	if strings.TrimSpace(symbol) == "" {
		return PriceTick{}, ErrInvalidSymbol
	}
	if price == nil {
		return PriceTick{}, ErrInvalidPrice
	}
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	return PriceTick{
		Symbol:    symbol,
		Price:     *price,
		Timestamp: timestamp,
	}, nil
}

// SubscriptionRequest describes the desired end-state for a symbol.
type SubscriptionRequest struct {
	Symbol    string `json:"symbol"`
	Subscribe bool   `json:"subscribe"`
}

// NewSubscriptionRequest validates and constructs a SubscriptionRequest.
func NewSubscriptionRequest(symbol string, subscribe bool) (SubscriptionRequest, error) {
	if strings.TrimSpace(symbol) == "" {
		return SubscriptionRequest{}, ErrInvalidSymbol
	}

	return SubscriptionRequest{
		Symbol:    symbol,
		Subscribe: subscribe,
	}, nil
}

// PendingSubscription couples a request with its delivery outcome callbacks.
// Exactly one of OnSuccess or OnFailure must be invoked, exactly once.
type PendingSubscription struct {
	Request   SubscriptionRequest
	OnSuccess func()
	OnFailure func()
}
