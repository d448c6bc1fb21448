package model

import (
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/shopspring/decimal"
)

// Metadata for the response
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error details
type ErrorDetails struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details []ErrorDetails `json:"details"`
}

type APIResponse[T any] struct {
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
	Data     T         `json:"data,omitempty"`
}

type PlaceBidResponse struct {
	Bid            auction.Bid     `json:"bid"`
	NextMinimumBid decimal.Decimal `json:"next_minimum_bid"`
}
