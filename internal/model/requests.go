package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlaceBidRequest struct {
	// Amount accepts a JSON number or numeric string; decimal parsing
	// keeps money exact.
	Amount decimal.Decimal `json:"amount"`
}

type CreateListingRequest struct {
	Title         string          `json:"title" validate:"required,max=255"`
	Description   string          `json:"description" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	Images        []string        `json:"images" validate:"omitempty,max=4"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	EndTime       time.Time       `json:"end_time" validate:"required"`
}

type UpdateListingRequest struct {
	Title         string          `json:"title" validate:"required,max=255"`
	Description   string          `json:"description" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	Images        []string        `json:"images" validate:"omitempty,max=4"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	EndTime       time.Time       `json:"end_time" validate:"required"`
}
