package config

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Token Expiration Duration
	AccessTokenDuration = 15 * time.Minute

	// Context Keys
	UserClaimKey = "user_claims"
)

// DefaultBidIncrement is the minimum amount a new bid must exceed the
// current bid by when BID_INCREMENT is not configured. One whole
// currency unit.
var DefaultBidIncrement = decimal.NewFromInt(1)

// UserClaims is the payload for the Access Token issued by the
// external identity provider. The core only validates and reads it.
type UserClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}
