package auth

import (
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	StoreID *uuid.UUID
	Role    enums.UserRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to dashboard clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID      `json:"user_id"`
	StoreID *uuid.UUID     `json:"store_id,omitempty"`
	Role    enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
