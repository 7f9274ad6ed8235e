package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Subject  string
	TenantID *uuid.UUID
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to API clients. TenantID
// scopes ledger and reconciliation calls to the caller's tenant.
type AccessTokenClaims struct {
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}
