package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is what the API knows about a user when minting a token.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
	// JTI binds the token to a refresh session; generated when empty.
	JTI string
}

// AccessTokenClaims is the signed body of an access token.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin"`
	jwt.RegisteredClaims
}

// Principal returns the request identity carried by the claims.
func (c AccessTokenClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Email: c.Email, IsAdmin: c.IsAdmin, SessionID: c.ID}
}
