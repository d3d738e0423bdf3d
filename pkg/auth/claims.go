package auth

import "github.com/golang-jwt/jwt/v5"

// IDTokenPayload captures the profile fields carried by an identity provider token.
type IDTokenPayload struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// IDTokenClaims represents the typed ID token handed back by the sign-in flow.
type IDTokenClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}
