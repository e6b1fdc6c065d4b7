package provider

import (
	"github.com/golang-jwt/jwt/v5"
)

type idTokenClaims struct {
	jwt.RegisteredClaims
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// decodeProfile extracts display identity from an OAuth ID token. The token
// arrived over TLS from the provider's own token endpoint and is used for
// display only, so the claims are parsed without signature verification.
func decodeProfile(idToken string) Profile {
	if idToken == "" {
		return Profile{}
	}
	claims := &idTokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return Profile{}
	}
	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}
	return Profile{Name: claims.Name, Email: email}
}
