package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthJWT signs a fresh HS256 token for every call.
	AuthJWT
	// AuthCustom uses a custom function.
	AuthCustom
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username and Password are the basic auth credentials (AuthBasic).
	Username string
	Password string
	// Key is the API key value (AuthAPIKey).
	Key string
	// In is where the API key goes: "header" (default) or "query".
	In string
	// Name is the header or query parameter name (AuthAPIKey). Defaults to "X-API-Key".
	Name string
	// SigningKey is the HMAC secret (AuthJWT).
	SigningKey []byte
	// Claims returns the claims to sign for one call (AuthJWT).
	Claims func() jwt.Claims
	// Apply modifies the outgoing headers and URL (AuthCustom).
	Apply func(h http.Header, u *url.URL) error
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via the X-API-Key header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// JWTAuth signs the claims returned by claims with key on every call and
// sends the result as a bearer token.
func JWTAuth(key []byte, claims func() jwt.Claims) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, SigningKey: key, Claims: claims}
}

// ServiceJWT is a JWTAuth whose claims carry the given subject and expire
// after ttl.
func ServiceJWT(key []byte, subject string, ttl time.Duration) *AuthConfig {
	return JWTAuth(key, func() jwt.Claims {
		now := time.Now()
		return jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		}
	})
}

// CustomAuth creates a custom auth config.
func CustomAuth(fn func(h http.Header, u *url.URL) error) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// apply writes credentials into the outgoing headers or URL.
func (a *AuthConfig) apply(h http.Header, u *url.URL) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		h.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		r := http.Request{Header: h}
		r.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			q := u.Query()
			q.Set(name, a.Key)
			u.RawQuery = q.Encode()
		} else {
			h.Set(name, a.Key)
		}
	case AuthJWT:
		if a.Claims == nil {
			return fmt.Errorf("jwt auth: no claims source")
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, a.Claims()).SignedString(a.SigningKey)
		if err != nil {
			return fmt.Errorf("jwt auth: sign token: %w", err)
		}
		h.Set("Authorization", "Bearer "+signed)
	case AuthCustom:
		if a.Apply != nil {
			return a.Apply(h, u)
		}
	}
	return nil
}
