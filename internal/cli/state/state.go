package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenState stores auth token info.
type TokenState struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Username         string    `json:"username,omitempty"`
}

// Claims is what the client can read from an access token without the
// signing key.
type Claims struct {
	Subject   string
	Username  string
	ExpiresAt time.Time
}

type accessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Inspect decodes the access token payload. The signature is not verified;
// the result is only used to warn about expiry locally.
func (s TokenState) Inspect() (Claims, error) {
	if s.AccessToken == "" {
		return Claims{}, fmt.Errorf("no access token")
	}
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse access token failed: %w", err)
	}
	out := Claims{Subject: claims.Subject, Username: claims.Username}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Expired reports whether the access token is missing or past its expiry.
// The token's own exp claim wins over the stored AccessExpiresAt.
func (s TokenState) Expired(now time.Time) bool {
	if s.AccessToken == "" {
		return true
	}
	exp := s.AccessExpiresAt
	if claims, err := s.Inspect(); err == nil && !claims.ExpiresAt.IsZero() {
		exp = claims.ExpiresAt
	}
	return !exp.IsZero() && !now.Before(exp)
}

func Load(path string) (TokenState, error) {
	var st TokenState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read token state failed: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse token state failed: %w", err)
	}
	return st, nil
}

func Save(path string, st TokenState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create token state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token state failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token state failed: %w", err)
	}
	return nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token state failed: %w", err)
	}
	return nil
}
