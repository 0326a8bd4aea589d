package mockbackend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ojarena/pkg/errors"
	"ojarena/pkg/utils/contextkey"
	"ojarena/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// TokenPair is returned by login and register.
type TokenPair struct {
	UserID           int64     `json:"user_id"`
	Username         string    `json:"username"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type tokenClaims struct {
	Username  string `json:"username"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens. Revoked tokens are kept
// by hash in memory.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewAuthenticator(secret, issuer string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// Issue creates an access and refresh token pair.
func (a *Authenticator) Issue(userID int64, username string) (TokenPair, error) {
	now := a.now()
	pair := TokenPair{
		UserID:           userID,
		Username:         username,
		AccessExpiresAt:  now.Add(a.ttl),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
	var err error
	if pair.AccessToken, err = a.sign(userID, username, "access", now, pair.AccessExpiresAt); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, err = a.sign(userID, username, "refresh", now, pair.RefreshExpiresAt); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func (a *Authenticator) sign(userID int64, username, typ string, now, exp time.Time) (string, error) {
	claims := tokenClaims{
		Username:  username,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrapf(err, errors.InternalServerError, "sign token failed")
	}
	return signed, nil
}

// Authenticate returns the user id carried by a valid access token.
func (a *Authenticator) Authenticate(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New(errors.TokenInvalid)
	}
	claims, err := a.parse(raw, "access")
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	_, revoked := a.revoked[hashToken(raw)]
	a.mu.Unlock()
	if revoked {
		return 0, errors.New(errors.TokenInvalid)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, errors.New(errors.TokenInvalid)
	}
	return userID, nil
}

// Revoke invalidates an access token.
func (a *Authenticator) Revoke(raw string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked[hashToken(raw)] = a.now()
}

func (a *Authenticator) parse(raw, typ string) (*tokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New(errors.TokenExpired)
		}
		return nil, errors.New(errors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New(errors.TokenInvalid)
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return nil, errors.New(errors.TokenInvalid)
	}
	if claims.TokenType != typ || claims.Subject == "" {
		return nil, errors.New(errors.TokenInvalid)
	}
	return claims, nil
}

// requireAuth rejects requests without a valid bearer token.
func requireAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := a.Authenticate(extractBearerToken(c.GetHeader("Authorization")))
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		setUser(c, userID)
		c.Next()
	}
}

// optionalAuth records the user when a valid token is present.
func optionalAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := a.Authenticate(extractBearerToken(c.GetHeader("Authorization"))); err == nil {
			setUser(c, userID)
		}
		c.Next()
	}
}

func setUser(c *gin.Context, userID int64) {
	c.Set(userIDKey, userID)
	ctx := context.WithValue(c.Request.Context(), contextkey.UserID, strconv.FormatInt(userID, 10))
	c.Request = c.Request.WithContext(ctx)
}

func currentUser(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func extractBearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
