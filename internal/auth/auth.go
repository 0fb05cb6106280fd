// Package auth resolves the authenticated user for a request.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session"

// DevUserHeader names the user directly when dev mode is on.
const DevUserHeader = "X-User-ID"

type contextKey int

const userIDKey contextKey = iota

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user id, or "" when the request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequireUser returns the user id or domain.ErrUnauthorized.
func RequireUser(ctx context.Context) (string, error) {
	id := UserIDFromContext(ctx)
	if id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}

// Authenticator validates HS256 session tokens.
type Authenticator struct {
	secret  []byte
	devMode bool
	ttl     time.Duration
	log     zerolog.Logger
}

// NewAuthenticator creates an authenticator. In dev mode the X-User-ID header
// is trusted when no token is present.
func NewAuthenticator(secret string, devMode bool, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret:  []byte(secret),
		devMode: devMode,
		ttl:     30 * 24 * time.Hour,
		log:     log.With().Str("component", "auth").Logger(),
	}
}

// SignToken issues a session token for userID.
func (a *Authenticator) SignToken(userID string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"jti": uuid.NewString(),
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses a token and returns its subject.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// Middleware attaches the user id to the request context when a valid token
// (Authorization: Bearer or the session cookie) is present. Anonymous requests
// pass through; handlers reject them via RequireUser.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token != "" {
			userID, err := a.ValidateToken(token)
			if err != nil {
				a.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
			} else {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
		} else if a.devMode {
			if userID := strings.TrimSpace(r.Header.Get(DevUserHeader)); userID != "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	// websocket clients cannot set headers from browsers
	return r.URL.Query().Get("token")
}
