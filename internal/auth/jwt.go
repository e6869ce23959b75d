package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/isdelr/athlete-performance-be/internal/apperrors"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Claims defines the JWT claims structure. The subject is the username.
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates signed bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager signing with secret.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate creates a new token for user and returns it with its expiry.
func (m *TokenManager) Generate(user models.User) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses tokenStr and checks its signature and expiry.
func (m *TokenManager) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ExtractBearer returns the token of a "Bearer <token>" Authorization header.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", apperrors.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperrors.ErrMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, " ") {
		return "", apperrors.ErrMalformedToken
	}
	return token, nil
}

// UserResolver resolves a stored token to its owner.
type UserResolver interface {
	GetUserByToken(ctx context.Context, token string) (models.User, error)
}

type contextKey string

const userContextKey = contextKey("authUser")

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user stored by Middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ErrorWriter reports an error to the client.
type ErrorWriter func(w http.ResponseWriter, err error)

// Middleware creates a middleware for protecting routes. A request passes only
// when its token verifies and equals the token currently stored for a user.
func Middleware(tokens *TokenManager, users UserResolver, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				writeErr(w, err)
				return
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("Rejected bearer token")
				writeErr(w, apperrors.ErrInvalidToken)
				return
			}

			user, err := users.GetUserByToken(r.Context(), tokenStr)
			if err != nil {
				if apperrors.Status(err) == http.StatusNotFound {
					log.Debug().Str("subject", claims.Subject).Msg("Token is not the stored token for any user")
					writeErr(w, apperrors.ErrInvalidToken)
					return
				}
				writeErr(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole rejects authenticated users that do not hold role.
func RequireRole(role string, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeErr(w, apperrors.ErrMissingToken)
				return
			}
			if user.Role != role {
				log.Warn().Int64("user_id", user.ID).Str("role", user.Role).Str("path", r.URL.Path).Msg("Role check failed")
				writeErr(w, apperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
