package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/api/responses"
	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
)

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled       bool          `json:"enabled"`
	JWTSecret     string        `json:"jwt_secret"`
	JWTExpiration time.Duration `json:"jwt_expiration"`
	ExemptPaths   []string      `json:"exempt_paths"`
}

// User is the authenticated caller identity
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Claims represents JWT claims
type Claims struct {
	User User `json:"user"`
	jwt.RegisteredClaims
}

type contextKey string

const userContextKey contextKey = "dataqual.user"

// AuthMiddleware authenticates requests with JWT bearer tokens and injects
// the caller identity into the request context
type AuthMiddleware struct {
	config *AuthConfig
	logger *logrus.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(config *AuthConfig, logger *logrus.Logger) *AuthMiddleware {
	if config == nil {
		config = &AuthConfig{Enabled: false}
	}
	if config.JWTExpiration == 0 {
		config.JWTExpiration = constants.DefaultTokenExpiration
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &AuthMiddleware{
		config: config,
		logger: logger,
	}
}

// Middleware returns the HTTP middleware function
func (am *AuthMiddleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !am.config.Enabled {
				// Anonymous identity keeps handlers uniform when auth
				// is switched off in development
				ctx := context.WithValue(r.Context(), userContextKey, &User{ID: "anonymous", Username: "anonymous"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if am.isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user, err := am.authenticate(r)
			if err != nil {
				am.logger.WithFields(logrus.Fields{
					"path":   r.URL.Path,
					"remote": r.RemoteAddr,
				}).WithError(err).Warn("Authentication failed")
				responses.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IssueToken creates a signed JWT for the given user
func (am *AuthMiddleware) IssueToken(user *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		User: *user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(am.config.JWTExpiration)),
			Issuer:    constants.AppName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(am.config.JWTSecret))
	if err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeAuth, errors.CodeInvalidToken, "Failed to sign token")
	}
	return signed, nil
}

func (am *AuthMiddleware) authenticate(r *http.Request) (*User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.NewAuthError(errors.CodeUnauthorized, "Missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.NewAuthError(errors.CodeUnauthorized, "Authorization header must be a Bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAuthError(errors.CodeInvalidToken, "Unexpected signing method")
		}
		return []byte(am.config.JWTSecret), nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, errors.NewAuthError(errors.CodeTokenExpired, "Token expired")
		}
		return nil, errors.NewAuthError(errors.CodeInvalidToken, "Invalid token")
	}
	if !token.Valid {
		return nil, errors.NewAuthError(errors.CodeInvalidToken, "Invalid token")
	}

	if claims.User.ID == "" {
		return nil, errors.NewAuthError(errors.CodeInvalidToken, "Token carries no user identity")
	}
	return &claims.User, nil
}

func (am *AuthMiddleware) isExemptPath(path string) bool {
	for _, exempt := range am.config.ExemptPaths {
		if path == exempt || strings.HasPrefix(path, exempt+"/") {
			return true
		}
	}
	return false
}

// UserFromContext returns the authenticated user, or nil when the request
// never passed through the auth middleware
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// WithUser injects a user identity into a context. Exposed for tests.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
