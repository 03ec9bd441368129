package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthClaims are the claims the auth provider puts in its access tokens.
// Only the subject is trusted; platform roles are read from the store.
type AuthClaims struct {
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 access tokens issued by the auth provider.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token.
func (v *TokenVerifier) Verify(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// JWTAuthMiddleware validates Bearer tokens and injects the user id into context.
func JWTAuthMiddleware(verifier *TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(tokenString))
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePaid rejects users whose onboarding fee is unpaid with a redirect
// to the payment step.
func RequirePaid(svc *service.OnboardingService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := svc.RequirePaid(r.Context(), UserIDFromContext(r.Context())); err != nil {
				handleServiceError(w, err, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin lets through only users holding the admin platform role.
func RequireAdmin(profiles port.ProfileStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			ok, err := profiles.HasUserRole(r.Context(), userID, domain.RoleAdmin)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			if !ok {
				handleServiceError(w, &domain.ErrForbidden{Action: "admin access"}, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext extracts the authenticated user id from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

