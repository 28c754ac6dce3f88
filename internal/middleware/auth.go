package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marketplace/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var signingMethod = jwt.SigningMethodHS256

// Claims are the access token claims issued by the auth service. The subject is the user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig holds the shared secret and expected issuer of access tokens.
type AuthConfig struct {
	Secret string
	Issuer string
}

// ParseToken verifies an HS256 access token and returns the caller it identifies.
func ParseToken(cfg AuthConfig, token string) (model.Actor, error) {
	if cfg.Secret == "" {
		return model.Actor{}, errors.New("jwt secret is required")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return model.Actor{}, fmt.Errorf("parsing jwt: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Actor{}, fmt.Errorf("invalid subject: %w", err)
	}
	if !claims.Role.Valid() {
		return model.Actor{}, fmt.Errorf("invalid role %q", claims.Role)
	}
	return model.Actor{UserID: userID, Role: claims.Role}, nil
}

// Authenticate requires a valid bearer token and stores the caller in the request context.
func Authenticate(cfg AuthConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
				return
			}

			actor, err := ParseToken(cfg, strings.TrimSpace(token))
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
