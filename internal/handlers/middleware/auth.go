// Package middleware authenticates API callers with ID tokens of the
// identity provider and mirrors them as local accounts.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/storage"
)

var (
	logger = log.With().Str("component", "auth").Logger()
)

const (
	keyUser = "USER"
)

type AuthConfig struct {
	// Issuer of the ID tokens, eg. https://securetoken.google.com/<project-id> for Firebase.
	Issuer string `yaml:"issuer"`

	// ClientID is the expected audience of the ID tokens.
	ClientID string `yaml:"client_id"`
}

func (c *AuthConfig) Validate() {
	if c.Issuer == "" {
		logger.Fatal().Msg("AuthConfig: Issuer is missing")
	}
	if c.ClientID == "" {
		logger.Fatal().Msg("AuthConfig: ClientID is missing")
	}
}

// NewVerifier discovers the issuer keys.
func NewVerifier(ctx context.Context, c *AuthConfig) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, c.Issuer)
	if err != nil {
		return nil, err
	}
	return provider.Verifier(&oidc.Config{ClientID: c.ClientID}), nil
}

type Auth struct {
	verifier *oidc.IDTokenVerifier
	db       *gormw.DB
}

func NewAuth(verifier *oidc.IDTokenVerifier, db *gormw.DB) *Auth {
	return &Auth{
		verifier: verifier,
		db:       db,
	}
}

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Middleware rejects requests without a valid bearer ID token.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		token, err := a.verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			logger.Debug().Err(err).Msg("Invalid ID token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims := &idTokenClaims{}
		if err := token.Claims(claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		if claims.Email != "" {
			if err := checkmail.ValidateFormat(claims.Email); err != nil {
				logger.Warn().Str("subject", token.Subject).Msg("Ignore invalid email claim")
				claims.Email = ""
			}
		}

		user, err := storage.GetOrCreateUserBySubject(a.db.Ctx(c.Request.Context()), token.Subject, claims.Email, claims.Name)
		if err != nil {
			logger.Error().Err(err).Str("subject", token.Subject).Msg("Failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		c.Set(keyUser, user)
		c.Next()
	}
}

// RequireRole must be used after Middleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, nil outside of Middleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(keyUser)
	if !ok {
		return nil
	}
	return v.(*models.User)
}
