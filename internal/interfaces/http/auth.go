package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

const actorKey = "actor"

var validate = validator.New()

// Claims is the JWT payload identifying the caller
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// identity is the validated shape of Claims; sub lives in RegisteredClaims
type identity struct {
	UserID string `validate:"required"`
	Role   string `validate:"required,oneof=tenant owner"`
}

// TokenIssuer signs and verifies HS256 bearer tokens
type TokenIssuer struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
}

// NewTokenIssuer creates a TokenIssuer. tokenDuration is how long issued tokens
// stay valid. A non-empty issuer is stamped on issued tokens and required on parsed ones.
func NewTokenIssuer(secretKey, issuer string, tokenDuration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
	}
}

// Issue creates a signed token for the actor
func (t *TokenIssuer) Issue(actor entity.Actor) (string, error) {
	if err := validate.Struct(identity{UserID: actor.UserID, Role: string(actor.Role)}); err != nil {
		return "", fmt.Errorf("invalid actor: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		Role: string(actor.Role),
		Name: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    t.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the actor it names
func (t *TokenIssuer) Parse(tokenString string) (entity.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return t.secretKey, nil
		},
		opts...,
	)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return entity.Actor{}, ErrInvalidToken
	}

	if err := validate.Struct(identity{UserID: claims.Subject, Role: claims.Role}); err != nil {
		return entity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return entity.Actor{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   entity.Party(claims.Role),
	}, nil
}

// authMiddleware rejects requests without a valid bearer token and stores
// the caller's actor on the gin context
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: ErrMissingToken.Error()})
			return
		}

		actor, err := s.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			s.logger.Info("Rejected bearer token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: ErrInvalidToken.Error()})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor stored by authMiddleware
func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}
