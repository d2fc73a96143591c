package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/millrun/internal/config"
)

const (
	TokenIssuer   = "millrun-api"
	TokenAudience = "millrun-client"
	tokenType     = "access"
)

var (
	ErrMissingSecret = errors.New("auth_jwt_secret_required")
	ErrInvalidToken  = errors.New("invalid_token")
)

// Claims is the access token payload. id accepts both JSON numbers and
// numeric strings.
type Claims struct {
	ID        json.Number `json:"id"`
	SessionID string      `json:"sid,omitempty"`
	Role      string      `json:"role"`
	Type      string      `json:"type"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		secret = "millrun-dev-secret"
	}
	return NewVerifierWithSecret(secret), nil
}

func NewVerifierWithSecret(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(TokenIssuer),
			jwt.WithAudience(TokenAudience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses an access token and returns its actor.
func (v *Verifier) Verify(raw string) (Actor, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != tokenType {
		return Actor{}, ErrInvalidToken
	}

	id, err := snowflake.ParseString(claims.ID.String())
	if err != nil || id == 0 {
		return Actor{}, ErrInvalidToken
	}
	role := strings.TrimSpace(claims.Role)
	if role == "" {
		return Actor{}, ErrInvalidToken
	}
	return Actor{ID: id, Role: role, SessionID: claims.SessionID}, nil
}

// Issue signs an access token for actor valid for ttl.
func (v *Verifier) Issue(actor Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:        json.Number(actor.ID.String()),
		SessionID: actor.SessionID,
		Role:      actor.Role,
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
