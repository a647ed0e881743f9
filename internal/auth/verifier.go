package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketnepal/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Verifier turns a bearer token into the acting user and the token's expiry
// (zero when unknown). Roles are normalized here so the rest of the service
// only sees models.Role values.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (models.Actor, time.Time, error)
}

// Claims is the payload of tokens signed with the shared secret.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (models.Actor, time.Time, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Actor{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	actor, err := actorFrom(claims.Subject, claims.Role)
	if err != nil {
		return models.Actor{}, time.Time{}, err
	}
	return actor, claims.ExpiresAt.Time, nil
}

// IssueToken signs a token for actor. Used by tooling and tests.
func (v *HMACVerifier) IssueToken(actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// OIDCVerifier validates ID tokens from an external identity provider.
// The role comes from a "role" claim or, for Keycloak, the realm roles.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	cfg := &oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""}
	return &OIDCVerifier{verifier: provider.Verifier(cfg)}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (models.Actor, time.Time, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return models.Actor{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	var claims struct {
		Sub         string `json:"sub"`
		Role        string `json:"role"`
		RealmAccess struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return models.Actor{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	role := claims.Role
	if role == "" {
		for _, r := range claims.RealmAccess.Roles {
			if _, err := models.NormalizeRole(r); err == nil {
				role = r
				break
			}
		}
	}
	actor, err := actorFrom(claims.Sub, role)
	if err != nil {
		return models.Actor{}, time.Time{}, err
	}
	return actor, idToken.Expiry, nil
}

func actorFrom(sub, role string) (models.Actor, error) {
	if sub == "" {
		return models.Actor{}, fmt.Errorf("%w: token has no subject", ErrInvalidCredentials)
	}
	r, err := models.NormalizeRole(role)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return models.Actor{UserID: sub, Role: r}, nil
}
