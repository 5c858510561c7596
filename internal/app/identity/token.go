package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zennify/zennify/internal/domain"
)

const issuer = "zennify"

var errExpired = errors.New("session expired")

type sessionClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c *sessionClaims) identity() domain.Identity {
	return domain.Identity{UserID: c.Subject, Email: c.Email, Username: c.Username}
}

func (s *Service) issue(acct domain.Account) (*Session, error) {
	now := s.now()
	exp := now.Add(s.cfg.AccessTTL)
	claims := sessionClaims{
		Email:    acct.Email,
		Username: acct.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   acct.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.keys.KeyID()
	signed, err := token.SignedString(s.keys.Private)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{Token: signed, ExpiresAt: exp, Identity: claims.identity()}, nil
}

// parse verifies signature, issuer and expiry. Any failure is reported
// as ErrUnauthenticated; expiry additionally matches errExpired.
func (s *Service) parse(token string) (*sessionClaims, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.keys.Public, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, errExpired)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}
