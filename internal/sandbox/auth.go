package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	refreshTTL = 7 * 24 * time.Hour
)

var errTokenInvalid = errors.New("invalid or expired token")

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Kind  string `json:"typ"`
	Epoch int64  `json:"ep,omitempty"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func (i tokenIssuer) issue(kind, adminID, email, role string, epoch int64, ttl time.Duration) (string, *tokenClaims, error) {
	now := i.now()
	claims := &tokenClaims{
		Email: email,
		Role:  role,
		Kind:  kind,
		Epoch: epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   adminID,
			Issuer:    "payadmin-sandbox",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, claims, nil
}

func (i tokenIssuer) parse(raw, kind string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("payadmin-sandbox"),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", errTokenInvalid, kind)
	}
	return claims, nil
}
