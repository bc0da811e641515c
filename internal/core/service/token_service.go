package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/myunity/auth-service/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// TokenService issues HS256 signed JWTs carrying the username as subject.
// It keeps no state besides the immutable secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	log    zerolog.Logger
}

func NewTokenService(secret []byte, ttl time.Duration, issuer string, log zerolog.Logger) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
		log:    log,
	}
}

// TTL is the fixed lifetime of issued tokens.
func (ts *TokenService) TTL() time.Duration { return ts.ttl }

func (ts *TokenService) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("issue token: empty subject")
	}

	now := ts.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    ts.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

func (ts *TokenService) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return ts.secret, nil
	}, opts...)
	if err != nil {
		ts.log.Debug().Str("reason", rejectReason(err)).Msg("token rejected")
		return "", domain.ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		ts.log.Debug().Str("reason", "missing_subject").Msg("token rejected")
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
