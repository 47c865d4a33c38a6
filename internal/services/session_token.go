package services

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/rastion-hub/internal/platform/apierr"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionTokenService issues and verifies locally signed bearer tokens.
// Verification needs no database access.
type SessionTokenService interface {
	Issue(userID uint) (token string, expiresAt time.Time, err error)
	Verify(token string) (userID uint, err error)
	TTL() time.Duration
}

type sessionTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokenService(secret string, ttl time.Duration, now func() time.Time) SessionTokenService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &sessionTokenService{secret: []byte(secret), ttl: ttl, now: now}
}

func (s *sessionTokenService) TTL() time.Duration { return s.ttl }

func (s *sessionTokenService) Issue(userID uint) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *sessionTokenService) Verify(token string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, apierr.Unauthenticated("invalid or expired session token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.Unauthenticated("invalid session token subject")
	}
	return uint(id), nil
}
