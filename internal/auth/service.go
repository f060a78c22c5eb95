package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/gerai-labs/backend-gerai/internal/common"
)

const roleClaim = "role"

// Service issues and parses HS256 access tokens carrying the user id as
// subject and the role as a private claim.
type Service struct {
	Secret    []byte
	Issuer    string
	TTL       time.Duration
	ClockSkew time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 15 * time.Minute
	}
	return s.TTL
}

// IssueAccessToken signs a token for the given user and role.
func (s *Service) IssueAccessToken(userID, role string) (string, error) {
	if s == nil || len(s.Secret) == 0 {
		return "", errors.New("auth: secret not configured")
	}
	if userID == "" {
		return "", errors.New("auth: user id required")
	}
	if role == "" {
		role = common.RoleUser
	}
	now := s.now()
	builder := jwt.NewBuilder().
		Subject(userID).
		Claim(roleClaim, role).
		IssuedAt(now).
		Expiration(now.Add(s.ttl()))
	if s.Issuer != "" {
		builder = builder.Issuer(s.Issuer)
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}

// ParseAccessToken verifies the signature and standard claims, returning the
// user id and role. A missing role claim defaults to the plain user role.
func (s *Service) ParseAccessToken(raw string) (userID, role string, err error) {
	if s == nil || len(s.Secret) == 0 {
		return "", "", errors.New("auth: secret not configured")
	}
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	}
	if s.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(s.ClockSkew))
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	tok, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}
	userID = tok.Subject()
	if userID == "" {
		return "", "", errors.New("auth: token missing subject")
	}
	role = common.RoleUser
	if v, ok := tok.Get(roleClaim); ok {
		if r, ok := v.(string); ok && r != "" {
			role = r
		}
	}
	return userID, role, nil
}
