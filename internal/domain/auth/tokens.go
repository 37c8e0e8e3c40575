package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
)

// Error codes returned by the token service.
const (
	CodeInvalidToken = "invalid_token"
	CodeAuthError    = "auth_error"
)

const defaultTokenTTL = 24 * time.Hour

// Config controls token issuance and validation.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Claims are extracted from a bearer token.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// Service issues and validates HS256 bearer tokens for API clients.
type Service interface {
	IssueToken(ctx context.Context, subject string) (string, time.Time, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
}

type service struct {
	cfg Config
	now func() time.Time
}

// NewService constructs the token service.
func NewService(cfg Config) Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &service{cfg: cfg, now: time.Now}
}

func (s *service) IssueToken(_ context.Context, subject string) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, apperrors.Wrap(CodeAuthError, "subject cannot be empty", nil)
	}
	if s.cfg.Secret == "" {
		return "", time.Time{}, apperrors.Wrap(CodeAuthError, "auth secret is not configured", nil)
	}
	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		ID:        newTokenID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(CodeAuthError, "failed to sign token", err)
	}
	return signed, expires, nil
}

func (s *service) ValidateToken(_ context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(CodeInvalidToken, "token missing", nil)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return Claims{}, apperrors.Wrap(CodeInvalidToken, "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap(CodeInvalidToken, "token invalid", nil)
	}
	return Claims{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
