package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService(Config{Secret: "s3cret", Issuer: "mealplan-ai", TokenTTL: time.Hour})

	token, expires, err := svc.IssueToken(context.Background(), "clinic-frontend")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "clinic-frontend", claims.Subject)
	require.Equal(t, "mealplan-ai", claims.Issuer)
	require.Equal(t, expires.Unix(), claims.ExpiresAt.Unix())
}

func TestValidateToken_Rejects(t *testing.T) {
	issuer := NewService(Config{Secret: "s3cret", Issuer: "mealplan-ai"})
	good, _, err := issuer.IssueToken(context.Background(), "client")
	require.NoError(t, err)

	expired := NewService(Config{Secret: "s3cret", Issuer: "mealplan-ai", TokenTTL: time.Minute}).(*service)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.IssueToken(context.Background(), "client")
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "client", Issuer: "mealplan-ai"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		verify Service
		token  string
	}{
		{name: "empty", verify: issuer, token: " "},
		{name: "garbage", verify: issuer, token: "not-a-jwt"},
		{name: "wrong secret", verify: NewService(Config{Secret: "other", Issuer: "mealplan-ai"}), token: good},
		{name: "wrong issuer", verify: NewService(Config{Secret: "s3cret", Issuer: "someone-else"}), token: good},
		{name: "expired", verify: issuer, token: old},
		{name: "no expiry", verify: issuer, token: noExp},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verify.ValidateToken(context.Background(), tt.token)
			require.True(t, apperrors.IsCode(err, CodeInvalidToken), "got %v", err)
		})
	}
}

func TestIssueToken_Errors(t *testing.T) {
	_, _, err := NewService(Config{Secret: "s"}).IssueToken(context.Background(), "  ")
	require.True(t, apperrors.IsCode(err, CodeAuthError))

	_, _, err = NewService(Config{}).IssueToken(context.Background(), "client")
	require.True(t, apperrors.IsCode(err, CodeAuthError))
}
