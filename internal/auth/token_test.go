package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret")

	signed, err := tokens.Issue("u1", "admin", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	caller, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if caller.UserID != "u1" || caller.Role != "admin" {
		t.Errorf("caller = %+v, want u1/admin", caller)
	}
}

func TestParseExpired(t *testing.T) {
	tokens := NewTokens("test-secret")
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, _ := tokens.Issue("u1", "", time.Hour)

	tokens.now = time.Now
	if _, err := tokens.Parse(signed); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	signed, _ := NewTokens("one").Issue("u1", "", time.Hour)

	if _, err := NewTokens("two").Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseWrongIssuer(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewTokens("test-secret").Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokensNotConfigured(t *testing.T) {
	tokens := NewTokens("")
	if tokens.Configured() {
		t.Error("expected unconfigured")
	}
	if _, err := tokens.Issue("u1", "", time.Hour); err == nil {
		t.Error("expected issue error")
	}
	if _, err := tokens.Parse("x.y.z"); err == nil {
		t.Error("expected parse error")
	}
}
