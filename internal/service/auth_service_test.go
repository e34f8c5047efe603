package service

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-attempt/internal/config"
)

func TestAuthServiceTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})

	token, err := auth.GenerateStudentToken(42)
	if err != nil {
		t.Fatalf("GenerateStudentToken: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.TokenType != TokenTypeStudent || claims.Subject != "42" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})
	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour})
	expired := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: -time.Minute})

	foreign, _ := other.GenerateStudentToken(42)
	stale, _ := expired.GenerateStudentToken(42)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"garbage":      "not-a-jwt",
	} {
		if _, err := auth.ValidateToken(token); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}
}
