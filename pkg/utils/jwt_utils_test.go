package utils

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateAccessToken(secret, 42, "staff@example.com", "staff", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("claims.UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "staff@example.com" {
		t.Errorf("claims.Email = %q", claims.Email)
	}
	if claims.Role != "staff" {
		t.Errorf("claims.Role = %q, want staff", claims.Role)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	secret := "test-secret"

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateAccessToken(secret, 1, "a@b.c", "admin", time.Hour)
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := ValidateToken("another-secret", token); err == nil {
			t.Error("ValidateToken() accepted a token signed with another secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := GenerateAccessToken(secret, 1, "a@b.c", "admin", -time.Minute)
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		if _, err := ValidateToken(secret, token); err == nil {
			t.Error("ValidateToken() accepted an expired token")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := ValidateToken(secret, "not.a.jwt"); err == nil {
			t.Error("ValidateToken() accepted garbage")
		}
	})
}
