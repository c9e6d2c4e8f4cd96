package utils

import (
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	password := "secret"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !CheckPassword(password, hash) {
		t.Errorf("Expected password check to pass")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Errorf("Expected password check to fail")
	}
}

func TestJWT(t *testing.T) {
	secret := "supersecret"

	for _, role := range []string{"student", "professional", "admin"} {
		token, err := GenerateToken("123", role, secret)
		if err != nil {
			t.Fatalf("GenerateToken(%s): %v", role, err)
		}

		claims, err := ValidateToken(token, secret)
		if err != nil {
			t.Fatalf("ValidateToken(%s): %v", role, err)
		}

		if claims.UserID != "123" {
			t.Errorf("Expected UserID 123, got %s", claims.UserID)
		}
		if claims.Role != role {
			t.Errorf("Expected Role %s, got %s", role, claims.Role)
		}
	}

	token, err := GenerateToken("123", "student", secret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(token, "wrongsecret"); err == nil {
		t.Errorf("Expected error with wrong secret")
	}
	if _, err := ValidateToken("not-a-token", secret); err == nil {
		t.Errorf("Expected error for malformed token")
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "supersecret"

	token, err := GenerateToken("7", "admin", secret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 71*time.Hour || remaining > 72*time.Hour {
		t.Errorf("Expected roughly 72h expiry, got %v remaining", remaining)
	}
}
