package auth

import (
	"testing"

	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(testSecret, userID, "STAFF")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("expected user ID %s, got %s", userID, claims.UserID)
	}
	if claims.Role != "STAFF" {
		t.Errorf("expected role STAFF, got %s", claims.Role)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, uuid.New(), "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Error("expected error for wrong secret, got nil")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not.a.token"); err == nil {
		t.Error("expected error for malformed token, got nil")
	}
}
