package auth

import (
	"testing"
)

func TestGenerateAndValidateConversationToken(t *testing.T) {
	token, err := GenerateConversationToken("conv-1")
	if err != nil {
		t.Fatalf("GenerateConversationToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("Expected a non-empty token")
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.ConversationID != "conv-1" {
		t.Errorf("Expected conversation id 'conv-1', got %q", claims.ConversationID)
	}
	if claims.Role != "chat" {
		t.Errorf("Expected role 'chat', got %q", claims.Role)
	}
	if claims.ExpiresAt == nil {
		t.Error("Expected an expiration claim")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := ValidateToken("not-a-jwt"); err == nil {
		t.Error("Expected error for malformed token")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	original := JWTSecret
	defer func() { JWTSecret = original }()

	token, err := GenerateConversationToken("conv-1")
	if err != nil {
		t.Fatalf("GenerateConversationToken() error = %v", err)
	}

	JWTSecret = []byte("a-different-secret")
	if _, err := ValidateToken(token); err == nil {
		t.Error("Expected validation to fail under a different secret")
	}
}
