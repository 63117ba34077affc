package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Generate("u1")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	userID, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if userID != "u1" {
		t.Errorf("Validate() user id = %q, want u1", userID)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.Validate("not-a-token"); err == nil {
		t.Error("Validate() accepted garbage")
	}

	other := NewTokenService("other-secret", time.Hour)
	token, err := other.Generate("u1")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Error("Validate() accepted a token signed with the wrong secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.Generate("u1")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Error("Validate() accepted an expired token")
	}
}
