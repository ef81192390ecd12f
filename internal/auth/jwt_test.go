package auth

import (
	"errors"
	"testing"
)

func TestJWTGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 24)

	token, err := svc.Generate("42", "host@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("claims.UserID = %q, want 42", claims.UserID)
	}
	if claims.Email != "host@example.com" {
		t.Errorf("claims.Email = %q", claims.Email)
	}
}

func TestJWTSubjectOf(t *testing.T) {
	svc := NewJWTService("test-secret", 24)

	token, err := svc.Generate("7", "alice@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	subject, err := svc.SubjectOf(token)
	if err != nil {
		t.Fatalf("SubjectOf() error = %v", err)
	}
	if subject != "7" {
		t.Errorf("SubjectOf() = %q, want 7", subject)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 24).Generate("42", "host@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := NewJWTService("secret-b", 24).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() with wrong secret: err = %v, want ErrInvalidToken", err)
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -1)

	token, err := svc.Generate("42", "host@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 24)
	if _, err := svc.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() garbage: err = %v, want ErrInvalidToken", err)
	}
}
