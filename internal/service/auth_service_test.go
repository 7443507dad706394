package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/config"
	"github.com/motionlab/capserver/internal/model"
)

func testAuthService(secret string) *AuthService {
	return NewAuthService(&config.Config{
		JWTSecret:  secret,
		JWTExpiry:  time.Hour,
		BcryptCost: 4, // min cost, tests only
	})
}

func TestPasswordRoundTrip(t *testing.T) {
	svc := testAuthService("secret")

	hash, err := svc.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash equals plaintext")
	}

	if err := svc.CheckPassword(hash, "hunter22"); err != nil {
		t.Errorf("CheckPassword with correct password: %v", err)
	}
	if err := svc.CheckPassword(hash, "hunter23"); err != ErrInvalidCredentials {
		t.Errorf("CheckPassword with wrong password: want ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testAuthService("secret")

	user := &model.User{
		ID:       uuid.New(),
		Username: "nadia",
		Verified: true,
		Groups:   []string{"backend"},
	}

	token, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Username != "nadia" || !claims.Verified {
		t.Errorf("claims = %+v, want username/verified carried over", claims)
	}

	p := claims.Principal()
	if p.ID != user.ID.String() || !p.Verified {
		t.Errorf("Principal = %+v, want identity fields from claims", p)
	}
	if len(p.Groups) != 1 || p.Groups[0] != "backend" {
		t.Errorf("Principal groups = %v, want [backend]", p.Groups)
	}
}

func TestValidateTokenRejectsForgeries(t *testing.T) {
	svc := testAuthService("secret")
	other := testAuthService("different-secret")

	token, err := other.GenerateToken(&model.User{ID: uuid.New(), Username: "mallory"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("token signed with a different key was accepted")
	}
	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token was accepted")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService(&config.Config{
		JWTSecret:  "secret",
		JWTExpiry:  -time.Minute,
		BcryptCost: 4,
	})

	token, err := svc.GenerateToken(&model.User{ID: uuid.New(), Username: "late"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expired token was accepted")
	}
}
