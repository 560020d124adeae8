package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/delicado-shop/delicado-api/pkg/config"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("sugar-and-spice-7", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := VerifyPassword("sugar-and-spice-7", hash)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("wrong-password-1", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHashPasswordUsesRandomSalt(t *testing.T) {
	a, _ := HashPassword("same-pass-1", fastParams)
	b, _ := HashPassword("same-pass-1", fastParams)
	if a == b {
		t.Fatal("expected different hashes for the same password")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"$bcrypt$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaA",
	} {
		if _, err := VerifyPassword("pw", encoded); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword("", fastParams); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestValidatePolicy(t *testing.T) {
	cases := map[string]bool{
		"short1":         false,
		"onlyletters":    false,
		"1234567890":     false,
		"delicado2024":   true,
		strings.Repeat("a1", 70): false,
	}
	for pw, valid := range cases {
		err := ValidatePolicy(pw)
		if valid && err != nil {
			t.Fatalf("expected %q to pass: %v", pw, err)
		}
		if !valid && err == nil {
			t.Fatalf("expected %q to fail", pw)
		}
	}
}
