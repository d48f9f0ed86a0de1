package utils

import (
	"strings"
	"testing"
)

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		pw, err := GenerateTemporaryPassword()
		if err != nil {
			t.Fatalf("GenerateTemporaryPassword() error = %v", err)
		}
		if len(pw) != 12 {
			t.Fatalf("password length = %d, want 12 (%q)", len(pw), pw)
		}
		if !strings.ContainsAny(pw, upperAlphabet) {
			t.Errorf("password %q missing uppercase", pw)
		}
		if !strings.ContainsAny(pw, lowerAlphabet) {
			t.Errorf("password %q missing lowercase", pw)
		}
		if !strings.ContainsAny(pw, digitAlphabet) {
			t.Errorf("password %q missing digit", pw)
		}
		if !strings.ContainsAny(pw, symbolAlphabet) {
			t.Errorf("password %q missing symbol", pw)
		}
		seen[pw] = true
	}

	// 1000 samples from a 12-char alphabet of ~70 symbols must not collide.
	if len(seen) != 1000 {
		t.Errorf("expected 1000 distinct passwords, got %d", len(seen))
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Correct-Horse-7!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "Correct-Horse-7!" {
		t.Fatal("hash equals the plaintext")
	}
	if !VerifyPassword(hash, "Correct-Horse-7!") {
		t.Error("hash does not verify the original password")
	}
	if VerifyPassword(hash, "correct-horse-7!") {
		t.Error("hash verifies a different password")
	}
}

func TestGenerateInviteToken(t *testing.T) {
	a, err := GenerateInviteToken()
	if err != nil {
		t.Fatalf("GenerateInviteToken() error = %v", err)
	}
	b, err := GenerateInviteToken()
	if err != nil {
		t.Fatalf("GenerateInviteToken() error = %v", err)
	}

	if len(a) != 32 {
		t.Errorf("token length = %d, want 32", len(a))
	}
	if a == b {
		t.Error("two tokens should not be equal")
	}
	for _, ch := range a {
		if !strings.ContainsRune("0123456789abcdef", ch) {
			t.Errorf("token %q contains non-hex character %q", a, ch)
		}
	}
}
