package crypto

import (
	"encoding/hex"
	"strconv"
	"testing"
)

func TestRandomToken_lengthAndHex(t *testing.T) {
	for _, size := range []int{16, 32} {
		tok, err := RandomToken(size)
		if err != nil {
			t.Fatalf("RandomToken(%d): %v", size, err)
		}
		if len(tok) != 2*size {
			t.Errorf("token length = %d, want %d", len(tok), 2*size)
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Errorf("token should be valid hex: %v", err)
		}
	}
}

func TestRandomToken_unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := RandomToken(32)
		if err != nil {
			t.Fatal(err)
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}

func TestRandomOTP_range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := RandomOTP()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 {
			t.Fatalf("OTP %q should be 6 digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("OTP %q should be numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("OTP %d outside [100000, 999999]", n)
		}
	}
}

func TestHashValue_deterministic(t *testing.T) {
	h1 := HashString("abc123:654321")
	h2 := HashString("abc123:654321")
	if h1 != h2 {
		t.Errorf("hash should be deterministic: %q != %q", h1, h2)
	}
	decoded, err := hex.DecodeString(h1)
	if err != nil {
		t.Fatalf("hash should be valid hex: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("SHA-256 hash should be 32 bytes, got %d", len(decoded))
	}
}

func TestHashValue_differentInputs(t *testing.T) {
	h1 := HashString("token-a:123456")
	h2 := HashString("token-b:123456")
	h3 := HashString("token-a:654321")
	if h1 == h2 || h1 == h3 || h2 == h3 {
		t.Error("different inputs should produce different hashes")
	}
}

func TestEqual(t *testing.T) {
	a := HashString("x")
	if !Equal(a, HashString("x")) {
		t.Error("identical digests should compare equal")
	}
	if Equal(a, HashString("y")) {
		t.Error("different digests should not compare equal")
	}
	if Equal(a, a[:10]) {
		t.Error("different length digests should not compare equal")
	}
}
