package auth

import (
	"strings"
	"testing"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	claims := map[string]any{"sub": "user-1", "role": "admin"}

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got["sub"] != "user-1" {
		t.Fatalf("sub = %v", got["sub"])
	}
	if got["role"] != "admin" {
		t.Fatalf("role = %v", got["role"])
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := SignHS256(map[string]any{"sub": "user-1"}, []byte("secret-a"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, []byte("secret-b")); err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	for _, token := range []string{"", "a.b", "a.b.c.d", "!!.!!.!!"} {
		if _, err := ParseAndVerifyHS256(token, []byte("secret")); err == nil {
			t.Fatalf("malformed token %q verified", token)
		}
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret := []byte("secret")
	token, err := SignHS256(map[string]any{"sub": "user-1"}, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	forged, err := SignHS256(map[string]any{"sub": "user-2"}, secret)
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}

	// Genuine signature, forged payload.
	tokenParts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := tokenParts[0] + "." + forgedParts[1] + "." + tokenParts[2]
	if _, err := ParseAndVerifyHS256(spliced, secret); err == nil {
		t.Fatal("spliced token verified")
	}
}
