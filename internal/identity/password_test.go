package identity

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := hashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !verifyPassword("correct horse battery staple", encoded) {
		t.Fatalf("expected correct password to verify")
	}
	if verifyPassword("wrong password", encoded) {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestHashPassword_UniqueSaltPerCall(t *testing.T) {
	a, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	b, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct encodings for two hashes of the same password")
	}
	if !verifyPassword("same password", a) || !verifyPassword("same password", b) {
		t.Fatalf("expected both encodings to verify")
	}
}

func TestVerifyPassword_MalformedEncoding(t *testing.T) {
	if verifyPassword("anything", "not-an-argon2-hash") {
		t.Fatalf("expected malformed encoding to fail verification")
	}
}
