package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	password := "correct horse battery staple"
	salt := []byte("somesweetandsaltysalt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Error("DeriveKey with same inputs produced different results")
	}

	key3 := DeriveKey("different password", salt)
	if bytes.Equal(key1, key3) {
		t.Error("DeriveKey with different passwords produced same results")
	}

	if len(key1) != 32 {
		t.Errorf("Expected 32-byte key, got %d bytes", len(key1))
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("my-secret-password", []byte("static-salt-for-test"))

	originalText := "https://www.youtube.com/watch?v=WNIPqafd4As"

	encrypted, err := Encrypt(originalText, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if encrypted == originalText {
		t.Error("Encrypted text is same as original text")
	}

	if _, err = base64.StdEncoding.DecodeString(encrypted); err != nil {
		t.Errorf("Encrypted output is not valid base64: %v", err)
	}

	decrypted, err := Decrypt(encrypted, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if decrypted != originalText {
		t.Errorf("Decrypted text '%s' does not match original '%s'", decrypted, originalText)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	salt := []byte("static-salt-for-test")
	encrypted, _ := Encrypt("Secret data", DeriveKey("my-secret-password", salt))

	_, err := Decrypt(encrypted, DeriveKey("wrong-password", salt))
	if err == nil {
		t.Error("Decrypt succeeded with wrong key, expected error")
	}
}

func TestSealerRoundTripAcrossInstances(t *testing.T) {
	sealed, err := NewSealer("server-secret").Seal("Gmail: Private and secure email")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// a fresh sealer with the same secret stands in for a restarted server
	opened, err := NewSealer("server-secret").Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "Gmail: Private and secure email" {
		t.Errorf("Unexpected plaintext %q", opened)
	}

	if _, err := NewSealer("other-secret").Open(sealed); err == nil {
		t.Error("Open succeeded with a different secret")
	}
}
