package crypto

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := "a1b2c3d4e5f60718293a4b5c6d7e8f9011121314151617181920212223242526"[:64]
	password := "correct horse battery staple"

	blob, err := EncryptKey(key, password)
	if err != nil {
		t.Fatalf("EncryptKey failed: %v", err)
	}

	got, err := DecryptKey(blob, password)
	if err != nil {
		t.Fatalf("DecryptKey failed: %v", err)
	}
	if got != key {
		t.Fatalf("round-tripped key = %s, want %s", got, key)
	}
}

func TestDecryptKeyWrongPassword(t *testing.T) {
	key := "a1b2c3d4e5f60718293a4b5c6d7e8f9011121314151617181920212223242526"[:64]
	blob, err := EncryptKey(key, "right-password")
	if err != nil {
		t.Fatalf("EncryptKey failed: %v", err)
	}

	if _, err := DecryptKey(blob, "wrong-password"); err == nil {
		t.Fatal("expected decryption with wrong password to fail")
	}
}

func TestLoadKeyPrecedence(t *testing.T) {
	cfg := KeyConfig{
		RawPrivateKey:    "0xabcdef",
		EncryptedKeyPath: "/nonexistent/oracle-key.json",
		KeyPassword:      "unused",
	}
	got, err := LoadKey(cfg)
	if err != nil {
		t.Fatalf("LoadKey failed: %v", err)
	}
	if got != "abcdef" {
		t.Fatalf("got %s, want abcdef (0x prefix stripped)", got)
	}
}

func TestLoadKeyNoSourceConfigured(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Fatal("expected error when no key source is configured")
	}
}
