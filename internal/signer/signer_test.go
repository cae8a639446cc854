package signer

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testHead = "bdea45f6a2c1a2b8b6e84310e2d3c85e8e1f1fd820cccf8b31071ec503ee1fce"

func TestSignVerifyRoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	data, err := Sign(priv, testHead, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Error("signatures document missing XML header")
	}

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Version != "0.1" {
		t.Errorf("version = %s, want 0.1", doc.Version)
	}
	if len(doc.Signatures) != 1 {
		t.Fatalf("signatures = %d, want 1", len(doc.Signatures))
	}
	sig := doc.Signatures[0]
	if sig.Algorithm != "Ed25519" {
		t.Errorf("algorithm = %s, want Ed25519", sig.Algorithm)
	}
	if sig.Created != "2025-06-01T12:00:00Z" {
		t.Errorf("created = %s", sig.Created)
	}

	if err := Verify(doc, testHead); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyWrongHead(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := Sign(priv, testHead, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	other := strings.Repeat("00", 32)
	if err := Verify(doc, other); err == nil {
		t.Fatal("signature over a different head accepted")
	}
}

func TestVerifyTamperedValue(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := Sign(priv, testHead, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	doc.Signatures[0].Value = strings.Repeat("ff", 64)
	if !errors.Is(Verify(doc, testHead), ErrBadSignature) {
		t.Fatal("tampered signature value accepted")
	}
}

func TestVerifyEmptyDocument(t *testing.T) {
	if err := Verify(&Signatures{Version: "0.1"}, testHead); err == nil {
		t.Fatal("document with no signatures accepted")
	}
}

func TestLoadPrivateKeyRawSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "signing.key")
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		t.Fatal(err)
	}

	priv, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	want := ed25519.NewKeyFromSeed(seed)
	if !priv.Equal(want) {
		t.Error("loaded key does not match derived key")
	}
}

func TestLoadPrivateKeyRawPrivate(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "signing.key")
	if err := os.WriteFile(path, priv, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	if !loaded.Equal(priv) {
		t.Error("loaded key does not match written key")
	}
}

func TestLoadPrivateKeyGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.key")
	if err := os.WriteFile(path, []byte("not a key at all, wrong length too"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrivateKey(path); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("err = %v, want ErrInvalidKeyFormat", err)
	}
}

func TestLoadPrivateKeyMissingFile(t *testing.T) {
	if _, err := LoadPrivateKey(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("missing key file accepted")
	}
}
