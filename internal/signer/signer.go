// Package signer produces and verifies the optional META-INF/signatures.xml
// container entry: an Ed25519 signature over the process log's chain head.
//
// A signature binds the chain to a key, nothing more. Chain integrity is
// established by verification alone; signing is for producers who want an
// identity claim on top of it.
package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

var (
	ErrInvalidKeyFormat = errors.New("signer: invalid key format")
	ErrUnsupportedKey   = errors.New("signer: unsupported key type (expected Ed25519)")
	ErrKeyEncrypted     = errors.New("signer: key is encrypted (passphrase required)")
	ErrBadSignature     = errors.New("signer: signature verification failed")
)

// Signatures is the root of a signatures.xml document.
type Signatures struct {
	XMLName    xml.Name    `xml:"signatures"`
	Version    string      `xml:"version,attr"`
	Signatures []Signature `xml:"signature"`
}

// Signature is one signed chain head.
type Signature struct {
	Algorithm string `xml:"algorithm,attr"`
	Created   string `xml:"created,attr"`
	HeadHash  string `xml:"head-hash"`
	PublicKey string `xml:"public-key"`
	Value     string `xml:"value"`
}

// LoadPrivateKey reads an Ed25519 private key from file. Raw 32-byte
// seeds, raw 64-byte private keys, and OpenSSH PEM files are accepted.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signer: read key: %w", err)
	}

	if len(keyData) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(keyData), nil
	}
	if len(keyData) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(keyData), nil
	}
	return parseOpenSSHKey(keyData)
}

func parseOpenSSHKey(keyData []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, ErrInvalidKeyFormat
	}

	parsed, err := ssh.ParseRawPrivateKey(keyData)
	if err != nil {
		if _, ok := err.(*ssh.PassphraseMissingError); ok {
			return nil, ErrKeyEncrypted
		}
		return nil, fmt.Errorf("signer: parse key: %w", err)
	}

	switch key := parsed.(type) {
	case ed25519.PrivateKey:
		return key, nil
	case *ed25519.PrivateKey:
		return *key, nil
	}
	return nil, ErrUnsupportedKey
}

// Sign produces a signatures.xml document over the given chain head hash.
func Sign(priv ed25519.PrivateKey, headHash string, at time.Time) ([]byte, error) {
	sig := ed25519.Sign(priv, []byte(headHash))
	pub := priv.Public().(ed25519.PublicKey)

	doc := Signatures{
		Version: "0.1",
		Signatures: []Signature{{
			Algorithm: "Ed25519",
			Created:   at.UTC().Format(time.RFC3339),
			HeadHash:  headHash,
			PublicKey: hex.EncodeToString(pub),
			Value:     hex.EncodeToString(sig),
		}},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("signer: marshal signatures: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// Parse decodes a signatures.xml document.
func Parse(data []byte) (*Signatures, error) {
	var doc Signatures
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("signer: parse signatures: %w", err)
	}
	return &doc, nil
}

// Verify checks every signature in the document against the given chain
// head. It fails if any signature names a different head hash, carries a
// malformed key, or does not verify.
func Verify(doc *Signatures, headHash string) error {
	if len(doc.Signatures) == 0 {
		return fmt.Errorf("signer: no signatures present")
	}
	for i, sig := range doc.Signatures {
		if sig.HeadHash != headHash {
			return fmt.Errorf("signer: signature %d signs head %.16s…, chain head is %.16s…",
				i, sig.HeadHash, headHash)
		}
		pub, err := hex.DecodeString(sig.PublicKey)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("signer: signature %d: %w", i, ErrInvalidKeyFormat)
		}
		value, err := hex.DecodeString(sig.Value)
		if err != nil {
			return fmt.Errorf("signer: signature %d: %w", i, ErrInvalidKeyFormat)
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), []byte(sig.HeadHash), value) {
			return fmt.Errorf("signature %d: %w", i, ErrBadSignature)
		}
	}
	return nil
}
