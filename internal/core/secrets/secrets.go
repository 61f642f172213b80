// Package secrets seals credentials kept in config.yml with a passphrase.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Prefix marks a sealed config value
	Prefix = "enc:"

	// SaltSize is the size of the salt in bytes
	SaltSize = 16

	// NonceSize is the size of the nonce for AES-GCM
	NonceSize = 12

	// KeySize is the size of the derived key (AES-256)
	KeySize = 32

	// PBKDF2Iterations is the number of iterations for key derivation
	PBKDF2Iterations = 100000

	minPassphrase = 8
)

var (
	// ErrShortPassphrase is returned when the passphrase is too short to seal with
	ErrShortPassphrase = errors.New("passphrase must be at least 8 characters")

	// ErrDecryptionFailed is returned when decryption fails (wrong passphrase or corrupted data)
	ErrDecryptionFailed = errors.New("decryption failed: wrong passphrase or corrupted data")

	// ErrInvalidData is returned when the sealed value format is invalid
	ErrInvalidData = errors.New("invalid sealed value format")
)

// ValidatePassphrase checks the passphrase length
func ValidatePassphrase(passphrase string) error {
	if len(passphrase) < minPassphrase {
		return ErrShortPassphrase
	}
	return nil
}

// IsSealed reports whether value was produced by Seal
func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with AES-256-GCM under a key derived from
// passphrase. The result is Prefix followed by base64(salt + nonce + ciphertext).
func Seal(plaintext, passphrase string) (string, error) {
	if err := ValidatePassphrase(passphrase); err != nil {
		return "", err
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	combined := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+gcm.Overhead())
	combined = append(combined, salt...)
	combined = append(combined, nonce...)
	combined = gcm.Seal(combined, nonce, []byte(plaintext), nil)

	return Prefix + base64.StdEncoding.EncodeToString(combined), nil
}

// Open reverses Seal. A value without Prefix is returned as is, so plain
// and sealed credentials can be mixed in one file.
func Open(value, passphrase string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if passphrase == "" {
		return "", ErrDecryptionFailed
	}

	combined, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", ErrInvalidData
	}
	// salt + nonce + at least the GCM tag
	if len(combined) < SaltSize+NonceSize+16 {
		return "", ErrInvalidData
	}

	salt := combined[:SaltSize]
	nonce := combined[SaltSize : SaltSize+NonceSize]
	ciphertext := combined[SaltSize+NonceSize:]

	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
