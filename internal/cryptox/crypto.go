// Package cryptox seals disclosure snapshots before they leave the engine.
// A snapshot is serialized to JSON and encrypted with AES-GCM under a key
// derived from the configured secret with argon2id and a per-snapshot salt.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// DeriveKey derives a 32-byte AES key from secret and salt using argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Seal serializes v to JSON and encrypts it under a key derived from secret.
// The output layout is salt || nonce || ciphertext, so the blob is
// self-contained and Open only needs the secret.
func Seal(v any, secret []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(DeriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Open decrypts a blob produced by Seal and unmarshals the JSON payload
// into v. The engine itself only seals; Open is the counterpart for the
// operator tooling that decrypts an archived disclosure snapshot, and for
// verifying round-trips in tests.
func Open(data, secret []byte, v any) error {
	if len(data) < saltSize+nonceSize {
		return ErrInvalidCiphertext
	}
	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	block, err := aes.NewCipher(DeriveKey(secret, salt))
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrInvalidCiphertext
	}
	return json.Unmarshal(plaintext, v)
}
