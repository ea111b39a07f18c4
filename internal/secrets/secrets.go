package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	newGCM     = cipher.NewGCM
	randReader = rand.Reader
)

var ErrInvalidPayload = errors.New("invalid sealed payload")

func ParseKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, errors.New("SESSION_SECRETS_KEY is required")
	}
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) != 32 {
		return nil, errors.New("SESSION_SECRETS_KEY must be 32 bytes or base64-encoded 32 bytes")
	}
	return decoded, nil
}

// Seal encrypts plaintext with AES-256-GCM and binds it to associated, so a
// payload sealed for one key name cannot be opened under another. The result
// is base64(nonce || ciphertext).
func Seal(key []byte, plaintext []byte, associated string) (string, error) {
	gcm, err := aead(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(associated))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func Open(key []byte, encoded string, associated string) ([]byte, error) {
	gcm, err := aead(key)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	if len(data) < gcm.NonceSize() {
		return nil, ErrInvalidPayload
	}
	nonce := data[:gcm.NonceSize()]
	plain, err := gcm.Open(nil, nonce, data[gcm.NonceSize():], []byte(associated))
	if err != nil {
		return nil, err
	}
	return plain, nil
}

func aead(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return newGCM(block)
}
