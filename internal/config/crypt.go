package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// SecVerPrefix marks an encrypted password in the config file.
const SecVerPrefix = "_v1_"

var (
	// ErrNoSecretKey is returned when an encrypted password is found but no key is set.
	ErrNoSecretKey = errors.New(EnvPrefix + "SECKEY is empty")
	// ErrDecrypt is returned when an encrypted value cannot be opened.
	ErrDecrypt = errors.New("decryption failed")
)

const nonceSize = 24

// Decrypt opens a secretbox sealed by Encrypt. The key is the sha256 of secret.
func Decrypt(message, secret []byte) ([]byte, error) {
	if len(message) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: message of %d bytes is too short", ErrDecrypt, len(message))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], message[:nonceSize])
	key := sha256.Sum256(secret)

	plain, ok := secretbox.Open(nil, message[nonceSize:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("%w: wrong key or corrupted value", ErrDecrypt)
	}
	return plain, nil
}

// Encrypt seals message with a random nonce, which is prepended to the result.
func Encrypt(message, secret []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	key := sha256.Sum256(secret)

	return secretbox.Seal(nonce[:], message, &nonce, &key), nil
}

// EncryptPassword returns the config file form of an encrypted password.
func EncryptPassword(password, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoSecretKey
	}
	encrypted, err := Encrypt([]byte(password), []byte(secret))
	if err != nil {
		return "", err
	}
	return SecVerPrefix + hex.EncodeToString(encrypted), nil
}

// DecryptPassword reverses EncryptPassword.
func DecryptPassword(value, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoSecretKey
	}
	encrypted, err := hex.DecodeString(strings.TrimPrefix(value, SecVerPrefix))
	if err != nil {
		return "", fmt.Errorf("decoding %s value: %w", SecVerPrefix, err)
	}
	decrypted, err := Decrypt(encrypted, []byte(secret))
	if err != nil {
		return "", err
	}
	return string(decrypted), nil
}
