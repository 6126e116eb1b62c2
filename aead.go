package chant

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of a symmetric (shared) key.
const KeySize = chacha20poly1305.KeySize

const asymInfo = "chant/asymmetric/v1"

// sealAEAD encrypts plaintext under key with a random 24 byte nonce.
// The nonce is prepended to the ciphertext.
func sealAEAD(rand io.Reader, key, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: shared key must be %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand, out); err != nil {
		return nil, fmt.Errorf("unable to generate nonce: %w", err)
	}

	return aead.Seal(out, out, plaintext, nil), nil
}

// openAEAD reverses sealAEAD.
func openAEAD(key, sealed []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrStructural)
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	return plaintext, nil
}

// oneTimeKey turns a raw agreement into the AEAD key of one asymmetric
// envelope. The ephemeral public key salts the derivation.
func oneTimeKey(shared, ephemeral []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, ephemeral, []byte(asymInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}
