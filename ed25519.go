package chant

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
)

// Ed25519 signs with Ed25519 and agrees keys with X25519 on the Montgomery
// form of the same keys, so one identity key both signs and decrypts.
//
//	SignedPayload := len4 | plaintext | pubkey(32) | signature(64)
var Ed25519 Suite = ed25519Suite{}

type ed25519Suite struct{}

func (ed25519Suite) Name() string {
	return "ed25519"
}

func (ed25519Suite) PublicKeySize() int {
	return ed25519.PublicKeySize
}

func (ed25519Suite) KeyFromSeed(seed []byte) ([]byte, []byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidKey, ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return priv, priv.Public().(ed25519.PublicKey), nil
}

func (s ed25519Suite) GenerateKey(rand io.Reader) ([]byte, []byte, error) {
	return generateFromSeed(s, rand)
}

// edPrivateKey accepts either a 32 byte seed or a 64 byte private key whose
// public half matches its seed.
func edPrivateKey(priv []byte) (ed25519.PrivateKey, error) {
	switch len(priv) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(priv), nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(priv[:ed25519.SeedSize])
		if !bytes.Equal(key[ed25519.SeedSize:], priv[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidKey)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: ed25519 private key must be %d or %d bytes", ErrInvalidKey, ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}

func (ed25519Suite) PublicKey(priv []byte) ([]byte, error) {
	key, err := edPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return key.Public().(ed25519.PublicKey), nil
}

func (ed25519Suite) Sign(priv, plaintext []byte) ([]byte, error) {
	key, err := edPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	if err := checkLen(plaintext); err != nil {
		return nil, err
	}

	signature := ed25519.Sign(key, plaintext)

	p := newPacker(4 + len(plaintext) + ed25519.PublicKeySize + ed25519.SignatureSize)
	return p.prefixed(plaintext).fixed(key[ed25519.SeedSize:]).fixed(signature).bytes(), nil
}

func (ed25519Suite) Open(signed []byte) ([]byte, []byte, error) {
	u := newUnpacker(signed)
	plaintext := u.prefixed()
	publicKey := u.fixed(ed25519.PublicKeySize)
	signature := u.fixed(ed25519.SignatureSize)
	if err := u.finish(); err != nil {
		return nil, nil, err
	}

	if !ed25519.Verify(publicKey, plaintext, signature) {
		return nil, nil, ErrSignatureInvalid
	}

	return plaintext, publicKey, nil
}

func (ed25519Suite) SharedSecret(priv, pub []byte) ([]byte, error) {
	key, err := edPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	u, err := montgomery(pub)
	if err != nil {
		return nil, err
	}

	// The X25519 scalar is the same hashed seed Ed25519 signs with;
	// X25519 applies the clamping.
	h := sha512.Sum512(key.Seed())
	shared, err := curve25519.X25519(h[:32], u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	return shared, nil
}

// montgomery maps an Ed25519 public key to its X25519 u-coordinate.
func montgomery(pub []byte) ([]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidRecipient, ed25519.PublicKeySize)
	}

	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	return p.BytesMontgomery(), nil
}
