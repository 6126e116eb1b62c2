package chant

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Secp256k1 is the recoverable-signature variant: the signer's public key
// is not carried in the envelope but recovered from the signature.
//
//	SignedPayload := len4 | plaintext | hash(32) | signature(64) | recoveryId(1)
//
// Public keys are 33 byte compressed points. Because recovery always yields
// some key, a damaged signature may decode under a different signer, so
// Decode alone does not authenticate the sender. Use DecodeFrom, or compare
// Message.Signer with the expected identity.
var Secp256k1 Suite = secp256k1Suite{}

const (
	secpSignatureSize = 64

	// compactMagic is the header byte offset of a compact signature for a
	// compressed key; the recovery id is added to it.
	compactMagic = 27 + 4
)

type secp256k1Suite struct{}

func (secp256k1Suite) Name() string {
	return "secp256k1"
}

func (secp256k1Suite) PublicKeySize() int {
	return btcec.PubKeyBytesLenCompressed
}

func secpPrivateKey(priv []byte) (*btcec.PrivateKey, error) {
	if len(priv) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: secp256k1 private key must be %d bytes", ErrInvalidKey, btcec.PrivKeyBytesLen)
	}

	key, _ := btcec.PrivKeyFromBytes(priv)
	if key.Key.IsZero() || !bytes.Equal(key.Serialize(), priv) {
		return nil, fmt.Errorf("%w: secp256k1 scalar out of range", ErrInvalidKey)
	}

	return key, nil
}

func (s secp256k1Suite) KeyFromSeed(seed []byte) ([]byte, []byte, error) {
	if len(seed) != SeedSize {
		return nil, nil, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidKey, SeedSize)
	}

	key, err := secpPrivateKey(seed)
	if err != nil {
		return nil, nil, err
	}

	return key.Serialize(), key.PubKey().SerializeCompressed(), nil
}

func (s secp256k1Suite) GenerateKey(rand io.Reader) ([]byte, []byte, error) {
	// A seed outside the group order is astronomically unlikely; draw again.
	for range 8 {
		priv, pub, err := generateFromSeed(s, rand)
		if err == nil {
			return priv, pub, nil
		}
		if !errors.Is(err, ErrInvalidKey) {
			return nil, nil, err
		}
	}
	return nil, nil, fmt.Errorf("%w: unable to draw a secp256k1 scalar", ErrInvalidKey)
}

func (secp256k1Suite) PublicKey(priv []byte) ([]byte, error) {
	key, err := secpPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return key.PubKey().SerializeCompressed(), nil
}

func (secp256k1Suite) Sign(priv, plaintext []byte) ([]byte, error) {
	key, err := secpPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	if err := checkLen(plaintext); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(plaintext)
	compact := ecdsa.SignCompact(key, hash[:], true)

	p := newPacker(4 + len(plaintext) + sha256.Size + secpSignatureSize + 1)
	return p.prefixed(plaintext).fixed(hash[:]).fixed(compact[1:]).byte(compact[0] - compactMagic).bytes(), nil
}

func (secp256k1Suite) Open(signed []byte) ([]byte, []byte, error) {
	u := newUnpacker(signed)
	plaintext := u.prefixed()
	hash := u.fixed(sha256.Size)
	signature := u.fixed(secpSignatureSize)
	recovery := u.byte()
	if err := u.finish(); err != nil {
		return nil, nil, err
	}

	if recovery > 3 {
		return nil, nil, fmt.Errorf("%w: recovery id %d", ErrSignatureInvalid, recovery)
	}

	digest := sha256.Sum256(plaintext)
	if !bytes.Equal(digest[:], hash) {
		return nil, nil, fmt.Errorf("%w: hash does not match plaintext", ErrSignatureInvalid)
	}

	compact := make([]byte, 0, 1+secpSignatureSize)
	compact = append(compact, compactMagic+recovery)
	compact = append(compact, signature...)

	publicKey, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	return plaintext, publicKey.SerializeCompressed(), nil
}

func (secp256k1Suite) SharedSecret(priv, pub []byte) ([]byte, error) {
	key, err := secpPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	peer, err := btcec.ParsePubKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	return btcec.GenerateSharedSecret(key, peer), nil
}
