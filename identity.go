package chant

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidMnemonic = errors.New("invalid recovery phrase")
	ErrInvalidAddress  = errors.New("invalid address")
)

const identityInfo = "chant/identity/v1"

// Identity is a keypair in one suite.
type Identity struct {
	Suite      Suite
	PrivateKey []byte
	PublicKey  []byte
}

// NewIdentity creates a random identity.
func NewIdentity(suite Suite, rand io.Reader) (*Identity, error) {
	priv, pub, err := suite.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Identity{Suite: suite, PrivateKey: priv, PublicKey: pub}, nil
}

// IdentityFromSeed derives an identity from a 32 byte seed.
func IdentityFromSeed(suite Suite, seed []byte) (*Identity, error) {
	priv, pub, err := suite.KeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return &Identity{Suite: suite, PrivateKey: priv, PublicKey: pub}, nil
}

// IdentityFromPrivateKey rebuilds an identity from a stored private key.
func IdentityFromPrivateKey(suite Suite, priv []byte) (*Identity, error) {
	pub, err := suite.PublicKey(priv)
	if err != nil {
		return nil, err
	}
	return &Identity{Suite: suite, PrivateKey: clone(priv), PublicKey: pub}, nil
}

// NewMnemonic returns a fresh 24 word recovery phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// IdentityFromMnemonic recovers the identity a recovery phrase stands for.
// The same phrase yields the same identity in a given suite.
func IdentityFromMnemonic(suite Suite, mnemonic string) (*Identity, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := make([]byte, SeedSize)
	r := hkdf.New(sha256.New, bip39.NewSeed(mnemonic, ""), nil, []byte(identityInfo+"/"+suite.Name()))
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, err
	}

	return IdentityFromSeed(suite, seed)
}

// Address is the printable form of the identity's public key.
func (id *Identity) Address() string {
	return Address(id.PublicKey)
}

// Address encodes a public key as base58.
func Address(pub []byte) string {
	return base58.Encode(pub)
}

// ParseAddress decodes an address produced by Address and checks its size
// against the suite.
func ParseAddress(suite Suite, addr string) ([]byte, error) {
	pub, err := base58.Decode(strings.TrimSpace(addr))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if len(pub) != suite.PublicKeySize() {
		return nil, fmt.Errorf("%w: %q is %d bytes, expected %d", ErrInvalidAddress, addr, len(pub), suite.PublicKeySize())
	}
	return pub, nil
}
