package chant

import "io"

// Suite is the set of primitives an envelope is built from: a signature
// scheme with its SignedPayload layout, and a key agreement over the same
// keys. Codec never touches curve arithmetic directly.
//
// Private and public keys are opaque byte strings whose sizes are fixed by
// the suite. Implementations must not panic on malformed input.
type Suite interface {
	// Name identifies the suite in configuration files.
	Name() string

	// PublicKeySize is the encoded size of a public key, and therefore of
	// the ephemeral key field of an asymmetric envelope.
	PublicKeySize() int

	// KeyFromSeed deterministically derives a keypair from a 32 byte seed.
	KeyFromSeed(seed []byte) (priv, pub []byte, err error)

	// GenerateKey creates a keypair using entropy from rand.
	GenerateKey(rand io.Reader) (priv, pub []byte, err error)

	// PublicKey returns the public half of priv.
	PublicKey(priv []byte) ([]byte, error)

	// Sign signs plaintext and returns the packed SignedPayload.
	Sign(priv, plaintext []byte) ([]byte, error)

	// Open parses a SignedPayload, verifies it and returns the plaintext
	// together with the signer's public key. The plaintext aliases signed.
	Open(signed []byte) (plaintext, signer []byte, err error)

	// SharedSecret performs key agreement between priv and a peer's pub.
	SharedSecret(priv, pub []byte) ([]byte, error)
}

// SeedSize is the size of the seed accepted by Suite.KeyFromSeed.
const SeedSize = 32

// SuiteByName returns one of the built in suites.
func SuiteByName(name string) (Suite, bool) {
	switch name {
	case "", Ed25519.Name():
		return Ed25519, true
	case Secp256k1.Name():
		return Secp256k1, true
	default:
		return nil, false
	}
}

func generateFromSeed(s Suite, rand io.Reader) (priv, pub []byte, err error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, err
	}
	return s.KeyFromSeed(seed)
}
