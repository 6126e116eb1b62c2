package chant

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
)

func TestSharedSecretAgrees(t *testing.T) {
	for _, suite := range suites {
		a := mustIdentity(t, suite)
		b := mustIdentity(t, suite)

		ab, err := suite.SharedSecret(a.PrivateKey, b.PublicKey)
		if err != nil {
			t.Fatal(err)
		}
		ba, err := suite.SharedSecret(b.PrivateKey, a.PublicKey)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(ab, ba) {
			t.Fatalf("%s: agreement differs", suite.Name())
		}
	}
}

func TestSignOpen(t *testing.T) {
	for _, suite := range suites {
		id := mustIdentity(t, suite)

		signed, err := suite.Sign(id.PrivateKey, []byte("plaintext"))
		if err != nil {
			t.Fatal(err)
		}

		plaintext, signer, err := suite.Open(signed)
		if err != nil {
			t.Fatalf("%s: %v", suite.Name(), err)
		}
		if string(plaintext) != "plaintext" || !bytes.Equal(signer, id.PublicKey) {
			t.Fatalf("%s: got %q from %x", suite.Name(), plaintext, signer)
		}

		pub, err := suite.PublicKey(id.PrivateKey)
		if err != nil || !bytes.Equal(pub, id.PublicKey) {
			t.Fatalf("%s: public key %x, %v", suite.Name(), pub, err)
		}
	}
}

func TestEd25519SeedForm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range [][]byte{priv, priv.Seed()} {
		got, err := Ed25519.PublicKey(key)
		if err != nil || !bytes.Equal(got, pub) {
			t.Fatalf("public key from %d byte key: %x, %v", len(key), got, err)
		}
	}

	bad := bytes.Clone(priv)
	bad[63] ^= 1
	if _, err := Ed25519.PublicKey(bad); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("mismatched public half accepted: %v", err)
	}
}

func TestSecp256k1Range(t *testing.T) {
	if _, _, err := Secp256k1.KeyFromSeed(make([]byte, SeedSize)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("zero scalar accepted: %v", err)
	}
	if _, _, err := Secp256k1.KeyFromSeed(bytes.Repeat([]byte{0xff}, SeedSize)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("scalar above the order accepted: %v", err)
	}
	if Secp256k1.PublicKeySize() != 33 {
		t.Fatal("expected compressed keys")
	}
}

func TestSecp256k1RecoveryID(t *testing.T) {
	id := mustIdentity(t, Secp256k1)
	signed, err := Secp256k1.Sign(id.PrivateKey, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	signed[len(signed)-1] = 4
	if _, _, err := Secp256k1.Open(signed); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("recovery id 4 accepted: %v", err)
	}
}

func TestSuiteByName(t *testing.T) {
	for name, want := range map[string]Suite{"": Ed25519, "ed25519": Ed25519, "secp256k1": Secp256k1} {
		got, ok := SuiteByName(name)
		if !ok || got != want {
			t.Errorf("%q: got %v", name, got)
		}
	}
	if _, ok := SuiteByName("rsa"); ok {
		t.Error("unknown suite found")
	}
}
