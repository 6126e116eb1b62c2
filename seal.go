package chant

// Seal selects how Encode wraps a signed payload. The three variants are
// exhaustive; construct them with Unencrypted, AsymmetricFor or
// SymmetricWith.
type Seal interface {
	isSeal()
}

type unencrypted struct{}

type asymmetricFor struct {
	publicKey []byte
}

type symmetricWith struct {
	key []byte
}

func (unencrypted) isSeal()   {}
func (asymmetricFor) isSeal() {}
func (symmetricWith) isSeal() {}

// Unencrypted produces a signed-only envelope anybody can read.
func Unencrypted() Seal {
	return unencrypted{}
}

// AsymmetricFor encrypts for the holder of the private key matching
// recipientPublicKey. Not even the sender can decrypt the result.
func AsymmetricFor(recipientPublicKey []byte) Seal {
	return asymmetricFor{publicKey: append([]byte(nil), recipientPublicKey...)}
}

// SymmetricWith encrypts under a pre-distributed shared key of KeySize bytes.
func SymmetricWith(sharedKey []byte) Seal {
	return symmetricWith{key: append([]byte(nil), sharedKey...)}
}
