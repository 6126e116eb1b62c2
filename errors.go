package chant

import "errors"

// Decode failures. These never reach callers of Codec.Decode, which only
// reports whether a verified message was recovered; they classify why a
// particular unwrap attempt was abandoned.
var (
	ErrStructural       = errors.New("malformed envelope")
	ErrAuthentication   = errors.New("authentication failed")
	ErrSignatureInvalid = errors.New("invalid signature")
)

// Encode failures. These are caller configuration errors.
var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidRecipient = errors.New("invalid recipient key")
	ErrTooLarge         = errors.New("payload too large")
	ErrUnknownSeal      = errors.New("unknown seal")
	ErrUnsupportedValue = errors.New("value cannot be decoded by a receiver")
)
