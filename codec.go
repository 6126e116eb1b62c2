package chant

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// asymMagic tags an asymmetric envelope.
const asymMagic byte = 123

// Codec turns values into signed, optionally encrypted envelopes and back.
// A Codec holds no per-message state and is safe for concurrent use.
type Codec struct {
	suite  Suite
	rand   io.Reader
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithRand sets the entropy source for nonces and ephemeral keys.
func WithRand(r io.Reader) Option {
	return func(c *Codec) {
		c.rand = r
	}
}

// WithLogger sets the logger used to report why envelopes were skipped.
// Nothing is logged by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

// NewCodec returns a codec for the given suite. A nil suite means Ed25519.
func NewCodec(suite Suite, opts ...Option) *Codec {
	if suite == nil {
		suite = Ed25519
	}

	c := &Codec{
		suite:  suite,
		rand:   rand.Reader,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Suite returns the codec's primitives.
func (c *Codec) Suite() Suite {
	return c.suite
}

// Message is a decoded, verified envelope.
type Message struct {
	Data    any    // the payload, decoded without a schema
	Signer  []byte // public key of the signer
	payload []byte
}

// Unmarshal decodes the payload into v.
func (m *Message) Unmarshal(v any) error {
	return UnmarshalPayload(m.payload, v)
}

// Encode serialises v, signs it with identityPrivateKey and wraps it as
// selected by seal. A nil seal is Unencrypted.
func (c *Codec) Encode(v any, identityPrivateKey []byte, seal Seal) ([]byte, error) {
	plaintext, err := MarshalPayload(v)
	if err != nil {
		return nil, err
	}

	signed, err := c.suite.Sign(identityPrivateKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("unable to sign payload: %w", err)
	}

	switch s := seal.(type) {
	case nil, unencrypted:
		return signed, nil
	case asymmetricFor:
		return c.encryptAsym(signed, s.publicKey)
	case symmetricWith:
		return c.encryptSym(signed, s.key)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownSeal, seal)
	}
}

// encryptAsym wraps signed for one recipient:
//
//	AsymEncrypted := magic(1) | ephemPubkey | len4 | ciphertext
func (c *Codec) encryptAsym(signed, recipient []byte) ([]byte, error) {
	if len(recipient) != c.suite.PublicKeySize() {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRecipient, c.suite.PublicKeySize(), len(recipient))
	}

	ephemPrivate, ephemPublic, err := c.suite.GenerateKey(c.rand)
	if err != nil {
		return nil, fmt.Errorf("unable to generate ephemeral key: %w", err)
	}

	shared, err := c.suite.SharedSecret(ephemPrivate, recipient)
	clear(ephemPrivate)
	if err != nil {
		return nil, fmt.Errorf("unable to agree key: %w", err)
	}

	key, err := oneTimeKey(shared, ephemPublic)
	clear(shared)
	if err != nil {
		return nil, err
	}

	ciphertext, err := sealAEAD(c.rand, key, signed)
	clear(key)
	if err != nil {
		return nil, err
	}

	if err := checkLen(ciphertext); err != nil {
		return nil, err
	}

	p := newPacker(1 + len(ephemPublic) + 4 + len(ciphertext))
	return p.byte(asymMagic).fixed(ephemPublic).prefixed(ciphertext).bytes(), nil
}

// encryptSym wraps signed under a shared key:
//
//	SymEncrypted := len4 | ciphertext
func (c *Codec) encryptSym(signed, key []byte) ([]byte, error) {
	ciphertext, err := sealAEAD(c.rand, key, signed)
	if err != nil {
		return nil, err
	}

	if err := checkLen(ciphertext); err != nil {
		return nil, err
	}

	return newPacker(4 + len(ciphertext)).prefixed(ciphertext).bytes(), nil
}

// Decode recovers a verified message from blob, trying every key in ring.
// It reports false when no verified message can be recovered, whatever the
// reason; arbitrary input never causes an error or a panic.
func (c *Codec) Decode(blob []byte, ring *Keyring) (*Message, bool) {
	msg, err := c.decode(blob, ring)
	if err != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelDebug, "envelope skipped",
			slog.Int("size", len(blob)), slog.String("reason", err.Error()))
		return nil, false
	}
	return msg, true
}

// DecodeFrom is Decode restricted to messages signed by signer.
func (c *Codec) DecodeFrom(blob []byte, ring *Keyring, signer []byte) (*Message, bool) {
	msg, ok := c.Decode(blob, ring)
	if !ok {
		return nil, false
	}
	if !bytes.Equal(msg.Signer, signer) {
		c.logger.LogAttrs(context.Background(), slog.LevelDebug, "envelope skipped",
			slog.Int("size", len(blob)), slog.String("reason", "unexpected signer"))
		return nil, false
	}
	return msg, true
}

func (c *Codec) decode(blob []byte, ring *Keyring) (msg *Message, err error) {
	// Decoding is total: no envelope may panic the receiver.
	defer func() {
		if r := recover(); r != nil {
			msg, err = nil, fmt.Errorf("%w: %v", ErrStructural, r)
		}
	}()

	signed := blob
	for _, key := range ring.Keys() {
		if opened, err := c.decryptAsym(blob, key); err == nil {
			signed = opened
			break
		}

		if opened, err := c.decryptSym(blob, key); err == nil {
			signed = opened
			break
		}
	}

	plaintext, signer, err := c.suite.Open(signed)
	if err != nil {
		return nil, err
	}

	var data any
	if err := UnmarshalPayload(plaintext, &data); err != nil {
		return nil, err
	}

	return &Message{
		Data:    data,
		Signer:  clone(signer),
		payload: clone(plaintext),
	}, nil
}

func (c *Codec) decryptAsym(blob, privateKey []byte) ([]byte, error) {
	u := newUnpacker(blob)
	magic := u.byte()
	ephemPublic := u.fixed(c.suite.PublicKeySize())
	ciphertext := u.prefixed()
	if err := u.finish(); err != nil {
		return nil, err
	}

	if magic != asymMagic {
		return nil, fmt.Errorf("%w: bad magic %d", ErrStructural, magic)
	}

	shared, err := c.suite.SharedSecret(privateKey, ephemPublic)
	if err != nil {
		return nil, errors.Join(ErrAuthentication, err)
	}

	key, err := oneTimeKey(shared, ephemPublic)
	clear(shared)
	if err != nil {
		return nil, err
	}

	defer clear(key)
	return openAEAD(key, ciphertext)
}

func (c *Codec) decryptSym(blob, key []byte) ([]byte, error) {
	u := newUnpacker(blob)
	ciphertext := u.prefixed()
	if err := u.finish(); err != nil {
		return nil, err
	}

	return openAEAD(key, ciphertext)
}
