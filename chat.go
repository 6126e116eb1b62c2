package chant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

var ErrSignerMismatch = errors.New("sender address does not match signer")

// Chat sends and receives ChatMsg envelopes on a single topic.
type Chat struct {
	codec     *Codec
	identity  *Identity
	ring      *Keyring
	publisher Publisher
	topic     string
	roster    *Roster
	logger    *slog.Logger
}

// NewChat binds an identity to a topic. A nil ring is replaced with one
// holding only the identity key.
func NewChat(codec *Codec, identity *Identity, ring *Keyring, publisher Publisher, topic string) *Chat {
	if ring == nil {
		ring = NewKeyring(identity.PrivateKey)
	}
	return &Chat{
		codec:     codec,
		identity:  identity,
		ring:      ring,
		publisher: publisher,
		topic:     topic,
		roster:    NewRoster(),
		logger:    codec.logger,
	}
}

func (c *Chat) Keyring() *Keyring { return c.ring }
func (c *Chat) Roster() *Roster   { return c.roster }

// Send publishes msg. A message naming channel members is encrypted
// separately for each of them; anything else is signed only.
func (c *Chat) Send(ctx context.Context, msg ChatMsg) error {
	msg.Addr = c.identity.Address()

	members := msg.Members()
	if len(members) == 0 {
		return c.publish(ctx, msg, Unencrypted())
	}

	// Resolve every member before publishing anything.
	keys := make([][]byte, 0, len(members))
	for _, addr := range members {
		pub, err := ParseAddress(c.codec.Suite(), addr)
		if err != nil {
			return err
		}
		keys = append(keys, pub)
	}

	var errs []error
	for _, pub := range keys {
		if err := c.publish(ctx, msg, AsymmetricFor(pub)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", Address(pub), err))
		}
	}
	return errors.Join(errs...)
}

// SendGroup publishes msg encrypted under a shared group key.
func (c *Chat) SendGroup(ctx context.Context, msg ChatMsg, sharedKey []byte) error {
	msg.Addr = c.identity.Address()
	return c.publish(ctx, msg, SymmetricWith(sharedKey))
}

func (c *Chat) publish(ctx context.Context, msg ChatMsg, seal Seal) error {
	blob, err := c.codec.Encode(msg, c.identity.PrivateKey, seal)
	if err != nil {
		return err
	}
	return c.publisher.Publish(ctx, c.topic, blob)
}

// Receive decodes an envelope taken from the topic. It reports false for
// envelopes that are not for us, fail verification, are not chat messages,
// or claim an address other than the one that signed them.
func (c *Chat) Receive(blob []byte) (*Received, bool) {
	m, ok := c.codec.Decode(blob, c.ring)
	if !ok {
		return nil, false
	}

	var msg ChatMsg
	if err := m.Unmarshal(&msg); err != nil {
		c.logger.Debug("not a chat message", "err", err)
		return nil, false
	}

	claimed, err := ParseAddress(c.codec.Suite(), msg.Addr)
	if err != nil || !bytes.Equal(claimed, m.Signer) {
		c.logger.Debug("chat message rejected", "err", ErrSignerMismatch, "addr", msg.Addr)
		return nil, false
	}

	c.roster.Observe(&msg)
	return &Received{ChatMsg: msg, Signer: m.Signer}, true
}

// Roster tracks the handles and private channels seen on a topic.
type Roster struct {
	mu       sync.RWMutex
	handles  map[string]string
	channels []string
}

func NewRoster() *Roster {
	return &Roster{handles: make(map[string]string)}
}

// Observe records the sender's latest handle and the message's channel.
func (r *Roster) Observe(msg *ChatMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handles[msg.Addr] = msg.Handle

	if msg.Chan == "" {
		return
	}
	if i, found := slices.BinarySearch(r.channels, msg.Chan); !found {
		r.channels = slices.Insert(r.channels, i, msg.Chan)
	}
}

// Handle returns the last handle used by addr.
func (r *Roster) Handle(addr string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[addr]
	return h, ok
}

// Channels returns the known channels in sorted order.
func (r *Roster) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.channels)
}
