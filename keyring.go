package chant

import (
	"sync"
	"sync/atomic"
)

// Keyring is the ordered set of keys tried when decoding. Index 0 holds the
// local identity private key; shared keys and other private keys collected
// during the session follow in insertion order.
//
// Keys are only ever appended. Readers take a snapshot without locking, so
// any number of Decode calls may run while AddKey is called.
type Keyring struct {
	mu       sync.Mutex
	keys     atomic.Pointer[[][]byte]
	identity bool
}

// NewKeyring returns a keyring holding the identity private key. A nil key
// returns an empty keyring.
func NewKeyring(identityPrivateKey []byte) *Keyring {
	ring := &Keyring{}
	keys := [][]byte{}
	if identityPrivateKey != nil {
		keys = append(keys, clone(identityPrivateKey))
		ring.identity = true
	}
	ring.keys.Store(&keys)
	return ring
}

// AddKey appends a candidate key. Duplicates are tolerated.
func (ring *Keyring) AddKey(key []byte) {
	ring.mu.Lock()
	defer ring.mu.Unlock()

	old := ring.snapshot()
	keys := make([][]byte, len(old), len(old)+1)
	copy(keys, old)
	keys = append(keys, clone(key))
	ring.keys.Store(&keys)
}

// Keys returns the candidate keys in insertion order. The slice is a
// snapshot and must not be modified.
func (ring *Keyring) Keys() [][]byte {
	return ring.snapshot()
}

// Len returns the number of candidate keys.
func (ring *Keyring) Len() int {
	return len(ring.snapshot())
}

// Identity returns the identity private key, if the keyring was built with one.
func (ring *Keyring) Identity() ([]byte, bool) {
	keys := ring.snapshot()
	if !ring.identity || len(keys) == 0 {
		return nil, false
	}
	return keys[0], true
}

func (ring *Keyring) snapshot() [][]byte {
	if ring == nil {
		return nil
	}
	if keys := ring.keys.Load(); keys != nil {
		return *keys
	}
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
