package main

//
// The client state file (by default ~/.config/chant/state.json) holds the
// public identity, the vault location, group names and properties. Secret
// material lives in the vault.
//

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/commandquery/chant"
	"github.com/zalando/go-keyring"
)

var (
	ErrNoIdentity       = errors.New("no identity; run `chant init` or `chant recover` first")
	ErrExistingIdentity = errors.New("an identity already exists")
	ErrUnknownGroup     = errors.New("unknown group")
)

// StateVersion is current default version of the state file.
const StateVersion = 1

// State represents the client state file.
type State struct {
	Version    int            `json:"version"`
	Suite      string         `json:"suite"`     // name of the chant.Suite
	PublicKey  []byte         `json:"publicKey"` // identity public key
	Vault      *VaultEnvelope `json:"vault"`
	Groups     []string       `json:"groups"` // names of groups with a key in the vault
	Properties *Properties    `json:"properties"`

	store    string // Location of the state file
	modified bool   // indicates that the state changed.
}

// LoadState loads the client state, if there is one. Returns an empty
// state if the file doesn't exist.
func LoadState(store string) (*State, error) {
	stateJS, err := os.ReadFile(store)
	if os.IsNotExist(err) {
		return &State{
			store:      store,
			modified:   true,
			Version:    StateVersion,
			Properties: NewProperties(),
		}, nil
	}

	if err != nil {
		return nil, err
	}

	state := State{store: store}
	if err = state.Unmarshal(stateJS); err != nil {
		return nil, err
	}

	if state.Version > StateVersion {
		return nil, fmt.Errorf("unable to load version %d state; please upgrade", state.Version)
	}

	if state.Properties == nil {
		state.Properties = NewProperties()
	}

	return &state, nil
}

func (state *State) atomicSave() error {
	contents, err := state.Marshal()
	if err != nil {
		return err
	}
	contents = append(contents, '\n')

	f, err := os.CreateTemp(filepath.Dir(state.store), ".tmp-")
	if err != nil {
		return err
	}
	tmpName := f.Name()

	// Clean up on any error path
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if err = f.Chmod(0600); err != nil {
		f.Close()
		return err
	}

	if _, err = f.Write(contents); err != nil {
		f.Close()
		return err
	}

	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}

	if err = f.Close(); err != nil {
		return err
	}

	if err = os.Rename(tmpName, state.store); err != nil {
		return err
	}

	tmpName = "" // prevent defer from removing
	return nil
}

// Save writes the state back to where it was loaded from, if it changed.
func (state *State) Save() error {
	if !state.modified {
		return nil
	}

	if err := state.atomicSave(); err != nil {
		return fmt.Errorf("could not save state: %v", err)
	}

	state.modified = false
	return nil
}

func (state *State) suite() (chant.Suite, error) {
	suite, ok := chant.SuiteByName(state.Suite)
	if !ok {
		return nil, fmt.Errorf("unknown suite %q", state.Suite)
	}
	return suite, nil
}

// SetIdentity stores a new identity in a new vault of the given type.
func (state *State) SetIdentity(id *chant.Identity, vaultType VaultType, force bool) error {
	if state.Vault != nil && !force {
		return ErrExistingIdentity
	}

	vault, err := NewVault(vaultType, id.Address())
	if err != nil {
		return err
	}

	if err = vault.Set(identityKey, id.PrivateKey); err != nil {
		return err
	}

	// The replaced identity's keychain entry, and the group keys in it,
	// would otherwise be left behind.
	if old, ok := state.platformVault(); ok && old.User != id.Address() {
		if err = old.Destroy(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("unable to remove previous identity: %w", err)
		}
	}

	state.Suite = id.Suite.Name()
	state.PublicKey = id.PublicKey
	state.Vault = &VaultEnvelope{Type: vaultType, vault: vault}
	state.Groups = nil
	state.modified = true

	return nil
}

func (state *State) platformVault() (*PlatformVault, bool) {
	if state.Vault == nil {
		return nil, false
	}
	vault, ok := state.Vault.vault.(*PlatformVault)
	return vault, ok
}

// Identity unseals the vault and returns the identity.
func (state *State) Identity() (*chant.Identity, error) {
	if state.Vault == nil {
		return nil, ErrNoIdentity
	}

	suite, err := state.suite()
	if err != nil {
		return nil, err
	}

	vault, err := state.Vault.Open()
	if err != nil {
		return nil, err
	}

	priv, err := vault.Get(identityKey)
	if err != nil {
		return nil, err
	}
	if priv == nil {
		return nil, ErrNoIdentity
	}

	return chant.IdentityFromPrivateKey(suite, priv)
}

// Keyring returns a keyring holding the identity and every group key.
func (state *State) Keyring(id *chant.Identity) (*chant.Keyring, error) {
	ring := chant.NewKeyring(id.PrivateKey)
	for _, name := range state.Groups {
		key, err := state.GroupKey(name)
		if err != nil {
			return nil, err
		}
		ring.AddKey(key)
	}
	return ring, nil
}

// GroupKey returns the shared key of a group.
func (state *State) GroupKey(name string) ([]byte, error) {
	if !slices.Contains(state.Groups, name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}

	vault, err := state.Vault.Open()
	if err != nil {
		return nil, err
	}

	key, err := vault.Get(groupKeyPrefix + name)
	if err != nil {
		return nil, err
	}
	if len(key) != chant.KeySize {
		return nil, fmt.Errorf("group %s has no usable key", name)
	}
	return key, nil
}

// AddGroup stores the shared key of a group, replacing any earlier key.
func (state *State) AddGroup(name string, key []byte) error {
	if state.Vault == nil {
		return ErrNoIdentity
	}
	if len(key) != chant.KeySize {
		return fmt.Errorf("%w: group key must be %d bytes", chant.ErrInvalidKey, chant.KeySize)
	}

	vault, err := state.Vault.Open()
	if err != nil {
		return err
	}

	if err = vault.Set(groupKeyPrefix+name, key); err != nil {
		return err
	}

	if !slices.Contains(state.Groups, name) {
		state.Groups = append(state.Groups, name)
		slices.Sort(state.Groups)
	}
	state.modified = true
	return nil
}

// RemoveGroup forgets a group and its key.
func (state *State) RemoveGroup(name string) error {
	if !slices.Contains(state.Groups, name) {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}

	vault, err := state.Vault.Open()
	if err != nil {
		return err
	}

	if err = vault.Delete(groupKeyPrefix + name); err != nil {
		return err
	}

	state.Groups = slices.DeleteFunc(state.Groups, func(g string) bool { return g == name })
	state.modified = true
	return nil
}

// Set a property. The expression is of the form "property=value".
func (state *State) Set(expression string) error {
	name, value, ok := strings.Cut(expression, "=")
	if !ok {
		return fmt.Errorf("invalid expression: %s", expression)
	}

	if err := state.Properties.Set(name, value); err != nil {
		return fmt.Errorf("unable to set %s: %w", name, err)
	}

	state.modified = true
	return nil
}

// Marshal returns the JSON representation of the state, after updating
// the vault's own representation.
func (state *State) Marshal() ([]byte, error) {
	if state.Vault != nil {
		if err := state.Vault.marshal(); err != nil {
			return nil, err
		}
	}

	return json.MarshalIndent(state, "", "  ")
}

// Unmarshal reads JSON and instantiates the concrete vault named by the
// envelope.
func (state *State) Unmarshal(data []byte) error {
	if err := json.Unmarshal(data, state); err != nil {
		return fmt.Errorf("unable to parse state: %w", err)
	}

	if state.Vault != nil {
		return state.Vault.unmarshal()
	}

	return nil
}
