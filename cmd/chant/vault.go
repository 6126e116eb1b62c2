package main

import (
	"encoding/json"
	"fmt"
)

type VaultType string

const (
	VaultClear    VaultType = "clear"
	VaultPlatform VaultType = "platform" // Platform keychain. Uses zalando/go-keyring.
)

// Vault names. Group keys are stored under groupKeyPrefix + group name.
const (
	identityKey    = "identity"
	groupKeyPrefix = "group/"
)

// Vault holds the secrets of a client: its identity private key and the
// shared keys of the groups it belongs to. The state file records where
// the vault lives; a vault may keep its values elsewhere.
type Vault interface {
	Type() VaultType                    // Returns the type of this vault
	IsUnsealed() bool                   // Indicates if the values are available.
	Unseal() error                      // Requests that the values be unsealed.
	Get(key string) ([]byte, error)     // Returns a value, or nil if unset
	Set(key string, value []byte) error // Stores a value
	Delete(key string) error            // Removes a value
	Marshal() ([]byte, error)           // Marshal to JSON
	Unmarshal([]byte) error             // Unmarshal to the type.
}

// VaultEnvelope is a concrete envelope around an abstract Vault.
type VaultEnvelope struct {
	Type       VaultType       `json:"type"`       // The dynamic Vault type, used for marshal/unmarshal
	Properties json.RawMessage `json:"properties"` // The Vault is marshalled into this field.
	vault      Vault           // The Vault is instantiated into this field.
}

// NewVault creates an empty vault of the given type. user names the
// platform keychain entry.
func NewVault(vaultType VaultType, user string) (Vault, error) {
	switch vaultType {
	case VaultClear:
		return NewClearVault(), nil
	case VaultPlatform:
		return NewPlatformVault(user)
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", vaultType)
	}
}

func (env *VaultEnvelope) marshal() error {
	var err error
	env.Properties, err = env.vault.Marshal()
	return err
}

func (env *VaultEnvelope) unmarshal() error {
	var vault Vault
	switch env.Type {
	case VaultClear:
		vault = &ClearVault{}
	case VaultPlatform:
		vault = &PlatformVault{}
	default:
		return fmt.Errorf("unsupported vault type: %s", env.Type)
	}

	if err := vault.Unmarshal(env.Properties); err != nil {
		return fmt.Errorf("unable to read %s vault: %w", env.Type, err)
	}

	env.vault = vault
	return nil
}

// Open returns the vault, unsealing it if needed.
func (env *VaultEnvelope) Open() (Vault, error) {
	if !env.vault.IsUnsealed() {
		if err := env.vault.Unseal(); err != nil {
			return nil, err
		}
	}
	return env.vault, nil
}
