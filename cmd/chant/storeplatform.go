package main

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keychainService = "chant"

// PlatformVault keeps its values in the platform keychain as a single JSON
// map. Only the keychain coordinates are written to the state file.
type PlatformVault struct {
	Service string `json:"service"` // Always "chant"
	User    string `json:"user"`    // Address of the identity
	values  Map64  // Cached (unsealed) values, never marshalled/unmarshalled
}

type Map64 map[string][]byte

func NewPlatformVault(user string) (*PlatformVault, error) {
	vault := &PlatformVault{
		Service: keychainService,
		User:    user,
		values:  make(Map64), // this value must be private, and never stored in the config.
	}

	if err := vault.save(); err != nil {
		return nil, err
	}

	return vault, nil
}

func (s *PlatformVault) save() error {
	js, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("unable to marshal vault: %w", err)
	}

	if err = keyring.Set(s.Service, s.User, string(js)); err != nil {
		return fmt.Errorf("unable to save to platform keychain: %w", err)
	}

	return nil
}

func (s *PlatformVault) Type() VaultType {
	return VaultPlatform
}

func (s *PlatformVault) IsUnsealed() bool {
	return s.values != nil
}

func (s *PlatformVault) Unseal() error {
	secret, err := keyring.Get(s.Service, s.User)
	if err != nil {
		return fmt.Errorf("unable to get secret from platform keychain: %w", err)
	}

	if err = json.Unmarshal([]byte(secret), &s.values); err != nil {
		return fmt.Errorf("unable to unmarshal platform keychain: %w", err)
	}

	return nil
}

func (s *PlatformVault) Get(key string) ([]byte, error) {
	if s.values == nil {
		return nil, fmt.Errorf("vault is sealed")
	}
	return s.values[key], nil
}

func (s *PlatformVault) Set(key string, value []byte) error {
	if s.values == nil {
		return fmt.Errorf("vault is sealed")
	}
	s.values[key] = value
	return s.save()
}

func (s *PlatformVault) Delete(key string) error {
	if s.values == nil {
		return fmt.Errorf("vault is sealed")
	}
	delete(s.values, key)
	return s.save()
}

// Destroy removes the keychain entry.
func (s *PlatformVault) Destroy() error {
	return keyring.Delete(s.Service, s.User)
}

func (s *PlatformVault) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func (s *PlatformVault) Unmarshal(bytes []byte) error {
	return json.Unmarshal(bytes, s)
}
