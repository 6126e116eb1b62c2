package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/commandquery/chant"
)

func identityFlags(name string) (*flag.FlagSet, *string, *string, *bool) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	suite := flags.String("suite", chant.Ed25519.Name(), "signature suite (ed25519 or secp256k1)")
	vault := flags.String("vault", string(VaultPlatform), "where to keep keys (platform or clear)")
	force := flags.Bool("force", false, "replace an existing identity")
	return flags, suite, vault, force
}

// CmdInit creates a new identity and prints its recovery phrase.
func CmdInit(state *State, args []string) error {
	flags, suiteName, vaultType, force := identityFlags("init")
	if err := flags.Parse(args); err != nil || flags.NArg() != 0 {
		chant.Usage("chant init [--suite ed25519|secp256k1] [--vault platform|clear] [--force]")
	}

	suite, ok := chant.SuiteByName(*suiteName)
	if !ok {
		return fmt.Errorf("unknown suite %q", *suiteName)
	}

	if state.Vault != nil && !*force && !Confirm("Replace the existing identity?") {
		return ErrExistingIdentity
	}

	words, err := chant.NewMnemonic()
	if err != nil {
		return err
	}

	id, err := chant.IdentityFromMnemonic(suite, words)
	if err != nil {
		return err
	}

	if err = state.SetIdentity(id, VaultType(*vaultType), true); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Write down your recovery phrase. It is the only way to recover this identity:")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "    %s\n", words)
	fmt.Fprintln(os.Stderr)
	fmt.Println(id.Address())

	return nil
}

// CmdRecover rebuilds an identity from its recovery phrase.
func CmdRecover(state *State, args []string) error {
	flags, suiteName, vaultType, force := identityFlags("recover")
	if err := flags.Parse(args); err != nil || flags.NArg() != 0 {
		chant.Usage("chant recover [--suite ed25519|secp256k1] [--vault platform|clear] [--force]")
	}

	suite, ok := chant.SuiteByName(*suiteName)
	if !ok {
		return fmt.Errorf("unknown suite %q", *suiteName)
	}

	words, err := ReadSecret("Recovery phrase: ")
	if err != nil {
		return err
	}

	id, err := chant.IdentityFromMnemonic(suite, words)
	if err != nil {
		return err
	}

	if err = state.SetIdentity(id, VaultType(*vaultType), *force); err != nil {
		if errors.Is(err, ErrExistingIdentity) {
			return fmt.Errorf("%w; use --force to override", err)
		}
		return err
	}

	fmt.Println(id.Address())
	return nil
}

// CmdKey prints the identity's address, which others use to reach it.
func CmdKey(state *State) error {
	if state.Vault == nil {
		return ErrNoIdentity
	}
	fmt.Println(chant.Address(state.PublicKey))
	return nil
}
