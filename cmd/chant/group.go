package main

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/commandquery/chant"
	"github.com/mr-tron/base58"
)

const groupUsage = "usage: chant group {new NAME | add NAME KEY | ls | rm NAME}"

func CmdGroup(state *State, args []string) error {
	if len(args) == 0 {
		return errors.New(groupUsage)
	}

	switch args[0] {
	case "new":
		return CmdGroupNew(state, args[1:])
	case "add":
		return CmdGroupAdd(state, args[1:])
	case "rm":
		return CmdGroupRm(state, args[1:])
	case "ls":
		return CmdGroupLs(state, args[1:])
	default:
		return errors.New(groupUsage)
	}
}

// CmdGroupNew creates a group key and prints it, so it can be given to the
// other members.
func CmdGroupNew(state *State, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: chant group new NAME")
	}

	key := make([]byte, chant.KeySize)
	if _, err := rand.Read(key); err != nil {
		return err
	}

	if err := state.AddGroup(args[0], key); err != nil {
		return err
	}

	fmt.Println(base58.Encode(key))
	return nil
}

// CmdGroupAdd joins a group using a key received from one of its members.
func CmdGroupAdd(state *State, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: chant group add NAME KEY")
	}

	key, err := base58.Decode(args[1])
	if err != nil {
		return fmt.Errorf("invalid group key: %w", err)
	}

	return state.AddGroup(args[0], key)
}

func CmdGroupRm(state *State, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: chant group rm NAME")
	}
	return state.RemoveGroup(args[0])
}

func CmdGroupLs(state *State, args []string) error {
	for _, name := range state.Groups {
		fmt.Println(name)
	}
	return nil
}
