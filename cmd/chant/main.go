package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/commandquery/chant"
)

func main() {
	var store string
	var err error

	if err = initConfig(); err != nil {
		chant.Exit(1, err)
	}

	flags := flag.NewFlagSet("chant", flag.ContinueOnError)
	flags.StringVar(&store, "c", GetStoreLocation(), "path to state file")
	if err := flags.Parse(os.Args[1:]); err != nil {
		chant.Exit(1, err)
	}

	state, err := LoadState(store)
	if err != nil {
		chant.Exit(1, err)
	}

	if state.Version != StateVersion {
		panic(fmt.Errorf("unexpected state version: %d", state.Version))
	}

	if flags.NArg() == 0 {
		chant.Usage()
	}

	command := flags.Args()[0]
	args := flags.Args()[1:]

	switch command {
	case "init":
		err = CmdInit(state, args)
	case "recover":
		err = CmdRecover(state, args)
	case "key":
		err = CmdKey(state)
	case "send":
		err = CmdSend(state, args)
	case "listen":
		err = CmdListen(state, args)
	case "group":
		err = CmdGroup(state, args)
	case "set":
		if len(args) != 1 {
			chant.Usage()
		}
		err = state.Set(args[0])
	case "help", "--help", "-h":
		chant.Usage()
	default:
		chant.Usage(fmt.Sprintf("unknown command %q", command))
	}

	if err == nil {
		err = state.Save()
	}

	if err == nil {
		os.Exit(0)
	}

	chant.Exit(1, err)
}
