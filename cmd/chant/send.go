package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/commandquery/chant"
	"github.com/commandquery/chant/relay"
)

// openChat builds a chat bound to the configured relay and topic.
func openChat(state *State, client *relay.Client, opts ...chant.Option) (*chant.Chat, error) {
	id, err := state.Identity()
	if err != nil {
		return nil, err
	}

	ring, err := state.Keyring(id)
	if err != nil {
		return nil, err
	}

	codec := chant.NewCodec(id.Suite, opts...)
	return chant.NewChat(codec, id, ring, client, state.Properties.CurrentTopic()), nil
}

// CmdSend publishes a message. With --to it is encrypted for each listed
// address; with --group it is encrypted under the group key; otherwise
// anybody on the topic can read it.
func CmdSend(state *State, args []string) error {
	flags := flag.NewFlagSet("send", flag.ContinueOnError)
	to := flags.String("to", "", "comma separated addresses of the channel members")
	group := flags.String("group", "", "send to a group")
	handle := flags.String("as", "", "handle to send as")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *to != "" && *group != "" {
		return fmt.Errorf("--to and --group are mutually exclusive")
	}

	text := strings.Join(flags.Args(), " ")
	if text == "" {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("unable to read message: %w", err)
		}
		text = strings.TrimSpace(string(input))
	}
	if text == "" {
		return fmt.Errorf("empty message")
	}

	if *handle == "" {
		*handle = state.Properties.Handle
	}

	client := relay.NewClient(state.Properties.RelayURL())
	chat, err := openChat(state, client)
	if err != nil {
		return err
	}

	msg := chant.ChatMsg{Handle: *handle, Msg: text, Chan: *to}
	ctx := context.Background()

	if *group != "" {
		key, err := state.GroupKey(*group)
		if err != nil {
			return err
		}
		return chat.SendGroup(ctx, msg, key)
	}

	return chat.Send(ctx, msg)
}
