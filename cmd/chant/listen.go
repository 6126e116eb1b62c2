package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/commandquery/chant"
	"github.com/commandquery/chant/relay"
)

// CmdListen prints the messages on the topic that this identity can read,
// replaying the topic from the start unless --after is given.
func CmdListen(state *State, args []string) error {
	flags := flag.NewFlagSet("listen", flag.ContinueOnError)
	after := flags.Int64("after", 0, "skip records up to this sequence number")
	debug := flags.Bool("debug", false, "log envelopes that could not be read")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var opts []chant.Option
	if *debug {
		opts = append(opts, chant.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	client := relay.NewClient(state.Properties.RelayURL())
	chat, err := openChat(state, client, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sub := client.Subscribe(ctx, state.Properties.CurrentTopic(), *after)
	ready := sub.Ready()

	for {
		select {
		case record, ok := <-sub.C:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return sub.Err()
			}

			msg, ok := chat.Receive(record.Payload)
			if !ok {
				continue
			}
			printMessage(record, msg)

		case <-ready:
			fmt.Fprintln(os.Stderr, "-- caught up --")
			ready = nil
		}
	}
}

func printMessage(record relay.Record, msg *chant.Received) {
	addr := msg.Addr
	if len(addr) > 8 {
		addr = addr[:8]
	}

	where := ""
	if msg.Chan != "" {
		where = " [private]"
	}

	fmt.Printf("%s %s (%s)%s: %s\n", record.Received.Local().Format("15:04"), msg.Handle, addr, where, msg.Msg)
}
