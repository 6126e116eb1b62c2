// Command chantd runs a chant relay: an append-only topic log that chant
// clients publish envelopes to and long poll.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commandquery/chant"
	"github.com/commandquery/chant/relay"
)

// openStore returns the configured store and a function that releases it.
func openStore(ctx context.Context) (relay.Store, func(), error) {
	if Config.DatabaseDSN == "" {
		log.Printf("using in-memory store (retention %d, max age %v)", Config.Retention, Config.MaxAge)
		return relay.NewMemoryStore(Config.Retention, Config.MaxAge), func() {}, nil
	}

	pool, err := startPGXPool(ctx, Config.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	store := relay.NewPGStore(pool)
	if err = store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	go prune(ctx, store)

	return store, pool.Close, nil
}

// prune periodically trims the database to the retention limits.
func prune(ctx context.Context, store *relay.PGStore) {
	ticker := time.NewTicker(Config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx, Config.Retention, Config.MaxAge)
			if err != nil {
				log.Printf("prune failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("pruned %d records", n)
			}
		}
	}
}

func run() error {
	if err := initConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, release, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	server := relay.NewServer(store, relay.Config{
		PathPrefix:     Config.PathPrefix,
		MaxMessageSize: Config.MaxMessageSize,
		Rate:           Config.Rate,
		Burst:          Config.Burst,
		ClientIdle:     Config.ClientIdle,
		MaxWait:        Config.MaxWait,
	})

	httpServer := &http.Server{
		Addr:              Config.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdown); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s%s", Config.Listen, Config.PathPrefix)
	if err = httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		chant.Exit(1, err)
	}
}
