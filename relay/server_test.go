package relay

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/commandquery/chant"
	"github.com/commandquery/chant/jtp"
	"github.com/stretchr/testify/require"
)

func testRelay(t *testing.T, config Config) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(NewServer(NewMemoryStore(0, 0), config).Handler())
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, WithHTTPClient(srv.Client()), WithWait(2*time.Second))
}

func TestPublishFetch(t *testing.T) {
	_, client := testRelay(t, Config{})
	ctx := context.Background()

	resp, err := client.PublishRecord(ctx, "derpy.chat", []byte{0, 1, 2})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Seq)

	require.NoError(t, client.Publish(ctx, "derpy.chat", []byte{3}))

	feed, err := client.Fetch(ctx, "derpy.chat", 0, 0)
	require.NoError(t, err)
	require.Len(t, feed.Records, 2)
	require.Equal(t, resp.ID, feed.Records[0].ID)
	require.Equal(t, []byte{0, 1, 2}, feed.Records[0].Payload)
	require.Zero(t, feed.Pending)
	require.Equal(t, int64(2), feed.Next(0))

	feed, err = client.Fetch(ctx, "derpy.chat", 2, 0)
	require.NoError(t, err)
	require.Empty(t, feed.Records)
	require.Equal(t, int64(2), feed.Next(2))
}

func TestPaging(t *testing.T) {
	_, client := testRelay(t, Config{PageSize: 2})
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, client.Publish(ctx, "t", []byte{byte(i)}))
	}

	feed, err := client.Fetch(ctx, "t", 0, 0)
	require.NoError(t, err)
	require.Len(t, feed.Records, 2)
	require.Equal(t, 3, feed.Pending)
}

func TestLongPollWakes(t *testing.T) {
	_, client := testRelay(t, Config{})
	ctx := context.Background()

	done := make(chan *Feed)
	go func() {
		feed, err := client.Fetch(ctx, "t", 0, 5*time.Second)
		if err != nil {
			close(done)
			return
		}
		done <- feed
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Publish(ctx, "t", []byte("wake")))

	select {
	case feed, ok := <-done:
		require.True(t, ok, "fetch failed")
		require.Len(t, feed.Records, 1)
		require.Equal(t, "wake", string(feed.Records[0].Payload))
	case <-time.After(3 * time.Second):
		t.Fatal("long poll was not woken")
	}
}

func TestLongPollTimesOut(t *testing.T) {
	_, client := testRelay(t, Config{MaxWait: 100 * time.Millisecond})

	start := time.Now()
	feed, err := client.Fetch(context.Background(), "t", 0, time.Minute)
	require.NoError(t, err)
	require.Empty(t, feed.Records)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestPublishRejects(t *testing.T) {
	srv, client := testRelay(t, Config{MaxMessageSize: 8})
	ctx := context.Background()

	err := client.Publish(ctx, "t", bytes.Repeat([]byte{1}, 9))
	require.ErrorIs(t, err, jtp.ErrTooLarge)

	err = client.Publish(ctx, "t", nil)
	require.ErrorIs(t, err, jtp.ErrBadRequest)

	err = client.Publish(ctx, "bad*topic", []byte{1})
	require.ErrorIs(t, err, jtp.ErrBadRequest)

	resp, err := srv.Client().Get(srv.URL + "/topic/t?after=-1")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/topic/t?wait=soon")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	_, client := testRelay(t, Config{Rate: 0.001, Burst: 2})
	ctx := context.Background()

	require.NoError(t, client.Publish(ctx, "t", []byte{1}))
	require.NoError(t, client.Publish(ctx, "t", []byte{2}))
	require.ErrorIs(t, client.Publish(ctx, "t", []byte{3}), jtp.ErrTooManyRequests)

	// Reading is not limited.
	_, err := client.Fetch(ctx, "t", 0, 0)
	require.NoError(t, err)
}

func TestPathPrefix(t *testing.T) {
	srv := httptest.NewServer(NewServer(NewMemoryStore(0, 0), Config{PathPrefix: "/chant"}).Handler())
	defer srv.Close()

	client := NewClient(srv.URL+"/chant", WithHTTPClient(srv.Client()))
	require.NoError(t, client.Publish(context.Background(), "t", []byte{1}))

	wrong := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	require.ErrorIs(t, wrong.Publish(context.Background(), "t", []byte{1}), jtp.ErrNotFound)
}

func TestMetrics(t *testing.T) {
	srv, client := testRelay(t, Config{})
	require.NoError(t, client.Publish(context.Background(), "t", []byte{1, 2, 3}))

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `chant_relay_publish_total{outcome="accepted"} 1`)
	require.Contains(t, string(body), "chant_relay_publish_bytes_total 3")
}

func TestSubscribeReplay(t *testing.T) {
	_, client := testRelay(t, Config{PageSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := range 5 {
		require.NoError(t, client.Publish(ctx, "t", []byte{byte(i)}))
	}

	sub := client.Subscribe(ctx, "t", 0)
	for i := range 5 {
		record := <-sub.C
		require.Equal(t, int64(i+1), record.Seq)
	}

	select {
	case <-sub.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription never caught up")
	}

	require.NoError(t, client.Publish(ctx, "t", []byte("live")))
	record := <-sub.C
	require.Equal(t, "live", string(record.Payload))

	cancel()
	for range sub.C {
	}
	require.NoError(t, sub.Err())
}

func TestSubscribeZeroWaitLongPolls(t *testing.T) {
	var fetches atomic.Int64
	handler := NewServer(NewMemoryStore(0, 0), Config{}).Handler()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fetches.Add(1)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithWait(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, client.Publish(ctx, "t", []byte{1}))

	sub := client.Subscribe(ctx, "t", 0)
	record := <-sub.C
	require.Equal(t, int64(1), record.Seq)

	select {
	case <-sub.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription never caught up")
	}

	time.Sleep(300 * time.Millisecond)
	require.LessOrEqual(t, fetches.Load(), int64(2))

	cancel()
	for range sub.C {
	}
}

func TestSubscribeEndsOnError(t *testing.T) {
	_, client := testRelay(t, Config{})
	sub := client.Subscribe(context.Background(), "bad*topic", 0)

	for range sub.C {
	}
	require.ErrorIs(t, sub.Err(), jtp.ErrBadRequest)
}

// TestChatOverRelay runs the chat layer end to end through the relay.
func TestChatOverRelay(t *testing.T) {
	_, client := testRelay(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	codec := chant.NewCodec(chant.Ed25519)
	alice := mustTestIdentity(t)
	bob := mustTestIdentity(t)

	aliceChat := chant.NewChat(codec, alice, nil, client, "derpy.chat")
	bobChat := chant.NewChat(codec, bob, nil, client, "derpy.chat")

	require.NoError(t, aliceChat.Send(ctx, chant.ChatMsg{Handle: "alice", Msg: "hello"}))
	require.NoError(t, aliceChat.Send(ctx, chant.ChatMsg{Handle: "alice", Msg: "psst", Chan: bob.Address()}))

	sub := client.Subscribe(ctx, "derpy.chat", 0)

	var got []string
	for len(got) < 2 {
		record := <-sub.C
		if msg, ok := bobChat.Receive(record.Payload); ok {
			got = append(got, msg.Msg)
		}
	}
	require.Equal(t, []string{"hello", "psst"}, got)

	handle, ok := bobChat.Roster().Handle(alice.Address())
	require.True(t, ok)
	require.Equal(t, "alice", handle)
	require.Equal(t, []string{bob.Address()}, bobChat.Roster().Channels())
}

func mustTestIdentity(t *testing.T) *chant.Identity {
	t.Helper()
	id, err := chant.NewIdentity(chant.Ed25519, rand.Reader)
	require.NoError(t, err)
	return id
}
