package chant

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
)

type topicLog struct {
	mu    sync.Mutex
	blobs map[string][][]byte
}

func (l *topicLog) Publish(ctx context.Context, topic string, blob []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.blobs == nil {
		l.blobs = make(map[string][][]byte)
	}
	l.blobs[topic] = append(l.blobs[topic], blob)
	return nil
}

func (l *topicLog) topic(name string) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.blobs[name])
}

func newTestChat(t *testing.T, log *topicLog) (*Chat, *Identity) {
	t.Helper()
	id := mustIdentity(t, Ed25519)
	return NewChat(NewCodec(Ed25519), id, nil, log, "derpy.chat"), id
}

func receiveAll(c *Chat, blobs [][]byte) []*Received {
	var got []*Received
	for _, blob := range blobs {
		if r, ok := c.Receive(blob); ok {
			got = append(got, r)
		}
	}
	return got
}

func TestChatPublic(t *testing.T) {
	log := &topicLog{}
	alice, aliceID := newTestChat(t, log)
	bob, _ := newTestChat(t, log)

	if err := alice.Send(context.Background(), ChatMsg{Handle: "alice", Msg: "hi all"}); err != nil {
		t.Fatal(err)
	}

	got := receiveAll(bob, log.topic("derpy.chat"))
	if len(got) != 1 || got[0].Msg != "hi all" || got[0].Addr != aliceID.Address() {
		t.Fatalf("got %+v", got)
	}

	if h, ok := bob.Roster().Handle(aliceID.Address()); !ok || h != "alice" {
		t.Fatalf("handle = %q", h)
	}
}

func TestChatChannel(t *testing.T) {
	log := &topicLog{}
	alice, aliceID := newTestChat(t, log)
	bob, bobID := newTestChat(t, log)
	eve, _ := newTestChat(t, log)

	channel := aliceID.Address() + "," + bobID.Address()
	if err := alice.Send(context.Background(), ChatMsg{Handle: "alice", Msg: "secret", Chan: channel}); err != nil {
		t.Fatal(err)
	}

	blobs := log.topic("derpy.chat")
	if len(blobs) != 2 {
		t.Fatalf("published %d envelopes", len(blobs))
	}

	for _, c := range []*Chat{alice, bob} {
		got := receiveAll(c, blobs)
		if len(got) != 1 || got[0].Msg != "secret" {
			t.Fatalf("member got %+v", got)
		}
		if chans := c.Roster().Channels(); len(chans) != 1 || chans[0] != channel {
			t.Fatalf("channels = %q", chans)
		}
	}

	if got := receiveAll(eve, blobs); len(got) != 0 {
		t.Fatalf("outsider read %d messages", len(got))
	}
	if len(eve.Roster().Channels()) != 0 {
		t.Fatal("outsider learned the channel")
	}
}

func TestChatBadMember(t *testing.T) {
	log := &topicLog{}
	alice, _ := newTestChat(t, log)

	err := alice.Send(context.Background(), ChatMsg{Msg: "x", Chan: "nope"})
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("got %v", err)
	}
	if len(log.topic("derpy.chat")) != 0 {
		t.Fatal("published despite an invalid member")
	}
}

func TestChatGroup(t *testing.T) {
	log := &topicLog{}
	alice, _ := newTestChat(t, log)
	bob, _ := newTestChat(t, log)
	shared := mustSharedKey(t)

	if err := alice.SendGroup(context.Background(), ChatMsg{Handle: "alice", Msg: "group"}, shared); err != nil {
		t.Fatal(err)
	}

	blobs := log.topic("derpy.chat")
	if got := receiveAll(bob, blobs); len(got) != 0 {
		t.Fatal("read group message without the key")
	}

	bob.Keyring().AddKey(shared)
	if got := receiveAll(bob, blobs); len(got) != 1 || got[0].Msg != "group" {
		t.Fatalf("got %+v", got)
	}
}

// An envelope claiming somebody else's address is dropped even though the
// signature itself is valid.
func TestChatForgedAddress(t *testing.T) {
	log := &topicLog{}
	bob, _ := newTestChat(t, log)
	victim := mustIdentity(t, Ed25519)
	mallory := mustIdentity(t, Ed25519)

	codec := NewCodec(Ed25519)
	blob, err := codec.Encode(ChatMsg{Addr: victim.Address(), Handle: "victim", Msg: "send money"}, mallory.PrivateKey, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := bob.Receive(blob); ok {
		t.Fatal("forged address accepted")
	}
	if _, ok := bob.Roster().Handle(victim.Address()); ok {
		t.Fatal("forged handle recorded")
	}
}

func TestChatNotChat(t *testing.T) {
	log := &topicLog{}
	bob, _ := newTestChat(t, log)
	id := mustIdentity(t, Ed25519)

	blob, err := NewCodec(Ed25519).Encode("just a string", id.PrivateKey, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bob.Receive(blob); ok {
		t.Fatal("non-chat payload accepted")
	}
}

func TestRosterSorted(t *testing.T) {
	r := NewRoster()
	for _, c := range []string{"c", "a", "b", "a", ""} {
		r.Observe(&ChatMsg{Addr: "x", Handle: "h" + c, Chan: c})
	}
	if got := strings.Join(r.Channels(), ","); got != "a,b,c" {
		t.Fatalf("channels = %s", got)
	}
	if h, _ := r.Handle("x"); h != "h" {
		t.Fatalf("latest handle = %q", h)
	}
}

func TestMembers(t *testing.T) {
	m := ChatMsg{Chan: " a, b ,,c "}
	if got := strings.Join(m.Members(), "|"); got != "a|b|c" {
		t.Fatalf("members = %s", got)
	}
}
