package chant

import (
	"context"
	"strings"
)

// ChatMsg is the payload carried by chat envelopes. Chan, when set, is the
// comma separated list of member addresses of a private channel.
type ChatMsg struct {
	Addr   string `cbor:"addr" json:"addr"`
	Handle string `cbor:"handle" json:"handle"`
	Msg    string `cbor:"msg" json:"msg"`
	Chan   string `cbor:"chan,omitempty" json:"chan,omitempty"`
}

// Members returns the addresses listed in Chan.
func (m *ChatMsg) Members() []string {
	var members []string
	for _, addr := range strings.Split(m.Chan, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			members = append(members, addr)
		}
	}
	return members
}

// Publisher delivers an envelope to every subscriber of a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, blob []byte) error
}

// Received is a chat message that decoded and verified.
type Received struct {
	ChatMsg
	Signer []byte
}
