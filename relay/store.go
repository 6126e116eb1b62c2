package relay

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidTopic = errors.New("invalid topic")
	ErrEmptyPayload = errors.New("empty payload")
)

// Store is an append-only log of envelopes per topic.
type Store interface {
	// Append stores payload at the end of topic.
	Append(ctx context.Context, topic string, payload []byte) (*Record, error)

	// Since returns up to limit records of topic with a sequence number
	// greater than after, oldest first, together with the number of
	// records that follow the returned ones.
	Since(ctx context.Context, topic string, after int64, limit int) ([]Record, int, error)
}

// Topics look like NATS subjects: dot separated tokens of letters, digits,
// dashes and underscores.
var topicPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

const maxTopicLength = 255

// CheckTopic reports whether topic is a valid topic name.
func CheckTopic(topic string) error {
	if len(topic) > maxTopicLength || !topicPattern.MatchString(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return nil
}

func checkAppend(topic string, payload []byte) error {
	if err := CheckTopic(topic); err != nil {
		return err
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	return nil
}
