package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSince(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	for i := range 5 {
		record, err := s.Append(ctx, "derpy.chat", []byte(fmt.Sprint(i)))
		require.NoError(t, err)
		require.Equal(t, int64(i+1), record.Seq)
	}

	records, pending, err := s.Since(ctx, "derpy.chat", 0, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "0", string(records[0].Payload))
	require.Equal(t, 3, pending)

	records, pending, err = s.Since(ctx, "derpy.chat", 2, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, int64(3), records[0].Seq)
	require.Zero(t, pending)

	records, pending, err = s.Since(ctx, "other", 0, 0)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, pending)
}

func TestMemoryStoreRetention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3, 0)

	for i := range 10 {
		_, err := s.Append(ctx, "t", []byte{byte(i)})
		require.NoError(t, err)
	}

	records, _, err := s.Since(ctx, "t", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, int64(8), records[0].Seq)

	// Sequence numbers keep counting after ejection.
	record, err := s.Append(ctx, "t", []byte{10})
	require.NoError(t, err)
	require.Equal(t, int64(11), record.Seq)
}

func TestMemoryStoreMaxAge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	_, err := s.Append(ctx, "t", []byte("old"))
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = s.Append(ctx, "t", []byte("new"))
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	records, _, err := s.Since(ctx, "t", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "new", string(records[0].Payload))
}

func TestMemoryStoreRejects(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	_, err := s.Append(ctx, "bad topic", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidTopic)

	_, err = s.Append(ctx, "t", nil)
	require.ErrorIs(t, err, ErrEmptyPayload)

	_, _, err = s.Since(ctx, "a..b", 0, 0)
	require.ErrorIs(t, err, ErrInvalidTopic)
}

func TestMemoryStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	payload := []byte("abc")
	_, err := s.Append(ctx, "t", payload)
	require.NoError(t, err)
	payload[0] = 'X'

	records, _, err := s.Since(ctx, "t", 0, 0)
	require.NoError(t, err)
	require.Equal(t, "abc", string(records[0].Payload))
}

func TestCheckTopic(t *testing.T) {
	for _, topic := range []string{"derpy.chat4", "a", "a-b_c.d"} {
		require.NoError(t, CheckTopic(topic), topic)
	}
	for _, topic := range []string{"", ".", "a.", ".a", "a b", "a/b", "a*"} {
		require.ErrorIs(t, CheckTopic(topic), ErrInvalidTopic, topic)
	}
}

func TestLimiter(t *testing.T) {
	now := time.Now()
	l := newLimiter(1, 2, time.Minute)

	require.True(t, l.allow("a", now))
	require.True(t, l.allow("a", now))
	require.False(t, l.allow("a", now))
	require.True(t, l.allow("b", now))
	require.True(t, l.allow("a", now.Add(time.Second)))

	var disabled *limiter
	require.Nil(t, newLimiter(0, 1, 0))
	require.True(t, disabled.allow("a", now))
}

func TestLimiterForgetsIdlePublishers(t *testing.T) {
	now := time.Now()
	l := newLimiter(0.001, 1, time.Minute)

	require.True(t, l.allow("a", now))
	require.False(t, l.allow("a", now))
	require.True(t, l.allow("b", now.Add(30*time.Second)))
	require.Equal(t, 2, l.tracked())

	// "a" has been idle a minute and is forgotten, "b" is kept.
	require.True(t, l.allow("c", now.Add(time.Minute)))
	require.Equal(t, 2, l.tracked())

	// A forgotten publisher comes back with a full bucket.
	require.True(t, l.allow("a", now.Add(time.Minute)))
	require.False(t, l.allow("b", now.Add(time.Minute)))
}
