package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps topics in memory. When Retention is non-zero only the
// newest Retention records of a topic are kept; when MaxAge is non-zero
// older records are dropped. Either way the oldest go first.
type MemoryStore struct {
	Retention int
	MaxAge    time.Duration

	lock   sync.Mutex
	topics map[string]*memTopic
	now    func() time.Time
}

type memTopic struct {
	seq     int64
	records []Record
}

func NewMemoryStore(retention int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		Retention: retention,
		MaxAge:    maxAge,
		topics:    make(map[string]*memTopic),
		now:       time.Now,
	}
}

// eject drops expired records.
// WARNING: the store MUST be locked before calling eject.
func (s *MemoryStore) eject(t *memTopic) {
	if s.MaxAge > 0 {
		cutoff := s.now().Add(-s.MaxAge)
		// records are stored in order.
		i := sort.Search(len(t.records), func(i int) bool {
			return t.records[i].Received.After(cutoff)
		})
		if i > 0 {
			t.records = append([]Record(nil), t.records[i:]...)
		}
	}

	if s.Retention > 0 && len(t.records) > s.Retention {
		t.records = append([]Record(nil), t.records[len(t.records)-s.Retention:]...)
	}
}

func (s *MemoryStore) Append(ctx context.Context, topic string, payload []byte) (*Record, error) {
	if err := checkAppend(topic, payload); err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.topics[topic]
	if !ok {
		t = &memTopic{}
		s.topics[topic] = t
	}

	t.seq++
	record := Record{
		ID:       uuid.New(),
		Topic:    topic,
		Seq:      t.seq,
		Received: s.now(),
		Payload:  append([]byte(nil), payload...),
	}
	t.records = append(t.records, record)
	s.eject(t)

	return &record, nil
}

func (s *MemoryStore) Since(ctx context.Context, topic string, after int64, limit int) ([]Record, int, error) {
	if err := CheckTopic(topic); err != nil {
		return nil, 0, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.topics[topic]
	if !ok {
		return nil, 0, nil
	}
	s.eject(t)

	start := sort.Search(len(t.records), func(i int) bool {
		return t.records[i].Seq > after
	})

	end := len(t.records)
	if limit > 0 && end-start > limit {
		end = start + limit
	}

	// Records are never modified once appended, so the copy may share payloads.
	records := append([]Record(nil), t.records[start:end]...)
	return records, len(t.records) - end, nil
}
