package relay

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// PGStore keeps topics in PostgreSQL, so that several relays can share a
// log and records survive a restart.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Migrate creates the relay schema if it doesn't exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	// Without arguments Exec uses the simple protocol, which accepts the
	// whole script at once.
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("unable to migrate relay schema: %w", err)
	}
	return nil
}

func (s *PGStore) Append(ctx context.Context, topic string, payload []byte) (*Record, error) {
	if err := checkAppend(topic, payload); err != nil {
		return nil, err
	}

	record := Record{
		ID:      uuid.New(),
		Topic:   topic,
		Payload: payload,
	}

	// The topic row serialises appenders, which keeps Seq gapless.
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, "insert into chant.topic (topic, seq) values ($1, 1) on conflict (topic) do update set seq = chant.topic.seq + 1 returning seq",
			topic).Scan(&record.Seq)
		if err != nil {
			return fmt.Errorf("unable to allocate sequence: %w", err)
		}

		err = tx.QueryRow(ctx, "insert into chant.record (record, topic, seq, payload) values ($1, $2, $3, $4) returning received",
			record.ID, record.Topic, record.Seq, record.Payload).Scan(&record.Received)
		if err != nil {
			return fmt.Errorf("unable to insert record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (s *PGStore) Since(ctx context.Context, topic string, after int64, limit int) ([]Record, int, error) {
	if err := CheckTopic(topic); err != nil {
		return nil, 0, err
	}

	query := "select record, topic, seq, received, payload from chant.record where topic=$1 and seq>$2 order by seq"
	args := []any{topic, after}
	if limit > 0 {
		query += " limit $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to fetch records: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Record])
	if err != nil {
		return nil, 0, fmt.Errorf("unable to read records: %w", err)
	}

	last := after
	if n := len(records); n > 0 {
		last = records[n-1].Seq
	}

	var pending int
	err = s.pool.QueryRow(ctx, "select count(*) from chant.record where topic=$1 and seq>$2", topic, last).Scan(&pending)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count pending records: %w", err)
	}

	return records, pending, nil
}

// Prune deletes records older than maxAge and all but the newest retention
// records of every topic. A zero limit is not applied.
func (s *PGStore) Prune(ctx context.Context, retention int, maxAge time.Duration) (int64, error) {
	var deleted int64

	if maxAge > 0 {
		tag, err := s.pool.Exec(ctx, "delete from chant.record where received < $1", time.Now().Add(-maxAge))
		if err != nil {
			return deleted, fmt.Errorf("unable to expire records: %w", err)
		}
		deleted += tag.RowsAffected()
	}

	if retention > 0 {
		tag, err := s.pool.Exec(ctx, "delete from chant.record r using chant.topic t where r.topic = t.topic and r.seq <= t.seq - $1", retention)
		if err != nil {
			return deleted, fmt.Errorf("unable to trim topics: %w", err)
		}
		deleted += tag.RowsAffected()
	}

	return deleted, nil
}
