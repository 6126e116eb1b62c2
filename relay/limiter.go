package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultClientIdle is how long a publisher's bucket is kept after its
// last publish.
const DefaultClientIdle = 10 * time.Minute

// limiter holds a token bucket per publishing client. A nil limiter
// admits every publish.
type limiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu         sync.Mutex
	publishers map[string]*publisher
	swept      time.Time
}

type publisher struct {
	bucket *rate.Limiter
	last   time.Time
}

func newLimiter(rps float64, burst int, idle time.Duration) *limiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idle <= 0 {
		idle = DefaultClientIdle
	}
	return &limiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		idle:       idle,
		publishers: make(map[string]*publisher),
	}
}

// allow spends one token from client's bucket.
func (l *limiter) allow(client string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Forget idle publishers at most once per idle period; a forgotten
	// publisher starts again with a full bucket.
	if now.Sub(l.swept) >= l.idle {
		for addr, p := range l.publishers {
			if now.Sub(p.last) >= l.idle {
				delete(l.publishers, addr)
			}
		}
		l.swept = now
	}

	p, ok := l.publishers[client]
	if !ok {
		p = &publisher{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.publishers[client] = p
	}
	p.last = now

	return p.bucket.AllowN(now, 1)
}

// tracked returns how many publishers hold a bucket.
func (l *limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.publishers)
}
