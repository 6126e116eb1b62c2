package relay

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/commandquery/chant/jtp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls a relay Server. Zero values select the defaults.
type Config struct {
	PathPrefix     string        // mounted path, ending in "/"
	MaxMessageSize int64         // largest envelope accepted
	Rate           float64       // publishes per second per client; zero disables limiting
	Burst          int           // publishes allowed in a burst
	ClientIdle     time.Duration // how long an idle publisher's bucket is kept
	MaxWait        time.Duration // longest a poll may wait
	PageSize       int           // most records returned per poll
}

const (
	DefaultMaxMessageSize = 64 * 1024
	DefaultMaxWait        = 25 * time.Second
	DefaultPageSize       = 256
)

// Server exposes a Store over HTTP.
type Server struct {
	store    Store
	config   Config
	limiter  *limiter
	hub      *hub
	metrics  *metrics
	registry *prometheus.Registry
}

func NewServer(store Store, config Config) *Server {
	if !strings.HasSuffix(config.PathPrefix, "/") {
		config.PathPrefix += "/"
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.MaxWait <= 0 {
		config.MaxWait = DefaultMaxWait
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		store:    store,
		config:   config,
		limiter:  newLimiter(config.Rate, config.Burst, config.ClientIdle),
		hub:      newHub(),
		metrics:  newMetrics(registry),
		registry: registry,
	}
}

// Handler returns the relay's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	prefix := s.config.PathPrefix

	mux.Handle("POST "+prefix+"topic/{topic}", s.admit(jtp.Handle[jtp.Raw, PublishResponse](s.handlePublish)))
	mux.Handle("GET "+prefix+"topic/{topic}", jtp.Handle[jtp.None, Feed](s.handleFetch))
	mux.Handle("GET "+prefix+"metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// admit rate limits publishers and bounds the body before it's read.
func (s *Server) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientAddr(r), time.Now()) {
			s.metrics.published.WithLabelValues("limited").Inc()
			jtp.LogError(w, http.StatusTooManyRequests, fmt.Errorf("publish from %s rate limited", clientAddr(r)))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxMessageSize)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, payload *jtp.Raw) (*PublishResponse, error) {
	topic := r.PathValue("topic")

	record, err := s.store.Append(r.Context(), topic, *payload)
	if err != nil {
		s.metrics.published.WithLabelValues("rejected").Inc()
		if errors.Is(err, ErrInvalidTopic) || errors.Is(err, ErrEmptyPayload) {
			return nil, jtp.BadRequestError(err)
		}
		return nil, err
	}

	s.metrics.published.WithLabelValues("accepted").Inc()
	s.metrics.bytes.Add(float64(len(record.Payload)))
	s.hub.notify(topic)

	return &PublishResponse{ID: record.ID, Seq: record.Seq}, nil
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request, _ *jtp.None) (*Feed, error) {
	topic := r.PathValue("topic")
	if err := CheckTopic(topic); err != nil {
		return nil, jtp.BadRequestError(err)
	}

	query := r.URL.Query()

	var after int64
	if v := query.Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return nil, jtp.BadRequestError(fmt.Errorf("invalid cursor %q", v))
		}
		after = n
	}

	var wait time.Duration
	if v := query.Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, jtp.BadRequestError(fmt.Errorf("invalid wait %q", v))
		}
		wait = min(d, s.config.MaxWait)
	}

	ctx := r.Context()
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		// Take the wakeup channel before reading, so an append between the
		// read and the wait is not missed.
		woken := s.hub.wait(topic)

		records, pending, err := s.store.Since(ctx, topic, after, s.config.PageSize)
		if err != nil {
			return nil, err
		}

		if len(records) > 0 || timeout == nil {
			s.metrics.delivered.Add(float64(len(records)))
			if records == nil {
				records = []Record{}
			}
			return &Feed{Records: records, Pending: pending}, nil
		}

		s.metrics.polls.Inc()
		select {
		case <-woken:
			s.metrics.polls.Dec()
		case <-timeout:
			s.metrics.polls.Dec()
			return &Feed{Records: []Record{}}, nil
		case <-ctx.Done():
			s.metrics.polls.Dec()
			log.Printf("poll on %s abandoned: %v", topic, ctx.Err())
			return nil, nil
		}
	}
}
