package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/commandquery/chant/jtp"
)

// Client talks to a relay Server. It implements chant.Publisher.
type Client struct {
	base string
	http *http.Client
	wait time.Duration
}

type ClientOption func(*Client)

// WithHTTPClient replaces jtp.DefaultClient.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithWait sets how long each poll made by Subscribe may be held. Zero or
// less selects DefaultMaxWait.
func WithWait(wait time.Duration) ClientOption {
	return func(c *Client) {
		c.wait = wait
	}
}

// NewClient returns a client for the relay mounted at base, for example
// "https://relay.example.com/chant/".
func NewClient(base string, opts ...ClientOption) *Client {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &Client{
		base: base,
		http: jtp.DefaultClient,
		wait: DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.wait <= 0 {
		c.wait = DefaultMaxWait
	}
	return c
}

func (c *Client) topicURL(topic string) string {
	return c.base + "topic/" + url.PathEscape(topic)
}

// Publish appends blob to topic.
func (c *Client) Publish(ctx context.Context, topic string, blob []byte) error {
	_, err := c.PublishRecord(ctx, topic, blob)
	return err
}

// PublishRecord appends blob to topic and returns where it was stored.
func (c *Client) PublishRecord(ctx context.Context, topic string, blob []byte) (*PublishResponse, error) {
	body := jtp.Raw(blob)
	var resp PublishResponse

	err := jtp.DoRequest(&jtp.Request[jtp.Raw, PublishResponse]{
		Ctx:    ctx,
		Client: c.http,
		Method: http.MethodPost,
		URL:    c.topicURL(topic),
		Send:   &body,
		Recv:   &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to publish to %s: %w", topic, err)
	}

	return &resp, nil
}

// Fetch returns the records of topic after the cursor. With a non-zero
// wait the relay holds the request until a record arrives or wait passes.
func (c *Client) Fetch(ctx context.Context, topic string, after int64, wait time.Duration) (*Feed, error) {
	query := url.Values{}
	query.Set("after", fmt.Sprint(after))
	if wait > 0 {
		query.Set("wait", wait.String())
	}

	var feed Feed
	err := jtp.DoRequest(&jtp.Request[jtp.None, Feed]{
		Ctx:    ctx,
		Client: c.http,
		Method: http.MethodGet,
		URL:    c.topicURL(topic) + "?" + query.Encode(),
		Recv:   &feed,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", topic, err)
	}

	return &feed, nil
}

// Subscription delivers the records of a topic in order.
type Subscription struct {
	C <-chan Record

	// ready is closed once the subscriber has caught up with the topic.
	ready chan struct{}

	mu  sync.Mutex
	err error
}

// Ready is closed when every record held at subscription time has been
// delivered.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Err returns the error that ended the subscription, once C is closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe long polls topic from after, which is zero to replay it from
// the start. C is closed when ctx is cancelled or a fetch fails; there is
// no retry.
func (c *Client) Subscribe(ctx context.Context, topic string, after int64) *Subscription {
	ch := make(chan Record)
	sub := &Subscription{C: ch, ready: make(chan struct{})}

	go func() {
		defer close(ch)

		var readyOnce sync.Once
		for {
			feed, err := c.Fetch(ctx, topic, after, c.wait)
			if err != nil {
				if ctx.Err() == nil {
					sub.mu.Lock()
					sub.err = err
					sub.mu.Unlock()
				}
				return
			}

			for _, record := range feed.Records {
				select {
				case ch <- record:
				case <-ctx.Done():
					return
				}
			}

			after = feed.Next(after)

			if feed.Pending == 0 {
				readyOnce.Do(func() { close(sub.ready) })
			}
		}
	}()

	return sub
}
