package jtp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultClient has no overall timeout; long polls are bounded by the
// request context instead.
var DefaultClient = &http.Client{
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	},
}

// Request represents a HTTP call to a server, and contains the types being sent and received.
type Request[S any, R any] struct {
	Ctx     context.Context
	Client  *http.Client
	Method  string
	URL     string
	Headers http.Header
	Send    *S
	Recv    *R
}

// Call sends a value and receives a response. Values are JSON unless their
// type is Raw.
func Call[S any, R any](ctx context.Context, method string, uri string, headers http.Header, s *S, r *R) error {
	request := Request[S, R]{
		Ctx:     ctx,
		Method:  method,
		URL:     uri,
		Headers: headers,
		Send:    s,
		Recv:    r,
	}

	return DoRequest(&request)
}

func encodeBody(v any) (io.Reader, string, error) {
	if raw, ok := v.(*Raw); ok {
		return bytes.NewReader(*raw), contentBinary, nil
	}

	js, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("unable to marshal json: %v", err)
	}
	return bytes.NewReader(js), contentJSON, nil
}

func DoRequest[S any, R any](r *Request[S, R]) error {
	ctx := r.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader = http.NoBody
	var contentType string

	if r.Send != nil {
		var err error
		if reader, contentType, err = encodeBody(r.Send); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, reader)
	if err != nil {
		return err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if _, ok := any(r.Recv).(*Raw); ok {
		req.Header.Set("Accept", contentBinary)
	} else {
		req.Header.Set("Accept", contentJSON)
	}

	for k, v := range r.Headers {
		for _, val := range v {
			req.Header.Add(k, val)
		}
	}

	client := r.Client
	if client == nil {
		client = DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode}
	}

	if r.Recv == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read response body: %w", err)
	}

	if raw, ok := any(r.Recv).(*Raw); ok {
		*raw = body
		return nil
	}

	if err = json.Unmarshal(body, r.Recv); err != nil {
		return fmt.Errorf("unable to unmarshal response: %w", err)
	}

	return nil
}
