// Package request wraps net/http for the one kind of call the Deluge Web UI
// accepts: an HTTP POST carrying the session cookie.
package request

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Options holds the configuration for a single request.
type Options struct {
	Timeout   time.Duration
	Body      io.Reader
	Headers   map[string]string
	Ctx       context.Context
	CookieJar http.CookieJar
}

// Option applies a setting to Options.
type Option func(*Options)

// WithTimeout bounds the whole request, connection setup included.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithBody sets the request body.
func WithBody(body io.Reader) Option {
	return func(o *Options) {
		o.Body = body
	}
}

// WithHeader adds a single header.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithHeaders adds multiple headers at once.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithContext attaches a context to the request.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Ctx = ctx
	}
}

// WithCookieJar carries cookies across requests. The jar both replays stored
// cookies and captures Set-Cookie responses.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *Options) {
		o.CookieJar = jar
	}
}

// Post executes an HTTP POST against url. Connection-level failures are
// returned raw so the caller can classify them.
func Post(url string, opts ...Option) (*http.Response, error) {
	options := &Options{
		Timeout: 30 * time.Second,
		Ctx:     context.Background(),
	}

	for _, opt := range opts {
		opt(options)
	}

	client := &http.Client{Timeout: options.Timeout}
	if options.CookieJar != nil {
		client.Jar = options.CookieJar
	}

	req, err := http.NewRequestWithContext(options.Ctx, http.MethodPost, url, options.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}

	return client.Do(req)
}
