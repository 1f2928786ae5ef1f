package deluge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds requests when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// New builds a client for the Web UI at config.URL. The endpoint is fixed
// for the lifetime of the client; the session starts out DISCONNECTED.
func New(config Config) (*Client, error) {
	endpoint, err := buildURL(config.URL)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}
	config.jar = jar

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	logger := config.Logger
	if logger == nil {
		if config.Debug {
			logger = log.NewWithOptions(os.Stderr, log.Options{
				Level:  log.DebugLevel,
				Prefix: "deluge",
			})
		} else {
			logger = log.New(io.Discard)
		}
	}

	return &Client{
		config:   config,
		endpoint: endpoint,
		state:    StateDisconnected,
		logger:   logger,
	}, nil
}

// buildURL normalizes a Web UI address into its JSON-RPC endpoint, appending
// the json path when the address does not already include it.
func buildURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "invalid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	if !strings.Contains(raw, "json") {
		raw += "json/"
	}
	return strings.TrimRight(raw, "/"), nil
}

// State reports the current session state.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s SessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) jar() http.CookieJar {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.jar
}

func (c *Client) timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.Timeout
}

// Login authenticates against the Web UI with the configured password and,
// when the UI is not already bound to a deluged host, connects it to the
// first known host.
//
// Wrong credentials are a daemon-side rejection: the returned envelope
// carries the error and no Go error is raised. The session stays
// DISCONNECTED until every step succeeds; transport failures leave it
// untouched.
func (c *Client) Login(ctx context.Context) (*Response, error) {
	resp, err := c.attemptLogin(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return resp, nil
	}
	if !resp.resultTruthy() {
		return &Response{Error: &RPCError{Message: "Login failed"}, ID: resp.ID}, nil
	}

	conn, err := c.CheckConnected(ctx)
	if err != nil {
		return nil, err
	}
	if conn.resultTruthy() {
		c.setState(StateConnected)
		return resp, nil
	}

	connected, err := c.connectToFirstHost(ctx)
	if err != nil {
		return nil, err
	}
	if !connected {
		return &Response{Error: &RPCError{Message: "Failed to connect to host"}, ID: resp.ID}, nil
	}

	c.setState(StateConnected)
	return resp, nil
}

func (c *Client) attemptLogin(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "auth.login", c.config.Password)
}

// connectToFirstHost binds the Web UI to the first deluged host it knows
// about, then re-checks the connection.
func (c *Client) connectToFirstHost(ctx context.Context) (bool, error) {
	hosts, err := c.Hosts(ctx)
	if err != nil {
		return false, err
	}
	if len(hosts) == 0 {
		return false, nil
	}

	connResp, err := c.ConnectToHost(ctx, hosts[0].ID)
	if err != nil {
		return false, err
	}
	if connResp.Error != nil || !connResp.resultTruthy() {
		return false, nil
	}

	conn, err := c.CheckConnected(ctx)
	if err != nil {
		return false, err
	}
	return conn.resultTruthy(), nil
}

// Disconnect issues web.disconnect and clears the local session cookie.
//
// The session cookie is shared with anything else logged into the same Web
// UI, browsers included: disconnecting here terminates those sessions too.
// That is how the daemon scopes sessions, not a client artifact.
func (c *Client) Disconnect(ctx context.Context) (*Response, error) {
	resp, err := c.Call(ctx, "web.disconnect")
	if err != nil {
		return nil, err
	}
	c.resetSession()
	return resp, nil
}

// resetSession drops the cookie jar and returns to DISCONNECTED.
func (c *Client) resetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if jar, err := cookiejar.New(nil); err == nil {
		c.config.jar = jar
	}
	c.state = StateDisconnected
}

// Close disconnects with a background context, satisfying io.Closer. A
// client that never connected closes without touching the network.
func (c *Client) Close() error {
	if c.State() == StateDisconnected {
		return nil
	}
	_, err := c.Disconnect(context.Background())
	return err
}

// WithSession runs fn inside a logged-in session and disconnects on every
// exit path, panics included, so no authenticated session outlives the call.
// A daemon-side login refusal is promoted to an error here, since fn never
// gets to run.
func (c *Client) WithSession(ctx context.Context, fn func(*Client) error) error {
	resp, err := c.Login(ctx)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.Errorf("login failed: %s", resp.Error.Message)
	}

	defer func() {
		if _, derr := c.Disconnect(ctx); derr != nil {
			c.logger.Debug("disconnect failed", "error", derr)
		}
	}()

	return fn(c)
}
