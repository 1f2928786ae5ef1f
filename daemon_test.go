package deluge

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// rpcCall is a decoded request as the fake daemon saw it.
type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int64             `json:"id"`
}

// fakeDaemon answers JSON-RPC calls from a per-method reply queue and
// records every call it receives. Replies may contain the __ID__ token,
// which is substituted with the request id so tests exercise the echo.
type fakeDaemon struct {
	mu      sync.Mutex
	calls   []rpcCall
	bodies  []string
	cookies []string
	replies map[string][]string
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{replies: make(map[string][]string)}
}

// reply queues raw envelope bodies for a method, consumed in order.
func (d *fakeDaemon) reply(method string, envelopes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[method] = append(d.replies[method], envelopes...)
}

func (d *fakeDaemon) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var call rpcCall
		if err := json.Unmarshal(raw, &call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		d.mu.Lock()
		d.calls = append(d.calls, call)
		d.bodies = append(d.bodies, string(raw))
		d.cookies = append(d.cookies, r.Header.Get("Cookie"))
		var reply string
		if queue := d.replies[call.Method]; len(queue) > 0 {
			reply = queue[0]
			d.replies[call.Method] = queue[1:]
		}
		d.mu.Unlock()

		if call.Method == "auth.login" {
			http.SetCookie(w, &http.Cookie{Name: "_session_id", Value: "deadbeef", Path: "/"})
		}

		w.Header().Set("Content-Type", "application/json")
		if reply == "" {
			fmt.Fprintf(w, `{"result": null, "error": null, "id": %d}`, call.ID)
			return
		}
		fmt.Fprint(w, strings.ReplaceAll(reply, "__ID__", strconv.FormatInt(call.ID, 10)))
	}
}

func (d *fakeDaemon) methods() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.Method
	}
	return out
}

func (d *fakeDaemon) count(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (d *fakeDaemon) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// lastCall returns the most recent call for a method.
func (d *fakeDaemon) lastCall(t *testing.T, method string) rpcCall {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.calls) - 1; i >= 0; i-- {
		if d.calls[i].Method == method {
			return d.calls[i]
		}
	}
	t.Fatalf("no call recorded for %s", method)
	return rpcCall{}
}

// bodyAt returns the raw request body of call n (0-based).
func (d *fakeDaemon) bodyAt(n int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n >= len(d.bodies) {
		return ""
	}
	return d.bodies[n]
}

// cookieAt returns the Cookie header the daemon saw on call n (0-based).
func (d *fakeDaemon) cookieAt(n int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n >= len(d.cookies) {
		return ""
	}
	return d.cookies[n]
}

// okEnvelope wraps a raw JSON result into a successful envelope.
func okEnvelope(result string) string {
	return fmt.Sprintf(`{"result": %s, "error": null, "id": __ID__}`, result)
}

// errEnvelope wraps a message and code into a declined envelope.
func errEnvelope(message string, code int64) string {
	return fmt.Sprintf(`{"result": null, "error": {"message": %q, "code": %d}, "id": __ID__}`, message, code)
}

// scriptLogin queues the replies for a straight login: credentials accepted
// and the Web UI already bound to a host.
func (d *fakeDaemon) scriptLogin() {
	d.reply("auth.login", okEnvelope("true"))
	d.reply("web.connected", okEnvelope("true"))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{URL: srv.URL, Password: "secret"})
	require.NoError(t, err)
	return client, srv
}
