package deluge

import (
	"encoding/json"
	"net/http/cookiejar"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Client is a Deluge Web UI JSON-RPC client bound to a single endpoint and
// a single session. One instance holds one cookie jar and one request-id
// counter; independent instances against the same daemon are fully isolated.
type Client struct {
	mu       sync.Mutex
	config   Config
	endpoint string
	state    SessionState
	nextID   atomic.Int64
	logger   *log.Logger
}

// Config contains runtime client settings and credentials. The password is
// held only for the lifetime of the client and never logged.
type Config struct {
	// URL is the base address of the Web UI, e.g. "http://localhost:8112".
	// The JSON-RPC path is derived from it at construction.
	URL      string
	Password string

	// Timeout bounds each request; DefaultTimeout when zero.
	Timeout time.Duration

	// Debug enables request/response logging. Logger overrides the default
	// stderr logger; when both are unset, logging is discarded.
	Debug  bool
	Logger *log.Logger

	jar *cookiejar.Jar
}

// SessionState tracks whether this client holds an authenticated session.
type SessionState string

const (
	StateDisconnected SessionState = "DISCONNECTED"
	StateConnected    SessionState = "CONNECTED"
)

// Response is the {result, error, id} envelope every RPC call produces.
// Exactly one of Result/Error is populated when the daemon answers a call;
// void methods may leave both empty.
type Response struct {
	Result json.RawMessage
	Error  *RPCError
	ID     int64
}

// DecodeResult unmarshals the result payload into v. The payload shape
// varies by RPC method, so narrowing happens here rather than in the
// dispatcher.
func (r *Response) DecodeResult(v any) error {
	if len(r.Result) == 0 {
		return errors.New("response has no result")
	}
	return json.Unmarshal(r.Result, v)
}

// ResultBool reports whether the result is the JSON literal true. A null or
// missing result counts as false.
func (r *Response) ResultBool() bool {
	var b bool
	if len(r.Result) == 0 || json.Unmarshal(r.Result, &b) != nil {
		return false
	}
	return b
}

// resultTruthy mirrors the Web UI's Python truthiness: null, false, zero and
// empty containers are falsy, anything else (a host list, a method list) is
// truthy.
func (r *Response) resultTruthy() bool {
	if len(r.Result) == 0 {
		return false
	}
	switch strings.TrimSpace(string(r.Result)) {
	case "null", "false", "0", `""`, "[]", "{}":
		return false
	}
	return true
}

// RPCError is a daemon-reported failure carried inside an otherwise
// successful response: bad credentials, an unknown info-hash, an
// unauthenticated call. It is data, not a Go error; transport and framing
// failures surface as *ClientError instead.
type RPCError struct {
	Message string `json:"message"`
	Code    int64  `json:"code"`
}

// UnmarshalJSON accepts both the structured {"message", "code"} form and the
// bare-string form older Web UI versions emit. String errors arrive with a
// stray trailing bracket, which is trimmed.
func (e *RPCError) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.Message = strings.TrimSpace(strings.TrimRight(s, "] "))
		e.Code = 0
		return nil
	}

	type plain RPCError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = RPCError(p)
	return nil
}

func (e *RPCError) String() string {
	return e.Message
}

// TorrentState enumerates the states Deluge reports for a torrent.
type TorrentState string

const (
	TorrentStateAllocating  TorrentState = "Allocating"
	TorrentStateChecking    TorrentState = "Checking"
	TorrentStateDownloading TorrentState = "Downloading"
	TorrentStateSeeding     TorrentState = "Seeding"
	TorrentStatePaused      TorrentState = "Paused"
	TorrentStateError       TorrentState = "Error"
	TorrentStateQueued      TorrentState = "Queued"
	TorrentStateMoving      TorrentState = "Moving"
)

var torrentStates = []TorrentState{
	TorrentStateAllocating,
	TorrentStateChecking,
	TorrentStateDownloading,
	TorrentStateSeeding,
	TorrentStatePaused,
	TorrentStateError,
	TorrentStateQueued,
	TorrentStateMoving,
}

// ParseTorrentState matches a state string case-insensitively.
func ParseTorrentState(value string) (TorrentState, error) {
	for _, s := range torrentStates {
		if strings.EqualFold(string(s), value) {
			return s, nil
		}
	}
	return "", errors.Errorf("unknown torrent state %q", value)
}

// TorrentStatus is a subset of the per-torrent fields returned by
// core.get_torrents_status.
type TorrentStatus struct {
	Name                string  `json:"name"`
	State               string  `json:"state"`
	Progress            float64 `json:"progress"`
	Ratio               float64 `json:"ratio"`
	ETA                 int64   `json:"eta"`
	Label               string  `json:"label"`
	TotalSize           int64   `json:"total_size"`
	TotalDone           int64   `json:"total_done"`
	DownloadPayloadRate int64   `json:"download_payload_rate"`
	UploadPayloadRate   int64   `json:"upload_payload_rate"`
	NumSeeds            int64   `json:"num_seeds"`
	NumPeers            int64   `json:"num_peers"`
	SavePath            string  `json:"save_path"`
	IsFinished          bool    `json:"is_finished"`
	TimeAdded           float64 `json:"time_added"`
}

// Host identifies a deluged daemon known to the Web UI. The daemon encodes
// hosts as positional arrays: [id, address, port, user].
type Host struct {
	ID      string
	Address string
	Port    int64
	User    string
}

func (h *Host) UnmarshalJSON(data []byte) error {
	var fields []any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) < 3 {
		return errors.Errorf("host entry has %d fields, want at least 3", len(fields))
	}

	h.ID, _ = fields[0].(string)
	h.Address, _ = fields[1].(string)
	if port, ok := fields[2].(float64); ok {
		h.Port = int64(port)
	}
	if len(fields) > 3 {
		h.User, _ = fields[3].(string)
	}
	return nil
}

// UploadOptions are forwarded verbatim to the daemon's add-torrent call; no
// validation happens locally, invalid combinations come back as envelope
// errors. Unset fields are omitted so the daemon's defaults apply.
//
// Label is not part of the daemon call itself: it is applied through the
// Label plugin after the torrent is added.
type UploadOptions struct {
	AddPaused        *bool
	SeedMode         *bool
	AutoManaged      *bool
	DownloadLocation string
	Label            string
}

// args builds the options object for core.add_torrent_file and friends.
func (o UploadOptions) args() map[string]any {
	args := make(map[string]any)
	if o.AddPaused != nil {
		args["add_paused"] = *o.AddPaused
	}
	if o.SeedMode != nil {
		args["seed_mode"] = *o.SeedMode
	}
	if o.AutoManaged != nil {
		args["auto_managed"] = *o.AutoManaged
	}
	if o.DownloadLocation != "" {
		args["download_location"] = o.DownloadLocation
	}
	return args
}

// Bool fills optional UploadOptions fields inline.
func Bool(v bool) *bool { return &v }

// MagnetLink holds the fields of a parsed magnet URI.
type MagnetLink struct {
	Hash        string
	DisplayName string
	Trackers    []string
	ExactLength string
}
