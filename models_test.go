package deluge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCErrorUnmarshalObject(t *testing.T) {
	var e RPCError
	require.NoError(t, json.Unmarshal([]byte(`{"message": "Not authenticated", "code": 1}`), &e))
	assert.Equal(t, "Not authenticated", e.Message)
	assert.Equal(t, int64(1), e.Code)
	assert.Equal(t, "Not authenticated", e.String())
}

func TestRPCErrorUnmarshalString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `"something broke"`, "something broke"},
		{"trailing bracket", `"InvalidTorrentError: torrent already in session]"`, "InvalidTorrentError: torrent already in session"},
		{"bracket and space", `"boom] "`, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e RPCError
			require.NoError(t, json.Unmarshal([]byte(tt.in), &e))
			assert.Equal(t, tt.want, e.Message)
			assert.Equal(t, int64(0), e.Code)
		})
	}
}

func TestParseTorrentState(t *testing.T) {
	tests := []struct {
		in      string
		want    TorrentState
		wantErr bool
	}{
		{"Seeding", TorrentStateSeeding, false},
		{"seeding", TorrentStateSeeding, false},
		{"DOWNLOADING", TorrentStateDownloading, false},
		{"Paused", TorrentStatePaused, false},
		{"Moving", TorrentStateMoving, false},
		{"stopped", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTorrentState(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostUnmarshal(t *testing.T) {
	var h Host
	require.NoError(t, json.Unmarshal([]byte(`["abc123", "127.0.0.1", 58846, "localclient"]`), &h))
	assert.Equal(t, Host{ID: "abc123", Address: "127.0.0.1", Port: 58846, User: "localclient"}, h)
}

func TestHostUnmarshalWithoutUser(t *testing.T) {
	var h Host
	require.NoError(t, json.Unmarshal([]byte(`["abc123", "127.0.0.1", 58846]`), &h))
	assert.Equal(t, Host{ID: "abc123", Address: "127.0.0.1", Port: 58846}, h)
}

func TestHostUnmarshalTooShort(t *testing.T) {
	var h Host
	require.Error(t, json.Unmarshal([]byte(`["abc123"]`), &h))
}

func TestUploadOptionsArgs(t *testing.T) {
	tests := []struct {
		name string
		opts UploadOptions
		want map[string]any
	}{
		{
			"empty options omit everything",
			UploadOptions{},
			map[string]any{},
		},
		{
			"explicit false is still sent",
			UploadOptions{AddPaused: Bool(false)},
			map[string]any{"add_paused": false},
		},
		{
			"all fields",
			UploadOptions{
				AddPaused:        Bool(true),
				SeedMode:         Bool(true),
				AutoManaged:      Bool(false),
				DownloadLocation: "/downloads",
			},
			map[string]any{
				"add_paused":        true,
				"seed_mode":         true,
				"auto_managed":      false,
				"download_location": "/downloads",
			},
		},
		{
			"label is not a daemon option",
			UploadOptions{Label: "linux-isos"},
			map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.args())
		})
	}
}

func TestResponseDecodeResult(t *testing.T) {
	resp := &Response{Result: json.RawMessage(`{"free": 1024}`)}

	var out struct {
		Free int64 `json:"free"`
	}
	require.NoError(t, resp.DecodeResult(&out))
	assert.Equal(t, int64(1024), out.Free)
}

func TestResponseDecodeResultEmpty(t *testing.T) {
	resp := &Response{}
	require.Error(t, resp.DecodeResult(&struct{}{}))
}

func TestResponseResultBool(t *testing.T) {
	assert.True(t, (&Response{Result: json.RawMessage(`true`)}).ResultBool())
	assert.False(t, (&Response{Result: json.RawMessage(`false`)}).ResultBool())
	assert.False(t, (&Response{Result: json.RawMessage(`"yes"`)}).ResultBool())
	assert.False(t, (&Response{}).ResultBool())
}

func TestResponseResultTruthy(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   bool
	}{
		{"true", `true`, true},
		{"method list", `["core.add_torrent_file"]`, true},
		{"object", `{"a": 1}`, true},
		{"nonzero number", `7`, true},
		{"false", `false`, false},
		{"null", `null`, false},
		{"zero", `0`, false},
		{"empty string", `""`, false},
		{"empty list", `[]`, false},
		{"empty object", `{}`, false},
		{"missing", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{}
			if tt.result != "" {
				resp.Result = json.RawMessage(tt.result)
			}
			assert.Equal(t, tt.want, resp.resultTruthy())
		})
	}
}

func TestTorrentStatusDecode(t *testing.T) {
	raw := `{
		"name": "ubuntu-24.04.iso",
		"state": "Seeding",
		"progress": 100.0,
		"ratio": 1.5,
		"eta": 0,
		"label": "linux-isos",
		"total_size": 4294967296,
		"total_done": 4294967296,
		"download_payload_rate": 0,
		"upload_payload_rate": 524288,
		"num_seeds": 12,
		"num_peers": 3,
		"save_path": "/downloads",
		"is_finished": true,
		"time_added": 1755900000.0
	}`

	var status TorrentStatus
	require.NoError(t, json.Unmarshal([]byte(raw), &status))
	assert.Equal(t, "ubuntu-24.04.iso", status.Name)
	assert.Equal(t, "Seeding", status.State)
	assert.Equal(t, 100.0, status.Progress)
	assert.Equal(t, int64(524288), status.UploadPayloadRate)
	assert.True(t, status.IsFinished)

	state, err := ParseTorrentState(status.State)
	require.NoError(t, err)
	assert.Equal(t, TorrentStateSeeding, state)
}
