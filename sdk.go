package deluge

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// GetTorrentsStatus queries core.get_torrents_status. filter narrows by
// status field (e.g. {"state": "Seeding"}) and keys limits the returned
// fields; nil means no filter and all fields.
func (c *Client) GetTorrentsStatus(ctx context.Context, filter map[string]any, keys []string) (*Response, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	if keys == nil {
		keys = []string{}
	}
	return c.Call(ctx, "core.get_torrents_status", filter, keys)
}

// TorrentsStatus runs GetTorrentsStatus and narrows the payload into typed
// statuses keyed by info-hash.
func (c *Client) TorrentsStatus(ctx context.Context, filter map[string]any) (map[string]TorrentStatus, error) {
	resp, err := c.GetTorrentsStatus(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.Errorf("get_torrents_status declined: %s", resp.Error.Message)
	}

	out := make(map[string]TorrentStatus)
	if err := resp.DecodeResult(&out); err != nil {
		return nil, errors.Wrap(err, "decoding torrents status")
	}
	return out, nil
}

// PauseTorrent pauses a torrent by info-hash.
func (c *Client) PauseTorrent(ctx context.Context, infoHash string) (*Response, error) {
	return c.Call(ctx, "core.pause_torrent", infoHash)
}

// ResumeTorrent resumes a paused torrent by info-hash.
func (c *Client) ResumeTorrent(ctx context.Context, infoHash string) (*Response, error) {
	return c.Call(ctx, "core.resume_torrent", infoHash)
}

// RemoveTorrent removes a torrent, deleting the downloaded data as well when
// removeData is set. An unknown info-hash comes back as an envelope error.
func (c *Client) RemoveTorrent(ctx context.Context, infoHash string, removeData bool) (*Response, error) {
	return c.Call(ctx, "core.remove_torrent", infoHash, removeData)
}

// GetLabels lists the labels defined in the Label plugin.
func (c *Client) GetLabels(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "label.get_labels")
}

// SetLabel assigns a label to a torrent. Labels are lowercased, matching
// how the plugin stores them.
func (c *Client) SetLabel(ctx context.Context, infoHash, label string) (*Response, error) {
	return c.Call(ctx, "label.set_torrent", infoHash, strings.ToLower(label))
}

// AddLabel registers a label with the Label plugin. The daemon reporting
// that the label already exists is tolerated and returned in the envelope;
// any other daemon rejection is promoted to an error.
func (c *Client) AddLabel(ctx context.Context, label string) (*Response, error) {
	resp, err := c.Call(ctx, "label.add", strings.ToLower(label))
	if err != nil {
		return nil, err
	}
	if resp.Error != nil && !strings.Contains(resp.Error.Message, "Label already exists") {
		return resp, errors.Errorf("error adding label: %s", resp.Error.Message)
	}
	return resp, nil
}

// GetPlugins lists enabled and available Web UI plugins.
func (c *Client) GetPlugins(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "web.get_plugins")
}

// GetTorrentFiles returns the file tree of a torrent.
func (c *Client) GetTorrentFiles(ctx context.Context, infoHash string) (*Response, error) {
	return c.Call(ctx, "web.get_torrent_files", infoHash)
}

// CheckConnected reports whether the Web UI is bound to a deluged host.
func (c *Client) CheckConnected(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "web.connected")
}

// GetHosts lists the deluged hosts known to the Web UI.
func (c *Client) GetHosts(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "web.get_hosts")
}

// Hosts runs GetHosts and narrows the positional host arrays into Host
// values.
func (c *Client) Hosts(ctx context.Context) ([]Host, error) {
	resp, err := c.GetHosts(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.Errorf("get_hosts declined: %s", resp.Error.Message)
	}

	var hosts []Host
	if err := resp.DecodeResult(&hosts); err != nil {
		return nil, errors.Wrap(err, "decoding host list")
	}
	return hosts, nil
}

// GetHostStatus reports the status of a deluged host by id.
func (c *Client) GetHostStatus(ctx context.Context, hostID string) (*Response, error) {
	return c.Call(ctx, "web.get_host_status", hostID)
}

// ConnectToHost binds the Web UI to a deluged host by id.
func (c *Client) ConnectToHost(ctx context.Context, hostID string) (*Response, error) {
	return c.Call(ctx, "web.connect", hostID)
}

// TestListenPort reports whether the daemon's active listen port is open.
func (c *Client) TestListenPort(ctx context.Context) (bool, error) {
	resp, err := c.Call(ctx, "core.test_listen_port")
	if err != nil {
		return false, err
	}
	return resp.resultTruthy(), nil
}

// GetFreeSpace returns the free bytes on the daemon's download location.
func (c *Client) GetFreeSpace(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "core.get_free_space")
}

// GetPathSize returns the byte size of a path on the daemon host, -1 when
// the path does not exist.
func (c *Client) GetPathSize(ctx context.Context, path string) (*Response, error) {
	return c.Call(ctx, "core.get_path_size", path)
}

// GetLibtorrentVersion reports the daemon's libtorrent version.
func (c *Client) GetLibtorrentVersion(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "core.get_libtorrent_version")
}

// GetListenPort reports the daemon's active listen port.
func (c *Client) GetListenPort(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "core.get_listen_port")
}
