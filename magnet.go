package deluge

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ParseMagnetLink validates a magnet URI and extracts its info-hash and
// metadata.
func ParseMagnetLink(magnetURI string) (*MagnetLink, error) {
	if !strings.HasPrefix(magnetURI, "magnet:?") {
		return nil, errors.New("invalid magnet link format")
	}

	values, err := url.ParseQuery(strings.TrimPrefix(magnetURI, "magnet:?"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse magnet link query")
	}

	magnet := &MagnetLink{
		DisplayName: values.Get("dn"),
		Trackers:    values["tr"],
		ExactLength: values.Get("xl"),
	}
	magnet.Hash = strings.TrimPrefix(values.Get("xt"), "urn:btih:")
	if magnet.Hash == "" {
		return nil, errors.New("magnet link has no info-hash")
	}

	return magnet, nil
}

// AddTorrentMagnet adds a torrent from a magnet URI via
// core.add_torrent_magnet. The URI is validated locally first, so a
// malformed link never reaches the daemon.
func (c *Client) AddTorrentMagnet(ctx context.Context, magnetURI string, opts UploadOptions) (*Response, error) {
	if _, err := ParseMagnetLink(magnetURI); err != nil {
		return nil, err
	}
	return c.Call(ctx, "core.add_torrent_magnet", magnetURI, opts.args())
}
