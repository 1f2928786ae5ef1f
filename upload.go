package deluge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfxdev/go-deluge/request"
	"github.com/pkg/errors"
)

// UploadTorrent reads a .torrent file and adds it to the daemon via
// core.add_torrent_file. The file content travels base64-encoded inside the
// JSON request, the documented upload mechanism; UploadTorrentMultipart is
// the alternate path for Web UI versions that want a form upload.
//
// A missing or unreadable file fails with IO_ERROR before any network
// activity. Daemon-side rejections (bad torrent data, disk full) come back
// in the envelope.
func (c *Client) UploadTorrent(ctx context.Context, path string, opts UploadOptions) (*Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewClientError(ErrorCodeIO, fmt.Sprintf("reading torrent file %s", path), err, true)
	}
	return c.UploadTorrentData(ctx, filepath.Base(path), data, opts)
}

// UploadTorrentData adds raw torrent file content under the given name.
// When opts.Label is set and the upload succeeds, the label is registered
// and assigned to the new torrent in follow-up calls.
func (c *Client) UploadTorrentData(ctx context.Context, name string, data []byte, opts UploadOptions) (*Response, error) {
	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := c.Call(ctx, "core.add_torrent_file", name, encoded, opts.args())
	if err != nil {
		return nil, err
	}
	if resp.Error != nil || opts.Label == "" {
		return resp, nil
	}

	var infoHash string
	if err := resp.DecodeResult(&infoHash); err != nil {
		return resp, errors.Wrap(err, "decoding info-hash from upload result")
	}
	if err := c.applyLabel(ctx, infoHash, opts.Label); err != nil {
		return resp, err
	}
	return resp, nil
}

// applyLabel registers the label if needed and assigns it to the torrent.
func (c *Client) applyLabel(ctx context.Context, infoHash, label string) error {
	if _, err := c.AddLabel(ctx, label); err != nil {
		return err
	}

	resp, err := c.SetLabel(ctx, infoHash, label)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.Errorf("setting label %q: %s", label, resp.Error.Message)
	}
	return nil
}

// UploadTorrents uploads each file in order, returning envelopes keyed by
// file name without extension. The first hard failure aborts the batch;
// envelopes gathered up to that point are returned alongside the error.
func (c *Client) UploadTorrents(ctx context.Context, paths []string, opts UploadOptions) (map[string]*Response, error) {
	results := make(map[string]*Response, len(paths))
	for _, path := range paths {
		resp, err := c.UploadTorrent(ctx, path, opts)
		if err != nil {
			return results, errors.Wrapf(err, "failed to upload %s", filepath.Base(path))
		}
		name := filepath.Base(path)
		results[strings.TrimSuffix(name, filepath.Ext(name))] = resp
	}
	return results, nil
}

// UploadTorrentMultipart streams the torrent file to the Web UI's upload
// endpoint and registers the stored copy with web.add_torrents, yielding the
// same envelope shape as the base64 path. The file is piped into the form
// writer rather than buffered, so large torrents stay off the heap.
//
// Options are forwarded like the base64 path, except Label, which only the
// base64 path applies.
func (c *Client) UploadTorrentMultipart(ctx context.Context, path string, opts UploadOptions) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewClientError(ErrorCodeIO, fmt.Sprintf("reading torrent file %s", path), err, true)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	resp, err := request.Post(c.uploadURL(),
		request.WithContext(ctx),
		request.WithTimeout(c.timeout()),
		request.WithBody(pr),
		request.WithHeader("Content-Type", form.FormDataContentType()),
		request.WithCookieJar(c.jar()),
	)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, string(body))
	}

	var stored struct {
		Success bool     `json:"success"`
		Files   []string `json:"files"`
	}
	if err := json.Unmarshal(body, &stored); err != nil {
		return nil, NewClientError(ErrorCodeProtocol, "upload response is not valid JSON", err, true)
	}
	if !stored.Success || len(stored.Files) == 0 {
		return nil, NewClientError(ErrorCodeProtocol, "upload endpoint rejected the file", nil, true)
	}

	return c.Call(ctx, "web.add_torrents", []map[string]any{{
		"path":    stored.Files[0],
		"options": opts.args(),
	}})
}

// uploadURL derives the multipart endpoint from the JSON-RPC endpoint.
func (c *Client) uploadURL() string {
	return strings.TrimSuffix(c.endpoint, "json") + "upload"
}
