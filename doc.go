/*
Package deluge provides a typed client for the Deluge Web UI JSON-RPC API.

Highlights:
  - Session management with cookie persistence across calls
  - Generic Call dispatcher plus convenience wrappers for common methods
  - Daemon-side rejections returned as envelope values, transport failures as Go errors
  - Base64 JSON torrent upload with a streaming multipart alternative

Quick start:

	import (
	    "context"
	    "log"

	    deluge "github.com/jfxdev/go-deluge"
	)

	func main() {
	    client, err := deluge.New(deluge.Config{
	        URL:      "http://localhost:8112",
	        Password: "deluge",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := context.Background()
	    if _, err := client.Login(ctx); err != nil {
	        log.Fatal(err)
	    }
	    defer client.Close()

	    // List all torrents
	    _, _ = client.TorrentsStatus(ctx, nil)
	}
*/
package deluge
