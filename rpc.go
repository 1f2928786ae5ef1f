package deluge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jfxdev/go-deluge/request"
)

var rpcHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

// Deluge reports unauthenticated calls with this error code.
const notAuthenticatedCode = 1

// rpcRequest is the wire envelope for a single call.
type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int64  `json:"id"`
}

// rpcEnvelope mirrors the daemon's response with key presence preserved, so
// a body missing either key can be told apart from an explicit null.
type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
	ID     int64           `json:"id"`
}

// Call sends a JSON-RPC request for method with positional params and
// returns the daemon's result envelope. It is the generic escape hatch for
// any method the convenience wrappers do not cover.
//
// A populated envelope error is a normal outcome - the daemon answered and
// declined - and is returned as a value. Go errors are reserved for the
// round-trip itself failing: unreachable endpoint (*ClientError with a
// connection code), timeout, non-2xx status, or a malformed envelope.
func (c *Client) Call(ctx context.Context, method string, params ...any) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if params == nil {
		params = []any{}
	}

	id := c.nextID.Add(1)
	payload, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: id})
	if err != nil {
		return nil, NewClientError(ErrorCodeProtocol, fmt.Sprintf("encoding %s request", method), err, true)
	}

	c.logger.Debug("rpc call", "method", method, "id", id)

	resp, err := request.Post(c.endpoint,
		request.WithContext(ctx),
		request.WithTimeout(c.timeout()),
		request.WithBody(bytes.NewReader(payload)),
		request.WithHeaders(rpcHeaders),
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

	return c.decodeResponse(method, id, body)
}

// decodeResponse parses a 2xx body into a Response, enforcing the envelope
// shape: valid JSON with both result and error keys present.
func (c *Client) decodeResponse(method string, id int64, body []byte) (*Response, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, NewClientError(ErrorCodeProtocol, fmt.Sprintf("%s response is not valid JSON", method), err, true)
	}
	for _, key := range []string{"result", "error"} {
		if _, ok := keys[key]; !ok {
			return nil, NewClientError(ErrorCodeProtocol, fmt.Sprintf("%s response is missing the %q key", method, key), nil, true)
		}
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewClientError(ErrorCodeProtocol, fmt.Sprintf("decoding %s response envelope", method), err, true)
	}

	out := &Response{ID: envelope.ID}
	if !isJSONNull(envelope.Result) {
		out.Result = envelope.Result
	}
	if !isJSONNull(envelope.Error) {
		var rpcErr RPCError
		if err := json.Unmarshal(envelope.Error, &rpcErr); err != nil {
			return nil, NewClientError(ErrorCodeProtocol, fmt.Sprintf("decoding %s error field", method), err, true)
		}
		out.Error = &rpcErr
	}

	// Calls are serial, so the echoed id is diagnostic only.
	if out.ID != id {
		c.logger.Debug("response id does not echo request id", "method", method, "sent", id, "received", out.ID)
	}

	if out.Error != nil {
		c.logger.Debug("rpc declined", "method", method, "id", out.ID, "code", out.Error.Code, "message", out.Error.Message)
		if isNotAuthenticated(out.Error) {
			c.setState(StateDisconnected)
		}
	}

	return out, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

func isNotAuthenticated(e *RPCError) bool {
	return e.Code == notAuthenticatedCode ||
		strings.Contains(strings.ToLower(e.Message), "not authenticated")
}
