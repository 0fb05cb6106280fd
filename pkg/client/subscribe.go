package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"
)

// EventLedgerChanged is pushed after any committed ledger mutation.
const EventLedgerChanged = "ledger_changed"

// Event is one message from the server's event socket.
type Event struct {
	Type      string          `json:"type"`
	Module    string          `json:"module,omitempty"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// socketURL maps the API base URL onto the websocket endpoint.
func (c *Client) socketURL(types []string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/events/ws")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if len(types) > 0 {
		q := u.Query()
		q.Set("types", strings.Join(types, ","))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Subscribe streams server events to fn until ctx ends or the socket drops.
// Control messages (connected, heartbeat) are delivered too. A cancelled ctx
// returns nil.
func (c *Client) Subscribe(ctx context.Context, fn func(Event), types ...string) error {
	target, err := c.socketURL(types)
	if err != nil {
		return err
	}

	header := http.Header{}
	c.authorize(header)

	conn, _, err := websocket.Dial(ctx, target, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("failed to connect event socket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.log.Debug().Str("url", target).Msg("Event socket connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("event socket read failed: %w", err)
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.log.Warn().Err(err).Msg("Ignoring malformed event")
			continue
		}
		fn(event)
	}
}
