package feed

import (
	"context"
	"encoding/json"
	"fmt"

	ws "github.com/gorilla/websocket"
)

type Client struct {
	conn *ws.Conn
	seen int // messages known, for dropping appends already in the snapshot
}

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Next blocks for the next event. Appends already covered by the snapshot
// are skipped.
func (c *Client) Next() (Event, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return Event{}, err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return Event{}, fmt.Errorf("decode feed event: %w", err)
		}

		switch ev.Type {
		case EventSnapshot:
			c.seen = len(ev.Messages)
		case EventClear:
			c.seen = 0
		case EventAppend:
			if ev.Index < c.seen {
				continue
			}
			c.seen = ev.Index + 1
		}
		return ev, nil
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
