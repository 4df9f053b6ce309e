package progress

import (
	"context"
	"fmt"

	"golang.org/x/net/websocket"

	"github.com/romdeck/romdeck/internal/api"
	"github.com/romdeck/romdeck/internal/models"
)

// WebSocketDialer opens progress channels against the server's
// /ws/progress endpoint, one connection per job URL.
type WebSocketDialer struct {
	client *api.Client
}

// NewWebSocketDialer creates a dialer bound to the given API client's base
// URL and credentials.
func NewWebSocketDialer(client *api.Client) *WebSocketDialer {
	return &WebSocketDialer{client: client}
}

// Dial connects the progress channel for jobURL.
func (d *WebSocketDialer) Dial(ctx context.Context, jobURL string) (ChannelConn, error) {
	wsURL, err := d.client.ProgressURL(jobURL)
	if err != nil {
		return nil, err
	}

	cfg, err := websocket.NewConfig(wsURL, d.client.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to build channel config: %w", err)
	}

	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress channel: %w", err)
	}
	return &wsConn{ws: conn}, nil
}

// wsConn adapts a websocket connection to the ChannelConn interface.
type wsConn struct {
	ws *websocket.Conn
}

// Next reads and decodes one progress frame.
func (c *wsConn) Next() (models.ProgressUpdate, error) {
	var update models.ProgressUpdate
	err := websocket.JSON.Receive(c.ws, &update)
	return update, err
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
