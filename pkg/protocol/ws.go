package protocol

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

type ClientConfig struct {
	URL    string
	Origin string
	// Reconn is the pause between reconnect attempts.
	Reconn  time.Duration
	OnFrame func(Frame)
}

// Client is a websocket connection to the daemon gateway that redials when
// the server goes away.
type Client struct {
	cfg    ClientConfig
	dialer *ws.Dialer

	mu   sync.Mutex
	conn *ws.Conn
}

func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Reconn <= 0 {
		cfg.Reconn = time.Second
	}
	c := &Client{cfg: cfg, dialer: ws.DefaultDialer}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) dial(ctx context.Context) (*ws.Conn, error) {
	log.Debug("Dialing gateway", "url", c.cfg.URL)

	var hdr http.Header
	if c.cfg.Origin != "" {
		hdr = http.Header{"Origin": {c.cfg.Origin}}
	}
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, hdr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return conn, nil
}

func (c *Client) Send(f Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	log.Debug("Write ws", "type", f.Type)
	return c.conn.WriteMessage(ws.TextMessage, data)
}

// Run reads frames until ctx is done, reconnecting on close.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		c.conn.Close()
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		_, data, err := conn.ReadMessage()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if !IsClosed(err) {
				log.Error("Failed to read", "err", err)
			}
			log.Warn("Trying to reconnect on", "url", c.cfg.URL)
			if err := c.reconnect(ctx); err != nil {
				return nil
			}
			log.Info("Successfully reconnected")
			continue
		}

		f, err := Decode(data)
		if err != nil {
			log.Warn("Failed to parse", "err", err)
			continue
		}
		if c.cfg.OnFrame != nil {
			c.cfg.OnFrame(f)
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			c.conn.Close()
			c.conn = conn
			c.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.Reconn):
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return c.conn.Close()
}

func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
