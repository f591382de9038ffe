package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"Conflux/internal/domain/models"
	drepo "Conflux/internal/domain/repository"
	"Conflux/pkg/util"

	"github.com/gorilla/websocket"
)

// Client implements a RecordStream backed by the Extraction Service
// WebSocket feed.
type Client struct {
	token          string
	websocketURL   string
	channels       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new Extraction Service RecordStream.
func New(token, websocketURL string, channels []string, reconnectDelay, pingInterval time.Duration) drepo.RecordStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		channels:       channels,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("extraction connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("extraction: connected")
	return nil
}

// Subscribe subscribes to the configured extraction channels.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("extraction not connected")
	}
	for _, ch := range c.channels {
		msg := map[string]string{"type": "subscribe", "channel": ch}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
		log.Printf("extraction: subscribed %s", ch)
	}
	return nil
}

// wire frame: {"type":"extraction","data":[...IngestRequest...]}
type frame struct {
	Type string                 `json:"type"`
	Data []models.IngestRequest `json:"data"`
}

// Read streams extraction records and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.ExtractionRecord, <-chan error) {
	records := make(chan *models.ExtractionRecord, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(records)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("extraction conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("extraction read: %w", err)
					return
				}
				var f frame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore non-extraction frames
					continue
				}
				if f.Type != "extraction" {
					continue
				}
				for i := range f.Data {
					req := f.Data[i]
					observedAt := util.ParseTimeDefault(req.ObservedAt, time.Now())
					select {
					case records <- req.Record(observedAt):
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return records, errs
}

// Reconnect closes and re-establishes the connection after the configured
// delay, then resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	c.connected = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) IsConnected() bool { return c.connected }
