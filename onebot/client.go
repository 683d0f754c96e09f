package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/types"
)

// ErrNotConnected is returned by actions issued while no connection is up.
var ErrNotConnected = errors.New("onebot: not connected")

// maxFrameBytes bounds inbound frames; get_msg replies may carry images.
const maxFrameBytes = 32 << 20

// Config configures the forward WebSocket connection.
type Config struct {
	URL               string        `json:"url" yaml:"url"`
	AccessToken       string        `json:"access_token,omitempty" yaml:"access_token"`
	ReconnectInterval time.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	ActionTimeout     time.Duration `json:"action_timeout" yaml:"action_timeout"`
}

// DefaultConfig returns defaults for a local implementation.
func DefaultConfig() Config {
	return Config{
		URL:               "ws://127.0.0.1:3001",
		ReconnectInterval: 5 * time.Second,
		ActionTimeout:     30 * time.Second,
	}
}

// Handler receives one converted message. It runs on its own goroutine.
type Handler func(ctx context.Context, msg *types.Message)

// Client is a OneBot v11 forward WebSocket client.
type Client struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan *frame

	wg sync.WaitGroup
}

// NewClient creates a Client. handler may be nil for send-only use.
func NewClient(cfg Config, handler Handler, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = def.ReconnectInterval
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = def.ActionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With(zap.String("component", "onebot")),
		pending: make(map[string]chan *frame),
	}
}

// Run connects and serves events until ctx is done, reconnecting after
// ReconnectInterval when the connection drops. In-flight handlers are
// waited for before Run returns.
func (c *Client) Run(ctx context.Context) error {
	defer c.wg.Wait()

	for {
		err := c.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("delay", c.cfg.ReconnectInterval))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// serve runs one connection until it fails or ctx is done.
func (c *Client) serve(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.setConn(conn)
	c.logger.Info("connected", zap.String("url", c.cfg.URL))

	defer func() {
		c.setConn(nil)
		_ = conn.Close(websocket.StatusNormalClosure, "closing")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("onebot read: %w", err)
		}
		c.route(ctx, data)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ActionTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("onebot dial: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	if conn == nil {
		// 连接断开时唤醒所有等待中的动作
		for echo, ch := range c.pending {
			close(ch)
			delete(c.pending, echo)
		}
	}
}

// route delivers action responses and dispatches message events.
func (c *Client) route(ctx context.Context, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Debug("dropping undecodable frame", zap.Error(err))
		return
	}

	if f.isResponse() {
		c.mu.Lock()
		ch, ok := c.pending[f.Echo]
		delete(c.pending, f.Echo)
		c.mu.Unlock()
		if ok {
			ch <- &f
		}
		return
	}

	if !f.IsMessage() || c.handler == nil {
		return
	}

	event := f.Event
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		msg := c.buildMessage(ctx, &event)
		c.handler(ctx, msg)
	}()
}

// buildMessage converts an event and expands reply segments.
func (c *Client) buildMessage(ctx context.Context, e *Event) *types.Message {
	msg, replyIDs := e.ToMessage()
	for _, id := range replyIDs {
		quoted, err := c.GetMessage(ctx, id)
		if err != nil {
			c.logger.Debug("failed to fetch quoted message", zap.String("message_id", id), zap.Error(err))
			quoted = &types.Message{ID: id}
		}
		msg.Segments = append(msg.Segments, &types.QuotedSegment{MessageID: id, Chain: quoted.Segments})
	}
	return msg
}

// Call issues an action and waits for its response data.
func (c *Client) Call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	echo := uuid.NewString()
	body, err := json.Marshal(map[string]any{
		"action": action,
		"params": params,
		"echo":   echo,
	})
	if err != nil {
		return nil, fmt.Errorf("onebot %s: encode: %w", action, err)
	}

	ch := make(chan *frame, 1)
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[echo] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, echo)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ActionTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, body); err != nil {
		return nil, fmt.Errorf("onebot %s: write: %w", action, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("onebot %s: %w", action, ctx.Err())
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("onebot %s: %w", action, ErrNotConnected)
		}
		if resp.Status == "failed" || resp.RetCode != 0 {
			return nil, fmt.Errorf("onebot %s: retcode %d: %s", action, resp.RetCode, resp.Wording)
		}
		return resp.Data, nil
	}
}

// GetMessage fetches a message by id through get_msg.
func (c *Client) GetMessage(ctx context.Context, id string) (*types.Message, error) {
	data, err := c.Call(ctx, "get_msg", map[string]any{"message_id": ID(id)})
	if err != nil {
		return nil, err
	}
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("onebot get_msg: decode: %w", err)
	}
	if e.MessageID == "" {
		e.MessageID = ID(id)
	}
	msg, _ := e.ToMessage()
	return msg, nil
}
