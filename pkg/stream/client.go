// Package stream is the realtime client for the detection backend:
// it pushes encoded camera frames over a WebSocket and delivers
// detection results, scene narrations and drop notices through
// callbacks. One frame in, one message back; the backend sheds load
// by skipping frames rather than queueing them.
package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/argus-vision/go-argus/pkg/detect"
)

// ConnectionState describes the client's connection lifecycle.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client streams frames to the detection backend.
type Client struct {
	config *Config
	logger *slog.Logger
	url    string

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     ConnectionState
	params    detect.Params
	cancelCtx context.CancelFunc

	// Callbacks
	onResult    func(*Result)
	onScene     func(*Scene)
	onSkipped   func(*Skip)
	onError     func(error)
	onReconnect func()

	// Counters
	framesSent       atomic.Int64
	messagesReceived atomic.Int64
	reconnects       atomic.Int64
}

// NewClient creates a detection stream client for the given backend.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.ServerURL = serverURL
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	socketURL, err := detectSocketURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		logger: cfg.Logger.With("component", "stream"),
		url:    socketURL,
		state:  StateDisconnected,
		params: cfg.Params,
	}, nil
}

// detectSocketURL converts the backend base URL into the socket URL.
func detectSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("stream: parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("stream: unsupported scheme %q in server URL", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws/detect"
	}
	return u.String(), nil
}

// Connect dials the backend and, when a token is configured, performs
// the auth handshake before returning.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.Timeout,
	}

	c.logger.Info("connecting to detection stream", "url", c.url)

	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		if resp != nil {
			return NewConnectionError(
				fmt.Sprintf("dial failed with status %d", resp.StatusCode),
				err,
				resp.StatusCode >= 500,
			)
		}
		return NewConnectionError("dial failed", err, true)
	}

	if c.config.Token != "" {
		if err := c.authenticate(conn); err != nil {
			conn.Close()
			c.mu.Lock()
			c.state = StateDisconnected
			c.mu.Unlock()
			return err
		}
	}

	msgCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.cancelCtx = cancel
	c.mu.Unlock()

	go c.readLoop(msgCtx)

	c.logger.Info("connected to detection stream")

	return nil
}

// authenticate runs the token handshake on a fresh connection.
func (c *Client) authenticate(conn *websocket.Conn) error {
	if err := conn.WriteJSON(authMessage{Type: msgAuth, Token: c.config.Token}); err != nil {
		return NewConnectionError("send auth failed", err, true)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.config.Timeout))
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return NewConnectionError("read auth reply failed", err, true)
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch msg.Type {
	case msgAuthSuccess:
		return nil
	case msgAuthError:
		if msg.Message != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg.Message)
		}
		return ErrAuthFailed
	default:
		return fmt.Errorf("%w: unexpected %q reply", ErrAuthFailed, msg.Type)
	}
}

// Close gracefully closes the connection and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return nil
	}

	if c.cancelCtx != nil {
		c.cancelCtx()
	}

	if c.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		c.conn.Close()
		c.conn = nil
	}

	c.state = StateDisconnected
	c.logger.Info("disconnected from detection stream")

	return nil
}

// IsConnected returns true if connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateConnected
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SendFrame submits one encoded JPEG frame for detection. The result
// arrives on the OnResult callback; under load the backend may answer
// with a skip notice instead.
func (c *Client) SendFrame(frame []byte) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}

	c.mu.RLock()
	conn := c.conn
	state := c.state
	params := c.params
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	msg := frameMessage{
		Type:      msgFrame,
		Frame:     base64.StdEncoding.EncodeToString(frame),
		Timestamp: float64(time.Now().UnixMilli()) / 1000.0,
		Params:    params,
	}

	c.mu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteJSON(msg)
	c.mu.Unlock()

	if err != nil {
		return NewConnectionError("send frame failed", err, true)
	}

	c.framesSent.Add(1)
	return nil
}

// UpdateParams changes the inference parameters for subsequent frames.
func (c *Client) UpdateParams(p detect.Params) {
	c.mu.Lock()
	c.params = p
	c.mu.Unlock()
}

// Params returns the inference parameters currently in effect.
func (c *Client) Params() detect.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// Stats returns cumulative client counters.
func (c *Client) Stats() Stats {
	return Stats{
		FramesSent:       c.framesSent.Load(),
		MessagesReceived: c.messagesReceived.Load(),
		Reconnects:       c.reconnects.Load(),
	}
}

// OnResult sets the detection result callback.
func (c *Client) OnResult(fn func(*Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// OnScene sets the scene narration callback.
func (c *Client) OnScene(fn func(*Scene)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onScene = fn
}

// OnSkipped sets the frame-drop callback.
func (c *Client) OnSkipped(fn func(*Skip)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSkipped = fn
}

// OnError sets the error callback.
func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// OnReconnect sets the callback invoked after a successful automatic
// reconnect. Trackers should be reset here since the backend has lost
// all frame history.
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnect = fn
}

// readLoop processes incoming socket messages until the connection
// drops or Close cancels the context.
func (c *Client) readLoop(ctx context.Context) {
	redial := false
	defer func() {
		c.mu.Lock()
		if c.state == StateConnected {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		if redial {
			c.scheduleReconnect(ctx)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("stream closed by backend")
			} else {
				c.logger.Error("stream read failed", "error", err)
				c.emitError(NewConnectionError("read failed", err, true))
			}
			redial = true
			return
		}

		c.messagesReceived.Add(1)

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("unparseable stream message", "error", err)
			continue
		}

		c.handleMessage(&msg)
	}
}

// scheduleReconnect re-dials on a fixed delay until it succeeds, the
// client is closed, or the backend rejects our token.
func (c *Client) scheduleReconnect(ctx context.Context) {
	if !c.config.AutoReconnect {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.ReconnectDelay):
			}

			c.reconnects.Add(1)
			c.logger.Info("reconnecting to detection stream")

			err := c.Connect(context.Background())
			if err == nil {
				c.emitReconnect()
				return
			}
			if IsAuthFailure(err) {
				c.logger.Error("reconnect aborted, token rejected", "error", err)
				c.emitError(err)
				return
			}
			c.logger.Warn("reconnect failed", "error", err)
		}
	}()
}

// handleMessage dispatches a single backend message.
func (c *Client) handleMessage(msg *serverMessage) {
	switch msg.Type {
	case msgDetection:
		res := &Result{
			Detections:  detect.FromWire(msg.Detections),
			Timestamp:   msg.Timestamp,
			LatencyMS:   msg.LatencyMS,
			FPS:         msg.FPS,
			QueueSize:   msg.QueueSize,
			Performance: msg.Performance,
		}
		if msg.Image != nil {
			res.Image = *msg.Image
		}
		c.emitResult(res)

	case msgSceneDescription:
		scene := &Scene{
			Description: msg.Description,
			Timestamp:   msg.Timestamp,
			FrameCount:  msg.FrameCount,
			TimeSpan:    msg.TimeSpan,
		}
		if msg.Img != "" {
			img, err := base64.StdEncoding.DecodeString(msg.Img)
			if err != nil {
				c.logger.Warn("undecodable scene image", "error", err)
			} else {
				scene.Image = img
			}
		}
		c.emitScene(scene)

	case msgFrameSkipped:
		c.emitSkipped(&Skip{
			Reason:     msg.Reason,
			QueueSize:  msg.QueueSize,
			AvgLatency: msg.AvgLatency,
		})

	case msgAuthSuccess:
		// Handshake already consumed this when a token is set.

	case msgError:
		c.emitError(&ServerError{Message: msg.Message})

	default:
		c.logger.Debug("ignoring stream message", "type", msg.Type)
	}
}

// Emit helpers

func (c *Client) emitResult(res *Result) {
	c.mu.RLock()
	fn := c.onResult
	c.mu.RUnlock()
	if fn != nil {
		fn(res)
	}
}

func (c *Client) emitScene(scene *Scene) {
	c.mu.RLock()
	fn := c.onScene
	c.mu.RUnlock()
	if fn != nil {
		fn(scene)
	}
}

func (c *Client) emitSkipped(skip *Skip) {
	c.mu.RLock()
	fn := c.onSkipped
	c.mu.RUnlock()
	if fn != nil {
		fn(skip)
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	fn := c.onError
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (c *Client) emitReconnect() {
	c.mu.RLock()
	fn := c.onReconnect
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
