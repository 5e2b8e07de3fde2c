package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client defaults, used when the matching ClientConfig field is zero.
const (
	defaultPath             = "/api/websocket"
	defaultMaxMessageSize   = 16 << 20
	defaultPingInterval     = 30 * time.Second
	defaultRequestTimeout   = 10 * time.Second
	defaultReconnectInitial = 1 * time.Second
	defaultReconnectMax     = 60 * time.Second

	// reconnectFactor grows the delay between reconnect attempts.
	reconnectFactor = 1.5
)

// ClientConfig configures a websocket Client.
type ClientConfig struct {
	// BaseURL is the server's http(s) URL, e.g. http://homeassistant.local:8123.
	BaseURL     string
	AccessToken string

	Path             string
	MaxMessageSize   int64
	PingInterval     time.Duration
	RequestTimeout   time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = defaultReconnectInitial
	}
	if c.ReconnectMax < c.ReconnectInitial {
		c.ReconnectMax = max(defaultReconnectMax, c.ReconnectInitial)
	}
}

// Client is a DataSource backed by the Home Assistant websocket API.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Events are applied to the embedded Store by a single reader goroutine.
//
// Reconnection:
//   - Start keeps a connection open until Close is called.
//   - A failed or lost connection is retried with exponential backoff,
//     from ReconnectInitial up to ReconnectMax.
//   - While disconnected, Connected reports false and reads return the
//     last known data.
type Client struct {
	*Store

	cfg    ClientConfig
	wsURL  string
	dialer *websocket.Dialer
	logger Logger

	// mu guards the live connection and the requests waiting on it.
	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  int
	pending map[int]chan response

	writeMu sync.Mutex

	haVersion  atomic.Value // string
	sessions   atomic.Uint64
	reconnects atomic.Uint64

	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Ensure Client implements DataSource.
var _ DataSource = (*Client)(nil)

// NewClient creates a client. It does not connect until Start is called.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.applyDefaults()

	wsURL, err := WebSocketURL(cfg.BaseURL, cfg.Path)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Store:   NewStore(),
		cfg:     cfg,
		wsURL:   wsURL,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.RequestTimeout},
		logger:  noopLogger{},
		pending: make(map[int]chan response),
	}
	c.haVersion.Store("")
	return c, nil
}

// WebSocketURL turns a server base URL into its websocket API URL.
// http becomes ws and https becomes wss; ws and wss are kept as given.
func WebSocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Start connects in the background and keeps the connection alive until
// Close is called or ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(c.runCtx)
}

// Close stops the client and waits for the connection to shut down.
func (c *Client) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.done
	return nil
}

// HAVersion returns the Home Assistant version reported at login.
func (c *Client) HAVersion() string {
	v, _ := c.haVersion.Load().(string) //nolint:errcheck // always a string
	return v
}

// Reconnects returns how many times the connection was re-established.
func (c *Client) Reconnects() uint64 {
	return c.reconnects.Load()
}

// RefreshTags reloads the tag cache with tag/list.
func (c *Client) RefreshTags(ctx context.Context) error {
	raw, err := c.request(ctx, map[string]any{"type": cmdListTags})
	if err != nil {
		return fmt.Errorf("listing tags: %w", err)
	}

	var tags []RawTag
	if err := json.Unmarshal(raw, &tags); err != nil {
		return fmt.Errorf("decoding tags: %w", err)
	}
	c.ReplaceTags(tags)
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	backoff := c.cfg.ReconnectInitial
	for attempt := 0; ; attempt++ {
		c.SetConnectionState(StateConnecting)

		established, err := c.session(ctx)
		if ctx.Err() != nil {
			c.SetConnectionState(StateDisconnected)
			c.logger.Info("home assistant client stopped", "url", c.wsURL)
			return
		}

		if errors.Is(err, ErrAuthInvalid) {
			c.SetConnectionState(StateError)
		} else {
			c.SetConnectionState(StateDisconnected)
		}

		if established {
			backoff = c.cfg.ReconnectInitial
		}
		c.logger.Warn("home assistant connection failed, retrying",
			"url", c.wsURL,
			"error", err,
			"attempt", attempt+1,
			"backoff", backoff.String(),
		)

		select {
		case <-ctx.Done():
			c.SetConnectionState(StateDisconnected)
			return
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * reconnectFactor)
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

// session runs one connection from dial to disconnect. established reports
// whether the connection got as far as being usable.
func (c *Client) session(ctx context.Context) (established bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dialing %s: %w", c.wsURL, err)
	}
	defer conn.Close()
	conn.SetReadLimit(c.cfg.MaxMessageSize)

	if err := c.authenticate(conn); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.detach(conn)

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(conn) }()

	stop := func() error {
		conn.Close()
		return <-readErr
	}

	if err := c.bootstrap(ctx); err != nil {
		stop() //nolint:errcheck // bootstrap error is the one worth reporting
		return false, err
	}

	c.SetConnectionState(StateConnected)
	if c.sessions.Add(1) > 1 {
		c.reconnects.Add(1)
	}
	c.logger.Info("connected to home assistant",
		"url", c.wsURL,
		"ha_version", c.HAVersion(),
		"entities", len(c.Entities()),
	)

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.writeClose(conn)
			stop() //nolint:errcheck // shutting down
			return true, nil
		case err := <-readErr:
			return true, err
		case <-ticker.C:
			if _, err := c.request(ctx, map[string]any{"type": msgPing}); err != nil {
				stop() //nolint:errcheck // ping error is the one worth reporting
				return true, fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// authenticate performs the auth_required / auth / auth_ok exchange.
func (c *Client) authenticate(conn *websocket.Conn) error {
	deadline := time.Now().Add(c.cfg.RequestTimeout)
	conn.SetReadDeadline(deadline)           //nolint:errcheck // surfaced by the read
	defer conn.SetReadDeadline(time.Time{})  //nolint:errcheck // cleared for the reader
	conn.SetWriteDeadline(deadline)          //nolint:errcheck // surfaced by the write
	defer conn.SetWriteDeadline(time.Time{}) //nolint:errcheck // set per write later

	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("reading auth_required: %w", err)
	}
	if msg.Type != msgAuthRequired {
		return fmt.Errorf("%w: expected %s, got %q", ErrProtocol, msgAuthRequired, msg.Type)
	}

	if err := conn.WriteJSON(authMessage{Type: msgAuth, AccessToken: c.cfg.AccessToken}); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}

	msg = inbound{}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("reading auth result: %w", err)
	}
	switch msg.Type {
	case msgAuthOK:
		c.haVersion.Store(msg.HAVersion)
		return nil
	case msgAuthInvalid:
		return fmt.Errorf("%w: %s", ErrAuthInvalid, msg.Message)
	default:
		return fmt.Errorf("%w: unexpected %q during auth", ErrProtocol, msg.Type)
	}
}

// bootstrap subscribes to events and loads the initial snapshot.
// Subscribing first means no change is lost between snapshot and stream.
func (c *Client) bootstrap(ctx context.Context) error {
	for _, eventType := range []string{EventStateChanged, EventTagScanned, EventIntegration} {
		if _, err := c.request(ctx, map[string]any{"type": cmdSubscribeEvents, "event_type": eventType}); err != nil {
			return fmt.Errorf("subscribing to %s: %w", eventType, err)
		}
	}

	if err := c.loadStates(ctx); err != nil {
		return err
	}
	if err := c.loadServices(ctx); err != nil {
		return err
	}

	// The tag integration is optional on the server side.
	if err := c.RefreshTags(ctx); err != nil {
		c.logger.Warn("tags unavailable", "error", err)
		c.ReplaceTags(nil)
	}

	c.loadIntegrationVersion(ctx)
	return nil
}

func (c *Client) loadStates(ctx context.Context) error {
	raw, err := c.request(ctx, map[string]any{"type": cmdGetStates})
	if err != nil {
		return fmt.Errorf("loading states: %w", err)
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("decoding states: %w", err)
	}

	states := make(map[string]map[string]any, len(list))
	for _, st := range list {
		if id, ok := st["entity_id"].(string); ok && id != "" {
			states[id] = st
		}
	}
	c.ReplaceStates(states)
	return nil
}

func (c *Client) loadServices(ctx context.Context) error {
	raw, err := c.request(ctx, map[string]any{"type": cmdGetServices})
	if err != nil {
		return fmt.Errorf("loading services: %w", err)
	}

	var services map[string]any
	if err := json.Unmarshal(raw, &services); err != nil {
		return fmt.Errorf("decoding services: %w", err)
	}
	c.ReplaceServices(services)
	return nil
}

// loadIntegrationVersion asks the Node-RED integration for its version.
// Any failure means the integration is not installed.
func (c *Client) loadIntegrationVersion(ctx context.Context) {
	raw, err := c.request(ctx, map[string]any{"type": cmdNodeRedVersion})
	if err != nil {
		c.logger.Debug("node-red integration not available", "error", err)
		c.SetIntegrationVersion("")
		return
	}

	var body struct {
		Version any `json:"version"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.SetIntegrationVersion("")
		return
	}

	switch v := body.Version.(type) {
	case string:
		c.SetIntegrationVersion(v)
	case float64:
		c.SetIntegrationVersion(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		c.SetIntegrationVersion("")
	}
}

// readLoop dispatches messages until the connection fails.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}

		switch msg.Type {
		case msgResult, msgPong:
			c.resolve(msg)
		case msgEvent:
			if msg.Event != nil {
				c.handleEvent(msg.Event)
			}
		default:
			c.logger.Debug("ignoring home assistant message", "type", msg.Type)
		}
	}
}

func (c *Client) resolve(msg inbound) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()

	if !ok {
		return
	}

	if msg.Type == msgResult && !msg.Success {
		detail := "unknown error"
		if msg.Error != nil {
			detail = msg.Error.Code + ": " + msg.Error.Message
		}
		ch <- response{err: fmt.Errorf("%w: %s", ErrRequestFailed, detail)}
		return
	}
	ch <- response{result: msg.Result}
}

func (c *Client) handleEvent(ev *event) {
	switch ev.EventType {
	case EventStateChanged:
		var data stateChangedData
		if err := json.Unmarshal(ev.Data, &data); err != nil || data.EntityID == "" {
			c.logger.Debug("malformed state_changed event", "error", err)
			return
		}
		c.SetState(data.EntityID, data.NewState)

	case EventTagScanned:
		var data tagScannedData
		if err := json.Unmarshal(ev.Data, &data); err == nil && data.TagID != "" {
			c.MarkTagScanned(data.TagID, ev.TimeFired)
		}

	case EventIntegration:
		var data integrationData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		switch data.Type {
		case integrationLoaded:
			// The reader must keep running to deliver the answer.
			go c.loadIntegrationVersion(c.runCtx)
		case integrationUnloaded:
			c.SetIntegrationVersion("")
		}
	}
}

// request sends one command and waits for its result.
func (c *Client) request(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload["id"] = id
	if err := c.write(conn, payload); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("sending %v: %w", payload["type"], err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-timer.C:
		c.forget(id)
		return nil, fmt.Errorf("%v: %w", payload["type"], context.DeadlineExceeded)
	}
}

func (c *Client) write(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.RequestTimeout)) //nolint:errcheck // surfaced by the write
	return conn.WriteJSON(v)
}

func (c *Client) writeClose(conn *websocket.Conn) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck // best effort
}

func (c *Client) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// detach forgets conn and fails every request still waiting on it.
func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[int]chan response)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- response{err: ErrConnectionLost}
	}
}
