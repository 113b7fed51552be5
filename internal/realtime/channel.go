// Package realtime maintains the persistent STOMP-over-WebSocket
// connection to the backend broker: one room subscription at a time,
// inbound messages written into the store, outbound messages published
// to the room's send destination.
package realtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"flyte-sync/internal/models"
	"flyte-sync/internal/observability"
	"flyte-sync/internal/store"
)

// ErrNotConnected rejects sends while the channel is not subscribed.
// There is no local queuing; the caller surfaces this to the user.
var ErrNotConnected = errors.New("not connected")

// State is the channel's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config tunes the channel's timing behavior.
type Config struct {
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	// OptimisticWrites inserts outgoing messages locally before the
	// server echoes them back on the subscription.
	OptimisticWrites bool
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 4 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Channel is the realtime message channel. It reconnects on a fixed
// interval for as long as the room stays open and resubscribes to the
// same room without caller involvement.
type Channel struct {
	brokerURL string
	st        *store.Store
	cfg       Config

	mu      sync.Mutex
	state   State
	open    bool
	roomID  string
	userID  string
	conn    *websocket.Conn
	done    chan struct{}
	status  map[chan State]struct{}
	writeMu sync.Mutex
}

// New builds a Channel against the broker endpoint. The store handle is
// where inbound messages land.
func New(brokerURL string, st *store.Store, cfg Config) *Channel {
	cfg.applyDefaults()
	return &Channel{
		brokerURL: brokerURL,
		st:        st,
		cfg:       cfg,
		status:    make(map[chan State]struct{}),
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status subscribes to connection-state changes for UI display. The
// current state is emitted immediately; cancel stops delivery.
func (c *Channel) Status() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	c.status[ch] = struct{}{}
	ch <- c.state
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.status[ch]; ok {
			delete(c.status, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Open connects and subscribes to the room's topic. Empty roomID or
// userID is a no-op guard against premature connections. Opening a
// different room tears the current session down first.
func (c *Channel) Open(roomID, userID string) {
	if roomID == "" || userID == "" {
		log.Printf("realtime open skipped: empty room or user id")
		return
	}

	c.mu.Lock()
	if c.open && c.roomID == roomID {
		c.mu.Unlock()
		return
	}
	if c.open {
		c.closeLocked()
	}
	c.open = true
	c.roomID = roomID
	c.userID = userID
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	go c.run(roomID, done)
}

// Close tears the connection down from any state. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *Channel) closeLocked() {
	if !c.open {
		return
	}
	c.open = false
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setStateLocked(StateDisconnected)
	observability.IncRealtimeEvent("disconnect")
}

// Send publishes a text message to the room's send destination. Valid
// only while subscribed; otherwise the caller gets ErrNotConnected.
func (c *Channel) Send(text, userID, roomID string) error {
	c.mu.Lock()
	conn := c.conn
	subscribed := c.state == StateSubscribed
	c.mu.Unlock()

	if !subscribed || conn == nil {
		return ErrNotConnected
	}

	payload := models.SendPayload{
		MessageText: text,
		UserID:      userID,
		RoomID:      roomID,
		MediaType:   models.MediaTypeText,
		MediaLink:   "",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode send payload: %w", err)
	}

	err = c.writeFrame(conn, frame{
		command: cmdSend,
		headers: map[string]string{
			"destination":  "/app/chat.send/" + roomID,
			"content-type": "application/json",
		},
		body: body,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	observability.IncRealtimeEvent("send")

	if c.cfg.OptimisticWrites {
		c.writeOptimistic(text, userID, roomID)
	}
	return nil
}

// writeOptimistic inserts the outgoing message locally with a generated
// id; the server echo later dedups against its own id, so the local row
// stays as a best-effort preview.
func (c *Channel) writeOptimistic(text, userID, roomID string) {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	msg := models.Message{
		ID:         fmt.Sprintf("local-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix[:])),
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
		RoomID:     roomID,
		SenderID:   userID,
		SenderName: "",
	}
	err := c.st.Tx(context.Background(), func(txn *store.Txn) error {
		_, err := txn.InsertMessageIfAbsent(msg)
		return err
	})
	if err != nil {
		log.Printf("optimistic write failed room=%s: %v", roomID, err)
	}
}

// run is the connection loop: one session per iteration, fixed-delay
// retry until the room is closed. done identifies this open; once a
// newer Open or Close replaces it, every state write here is a no-op.
func (c *Channel) run(roomID string, done chan struct{}) {
	first := true
	for {
		if first {
			c.setStateFor(done, StateConnecting)
			first = false
		} else {
			c.setStateFor(done, StateReconnecting)
			observability.IncRealtimeEvent("reconnect")
		}

		err := c.session(roomID, done)
		select {
		case <-done:
			return
		default:
		}
		log.Printf("realtime session ended room=%s: %v", roomID, err)

		c.setStateFor(done, StateReconnecting)
		select {
		case <-done:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// session dials, completes the STOMP handshake, subscribes, and pumps
// inbound frames until the connection fails or the room is closed.
func (c *Channel) session(roomID string, done chan struct{}) error {
	_, span := otel.Tracer("flyte-sync/realtime").Start(context.Background(), "realtime.handshake")
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(c.brokerURL, nil)
	if err != nil {
		span.End()
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	// Register the conn before the handshake so teardown during the
	// handshake window closes it instead of leaving a zombie session.
	c.mu.Lock()
	if !c.open || c.done != done {
		c.mu.Unlock()
		span.End()
		return errors.New("closed during dial")
	}
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	heartbeatMillis := c.cfg.HeartbeatInterval.Milliseconds()
	err = c.writeFrame(conn, frame{
		command: cmdConnect,
		headers: map[string]string{
			"accept-version": "1.2",
			"host":           "flyte",
			"heart-beat":     fmt.Sprintf("%d,%d", heartbeatMillis, heartbeatMillis),
		},
	})
	if err != nil {
		span.End()
		return fmt.Errorf("send CONNECT: %w", err)
	}

	// The handshake must finish within the bounded interval or the
	// session counts as failed and the reconnect path takes over.
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	connected, err := readFrame(conn)
	if err != nil {
		span.End()
		return fmt.Errorf("read CONNECTED: %w", err)
	}
	if connected.command != cmdConnected {
		span.End()
		return fmt.Errorf("unexpected handshake frame %q", connected.command)
	}
	span.End()
	observability.IncRealtimeEvent("connect")
	c.setStateFor(done, StateConnected)

	sendEvery, expectEvery := negotiateHeartbeats(heartbeatMillis, connected.headers["heart-beat"])

	err = c.writeFrame(conn, frame{
		command: cmdSubscribe,
		headers: map[string]string{
			"id":          "sub-0",
			"destination": "/topic/room/" + roomID,
			"ack":         "auto",
		},
	})
	if err != nil {
		return fmt.Errorf("send SUBSCRIBE: %w", err)
	}
	observability.IncRealtimeEvent("subscribe")

	c.mu.Lock()
	if !c.open || c.done != done {
		c.mu.Unlock()
		return errors.New("closed during handshake")
	}
	c.setStateLocked(StateSubscribed)
	c.mu.Unlock()

	if sendEvery > 0 {
		stopBeats := make(chan struct{})
		defer close(stopBeats)
		go c.heartbeatLoop(conn, sendEvery, stopBeats, done)
	}

	for {
		select {
		case <-done:
			return errors.New("room closed")
		default:
		}

		if expectEvery > 0 {
			// Allow one missed beat before declaring the link half-open.
			_ = conn.SetReadDeadline(time.Now().Add(2 * expectEvery))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if isHeartbeat(raw) {
			continue
		}

		f, err := decodeFrame(raw)
		if err != nil {
			// A single bad frame never kills the subscription.
			log.Printf("dropping malformed frame room=%s: %v", roomID, err)
			observability.IncRealtimeEvent("dropped_frame")
			continue
		}

		switch f.command {
		case cmdMessage:
			c.handleMessage(roomID, f.body)
		case cmdError:
			return fmt.Errorf("broker error: %s", f.headers["message"])
		default:
			log.Printf("ignoring frame command=%s room=%s", f.command, roomID)
		}
	}
}

// handleMessage writes an inbound message into the store. The insert is
// the dedup boundary against reconciler backfill and optimistic echoes;
// parse failures drop the frame and keep the subscription alive.
func (c *Channel) handleMessage(roomID string, body []byte) {
	var wire models.APIMessage
	if err := json.Unmarshal(body, &wire); err != nil {
		log.Printf("dropping unparseable message room=%s: %v", roomID, err)
		observability.IncRealtimeEvent("dropped_frame")
		return
	}

	msg := wire.ToMessage(roomID)
	err := c.st.Tx(context.Background(), func(txn *store.Txn) error {
		_, err := txn.InsertMessageIfAbsent(msg)
		return err
	})
	if err != nil {
		log.Printf("storing realtime message failed id=%s room=%s: %v", msg.ID, roomID, err)
		return
	}
	observability.IncRealtimeEvent("message")
}

func (c *Channel) heartbeatLoop(conn *websocket.Conn, every time.Duration, stop, done chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte("\n"))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-stop:
			return
		case <-done:
			return
		}
	}
}

func (c *Channel) writeFrame(conn *websocket.Conn, f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, f.encode())
}

// setStateFor applies a state transition only while done is still the
// channel's current open; a superseded session cannot clobber the state
// of its replacement.
func (c *Channel) setStateFor(done chan struct{}, s State) {
	c.mu.Lock()
	if c.open && c.done == done {
		c.setStateLocked(s)
	}
	c.mu.Unlock()
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	observability.SetRealtimeSubscribed(s == StateSubscribed)
	for ch := range c.status {
		select {
		case ch <- s:
		default:
			// Coalesce: displace the stale buffered state.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func readFrame(conn *websocket.Conn) (frame, error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return frame{}, err
		}
		if isHeartbeat(raw) {
			continue
		}
		return decodeFrame(raw)
	}
}

// negotiateHeartbeats derives the effective send/expect intervals from
// our offer and the server's heart-beat header, per STOMP 1.2.
func negotiateHeartbeats(offerMillis int64, serverHeader string) (sendEvery, expectEvery time.Duration) {
	sx, sy := parseHeartbeat(serverHeader)
	// We send no faster than the server wants to receive.
	if offerMillis > 0 && sy > 0 {
		sendEvery = time.Duration(max(offerMillis, sy)) * time.Millisecond
	}
	// The server sends no faster than we want to receive.
	if offerMillis > 0 && sx > 0 {
		expectEvery = time.Duration(max(offerMillis, sx)) * time.Millisecond
	}
	return sendEvery, expectEvery
}
