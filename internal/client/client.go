package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raj5489/Share-Me/internal/proto"
)

// ErrNotConnected is returned when a request needs a live connection.
var ErrNotConnected = errors.New("not connected")

// Signal is a connection-negotiation payload forwarded by the relay.
// The file path never consumes these; they are surfaced verbatim.
type Signal struct {
	Kind    string
	From    string
	Payload json.RawMessage
}

// RoomUpdate is a membership notification from the relay.
type RoomUpdate struct {
	Kind  string
	Room  string
	User  string
	Users []string
	Count int
}

// Options configures a relay client.
type Options struct {
	// URL is the relay's WebSocket endpoint, e.g. ws://host:8080/ws.
	URL    string
	Logger *zerolog.Logger

	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
}

// Client is a device-side session: it keeps one connection to the
// relay alive, heartbeats it, pauses and resumes in-flight senders
// across reconnects, and feeds incoming transfers to the receiver.
type Client struct {
	url          string
	log          zerolog.Logger
	receiver     *Receiver
	monitor      *Monitor
	reconnectMin time.Duration
	reconnectMax time.Duration

	mu      sync.Mutex
	conn    *Conn
	room    string
	senders map[*Sender]struct{}

	// Consumer-facing channels. Slow consumers lose notifications,
	// matching the relay's own drop-don't-block stance.
	Artifacts      chan Artifact
	TransferErrors chan error
	Signals        chan Signal
	RoomUpdates    chan RoomUpdate
	ServerErrors   chan proto.Error
}

// New builds a client. Run must be called before any other method.
func New(opts Options) *Client {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.ReconnectMinDelay <= 0 {
		opts.ReconnectMinDelay = time.Second
	}
	if opts.ReconnectMaxDelay <= 0 {
		opts.ReconnectMaxDelay = 15 * time.Second
	}

	c := &Client{
		url:            opts.URL,
		log:            logger,
		receiver:       NewReceiver(),
		reconnectMin:   opts.ReconnectMinDelay,
		reconnectMax:   opts.ReconnectMaxDelay,
		senders:        make(map[*Sender]struct{}),
		Artifacts:      make(chan Artifact, 8),
		TransferErrors: make(chan error, 8),
		Signals:        make(chan Signal, 32),
		RoomUpdates:    make(chan RoomUpdate, 32),
		ServerErrors:   make(chan proto.Error, 8),
	}
	c.monitor = NewMonitor(c.send, c.transferring, c.forceReconnect)
	return c
}

// Monitor exposes the resilience monitor, mainly for health inspection
// and background-mode switching.
func (c *Client) Monitor() *Monitor { return c.monitor }

// Run dials the relay and keeps the session alive until ctx is
// canceled, reconnecting with backoff after transport failures. After
// each reconnect the last known room is re-joined and paused senders
// resume from their retained byte offsets.
func (c *Client) Run(ctx context.Context) error {
	go c.monitor.Run(ctx)

	delay := c.reconnectMin
	for {
		conn, err := Dial(ctx, c.url)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Dur("retry_in", delay).Msg("relay dial failed")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			if delay *= 2; delay > c.reconnectMax {
				delay = c.reconnectMax
			}
			continue
		}
		delay = c.reconnectMin

		c.mu.Lock()
		c.conn = conn
		room := c.room
		c.mu.Unlock()

		c.monitor.ResetDeadline()
		if room != "" {
			if err := c.send(proto.InboundTypeJoinRoom, proto.JoinData{Room: room}); err != nil {
				c.log.Warn().Err(err).Msg("rejoin after reconnect failed")
			}
		}
		c.resumeSenders()

		runCtx, cancel := context.WithCancel(ctx)
		errCh := make(chan error, 2)
		go func() { errCh <- conn.ReadLoop(runCtx, c.dispatch) }()
		go func() { errCh <- conn.WriteLoop(runCtx) }()

		err = <-errCh
		cancel()
		conn.Close()
		<-errCh

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.pauseSenders()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("relay connection lost, reconnecting")
	}
}

// Connected reports whether a live connection currently exists.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// WaitConnected blocks until the Run loop has a live connection.
func (c *Client) WaitConnected(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.Connected() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Join joins (or re-targets) the client's room. The code is remembered
// for re-join after reconnect.
func (c *Client) Join(room string) error {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
	return c.send(proto.InboundTypeJoinRoom, proto.JoinData{Room: room})
}

// Leave leaves the current room and forgets it.
func (c *Client) Leave() error {
	c.mu.Lock()
	room := c.room
	c.room = ""
	c.mu.Unlock()
	if room == "" {
		return nil
	}
	return c.send(proto.InboundTypeLeaveRoom, proto.LeaveData{Room: room})
}

// Room returns the last joined room code, if any.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// SendFile streams one file to the current room, blocking until the
// transfer completes or ctx is canceled. onProgress may be nil.
func (c *Client) SendFile(ctx context.Context, meta FileMeta, src io.Reader, onProgress func(sent, total int64)) error {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == "" {
		return fmt.Errorf("send file: no room joined")
	}

	s := NewSender(c.send, room, meta, src)
	if onProgress != nil {
		s.OnProgress(onProgress)
	}

	c.mu.Lock()
	c.senders[s] = struct{}{}
	if c.conn == nil {
		s.Pause()
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.senders, s)
		c.mu.Unlock()
	}()

	return s.Run(ctx)
}

// SendSignal forwards a negotiation payload to one target connection.
func (c *Client) SendSignal(kind, target string, payload json.RawMessage) error {
	return c.send(kind, proto.SignalData{Target: target, Payload: payload})
}

// send marshals and queues one wire message on the live connection.
func (c *Client) send(typ string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	return conn.Send(proto.Inbound{Type: typ, Data: raw})
}

func (c *Client) transferring() bool {
	c.mu.Lock()
	active := len(c.senders) > 0
	c.mu.Unlock()
	return active || c.receiver.Active() > 0
}

// forceReconnect tears down the current connection; the Run loop
// observes the failure and redials.
func (c *Client) forceReconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.log.Warn().Msg("heartbeat silence exceeded threshold, forcing reconnect")
	conn.Close()
}

func (c *Client) pauseSenders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.senders {
		s.Pause()
	}
}

func (c *Client) resumeSenders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.senders {
		s.Resume()
	}
}

// dispatch routes one server message to the right pipeline.
func (c *Client) dispatch(out proto.Outbound) {
	switch out.Type {
	case proto.OutboundTypePong:
		var pong proto.PongData
		if err := json.Unmarshal(out.Data, &pong); err != nil {
			return
		}
		c.monitor.RecordPong(pong.Timestamp)

	case proto.InboundTypeFileInfo:
		var info proto.FileInfoData
		if err := json.Unmarshal(out.Data, &info); err != nil {
			c.log.Warn().Err(err).Msg("malformed file-info")
			return
		}
		c.receiver.HandleInfo(out.From, info)

	case proto.InboundTypeFileChunk:
		var chunk proto.FileChunkData
		if err := json.Unmarshal(out.Data, &chunk); err != nil {
			c.log.Warn().Err(err).Msg("malformed file-chunk")
			return
		}
		if err := c.receiver.HandleChunk(chunk); err != nil {
			c.log.Warn().Err(err).Msg("chunk rejected")
		}

	case proto.InboundTypeFileComplete:
		var done proto.FileCompleteData
		if err := json.Unmarshal(out.Data, &done); err != nil {
			return
		}
		artifact, err := c.receiver.HandleComplete(done)
		if err != nil {
			c.log.Warn().Err(err).Str("file_id", done.FileID).Msg("transfer failed")
			select {
			case c.TransferErrors <- err:
			default:
			}
			return
		}
		select {
		case c.Artifacts <- *artifact:
		default:
			c.log.Warn().Str("file_id", artifact.Session.FileID).Msg("dropped artifact, consumer too slow")
		}

	case proto.InboundTypeOffer, proto.InboundTypeAnswer, proto.InboundTypeIceCandidate:
		select {
		case c.Signals <- Signal{Kind: out.Type, From: out.From, Payload: out.Data}:
		default:
		}

	case proto.OutboundTypeUsersInRoom, proto.OutboundTypeRoomStatus:
		var status proto.RoomStatusData
		if err := json.Unmarshal(out.Data, &status); err != nil {
			return
		}
		c.pushRoomUpdate(RoomUpdate{
			Kind:  out.Type,
			Room:  status.Room,
			Users: status.Users,
			Count: status.Count,
		})

	case proto.OutboundTypeUserJoined, proto.OutboundTypeUserLeft:
		var user proto.UserEventData
		if err := json.Unmarshal(out.Data, &user); err != nil {
			return
		}
		c.pushRoomUpdate(RoomUpdate{Kind: out.Type, Room: user.Room, User: user.User})

	case proto.OutboundTypeError:
		if out.Error == nil {
			return
		}
		c.log.Warn().Str("code", out.Error.Code).Str("msg", out.Error.Msg).Msg("relay rejected request")
		select {
		case c.ServerErrors <- *out.Error:
		default:
		}

	default:
		c.log.Debug().Str("type", out.Type).Msg("ignoring unknown server message")
	}
}

func (c *Client) pushRoomUpdate(u RoomUpdate) {
	select {
	case c.RoomUpdates <- u:
	default:
	}
}
