package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raj5489/Share-Me/internal/store"
)

// SweepInterval is how often the hub runs its defensive cleanup pass:
// dropping rooms that somehow escaped the eager empty-room delete and
// pruning idle rate-limit records.
const SweepInterval = 5 * time.Minute

// pendingTransferTTL bounds how long an announced-but-never-completed
// transfer is remembered for the history log.
const pendingTransferTTL = time.Hour

type submission struct {
	client *Client
	cmd    *Command
}

type pendingTransfer struct {
	rec         store.TransferRecord
	announcedAt time.Time
}

// Hub is the relay's single event loop. All registry state (rooms,
// rate-limit records, pending transfers) is owned by the Run goroutine,
// so every command (including the join capacity check) is atomic with
// respect to every other command.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	submit     chan submission
	done       chan struct{}

	rooms    map[string]*Room
	clients  map[string]*Client
	limiter  *RateLimiter
	pending  map[string]pendingTransfer
	capacity int

	sweepInterval time.Duration
	now           func() time.Time

	store store.Store
	log   zerolog.Logger
}

// NewHub creates a hub. The store may be nil, in which case transfer
// history is not recorded. The logger may be nil.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		submit:        make(chan submission),
		done:          make(chan struct{}),
		rooms:         make(map[string]*Room),
		clients:       make(map[string]*Client),
		limiter:       NewRateLimiter(RateLimitEvents, RateLimitWindow),
		pending:       make(map[string]pendingTransfer),
		capacity:      RoomCapacity,
		sweepInterval: SweepInterval,
		now:           time.Now,
		store:         st,
		log:           *logger,
	}
}

// SetCapacity overrides the default per-room member cap. Must be
// called before Run.
func (h *Hub) SetCapacity(n int) {
	if n > 0 {
		h.capacity = n
	}
}

// SetRateLimit overrides the join admission window. Must be called
// before Run.
func (h *Hub) SetRateLimit(limit int, window time.Duration) {
	if limit > 0 && window > 0 {
		h.limiter = NewRateLimiter(limit, window)
	}
}

// SetSweepInterval overrides the cleanup cadence. Must be called
// before Run.
func (h *Hub) SetSweepInterval(d time.Duration) {
	if d > 0 {
		h.sweepInterval = d
	}
}

// RegisterClient announces a new connection to the hub and starts
// pumping its commands into the event loop. The pump exits when the
// client's command channel is closed or the hub stops.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		return
	}

	go func() {
		for cmd := range c.Commands {
			select {
			case h.submit <- submission{client: c, cmd: cmd}:
			case <-h.done:
				return
			}
		}
	}()
}

// UnregisterClient removes a connection, cascading removal from every
// room it belongs to.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run processes registrations and commands until ctx is canceled.
// One command is handled to completion before the next is picked up.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c.ID] = c
			h.log.Debug().Str("conn", c.ID).Msg("client registered")

		case c := <-h.unregister:
			h.removeClient(c)

		case s := <-h.submit:
			h.handle(s.client, s.cmd)

		case <-ticker.C:
			h.sweep()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	// Commands buffered by the pump can arrive after the client was
	// unregistered and its event channel closed; drop them.
	if registered, ok := h.clients[c.ID]; !ok || registered != c {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(c, cmd.Room)
	case CommandLeaveRoom:
		h.handleLeave(c, cmd.Room)
	case CommandRelayDirect:
		h.handleRelayDirect(c, cmd)
	case CommandRelayRoom:
		h.handleRelayRoom(c, cmd)
	case CommandPing:
		h.emit(c, &Event{
			Kind: EventPong,
			Pong: &Pong{
				Timestamp:  cmd.PingTimestamp,
				ServerTime: h.now().UnixMilli(),
			},
		})
	default:
		h.log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown command kind")
	}
}

func (h *Hub) handleJoin(c *Client, rawCode string) {
	if !h.limiter.Allow(c.ID) {
		h.log.Debug().Str("conn", c.ID).Msg("join rate limited")
		h.emit(c, &Event{
			Kind:  EventError,
			Error: coreError(ErrCodeRateLimited, "too many join attempts, try again later"),
		})
		return
	}

	code := SanitizeRoomCode(rawCode)
	if !ValidRoomCode(code) {
		h.emit(c, &Event{
			Kind:  EventError,
			Error: coreError(ErrCodeInvalidRoomCode, "room code must be 6 alphanumeric characters"),
		})
		return
	}

	room, ok := h.rooms[code]
	if !ok {
		room = NewRoom(code)
		h.rooms[code] = room
		h.log.Info().Str("room", code).Msg("room created")
	}

	// The capacity check and insert happen in one loop iteration, so
	// the cap is a hard guarantee: a second join at 9/10 sees 10/10.
	if !room.Has(c) {
		if room.Size() >= h.capacity {
			h.emit(c, &Event{
				Kind:  EventError,
				Error: coreError(ErrCodeRoomFull, fmt.Sprintf("room %s is full", code)),
			})
			return
		}
		room.AddClient(c)
		c.Rooms[code] = struct{}{}
	}

	h.log.Info().Str("conn", c.ID).Str("room", code).Int("members", room.Size()).Msg("client joined room")

	// Member list to the joiner (excluding itself), a join notice to
	// everyone else, and a status summary to the whole room.
	h.emit(c, &Event{Kind: EventUsersInRoom, Room: code, Users: room.Members(c)})
	room.Broadcast(&Event{Kind: EventUserJoined, Room: code, User: c.ID}, c)
	room.Broadcast(&Event{
		Kind:  EventRoomStatus,
		Room:  code,
		Count: room.Size(),
		Users: room.Members(nil),
	}, nil)
}

func (h *Hub) handleLeave(c *Client, rawCode string) {
	code := SanitizeRoomCode(rawCode)
	room, ok := h.rooms[code]
	if !ok || !room.RemoveClient(c) {
		return
	}
	delete(c.Rooms, code)

	room.Broadcast(&Event{Kind: EventUserLeft, Room: code, User: c.ID}, nil)

	if room.Empty() {
		delete(h.rooms, code)
		h.log.Info().Str("room", code).Msg("room deleted")
	}
}

func (h *Hub) handleRelayDirect(c *Client, cmd *Command) {
	target, ok := h.clients[cmd.Target]
	if !ok {
		h.log.Debug().Str("target", cmd.Target).Str("type", cmd.Relay).Msg("direct relay target gone")
		return
	}
	h.emit(target, &Event{
		Kind:    EventRelay,
		Relay:   cmd.Relay,
		From:    c.ID,
		Payload: cmd.Payload,
	})
}

func (h *Hub) handleRelayRoom(c *Client, cmd *Command) {
	switch cmd.Relay {
	case "file-info":
		h.trackAnnouncement(c, cmd.Payload)
	case "file-complete":
		h.recordCompletion(cmd.Payload)
	}

	// The registry is keyed by sanitized codes, but devices relay with
	// whatever string they joined with.
	code := SanitizeRoomCode(cmd.Room)
	room, ok := h.rooms[code]
	if !ok {
		return
	}
	room.Broadcast(&Event{
		Kind:    EventRelay,
		Room:    code,
		Relay:   cmd.Relay,
		From:    c.ID,
		Payload: cmd.Payload,
	}, c)
}

// trackAnnouncement remembers file metadata so the transfer log has
// something to record when the matching file-complete passes through.
func (h *Hub) trackAnnouncement(c *Client, payload json.RawMessage) {
	if h.store == nil {
		return
	}
	var info struct {
		Room     string `json:"room"`
		FileID   string `json:"fileId"`
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
		MimeType string `json:"mimeType"`
	}
	if err := json.Unmarshal(payload, &info); err != nil || info.FileID == "" {
		return
	}
	h.pending[info.FileID] = pendingTransfer{
		rec: store.TransferRecord{
			FileID:   info.FileID,
			Room:     SanitizeRoomCode(info.Room),
			Sender:   c.ID,
			FileName: info.FileName,
			FileSize: info.FileSize,
			MimeType: info.MimeType,
		},
		announcedAt: h.now(),
	}
}

// recordCompletion writes the transfer record, best-effort and off the
// event loop so a slow disk never stalls the relay.
func (h *Hub) recordCompletion(payload json.RawMessage) {
	if h.store == nil {
		return
	}
	var done struct {
		FileID string `json:"fileId"`
	}
	if err := json.Unmarshal(payload, &done); err != nil {
		return
	}
	p, ok := h.pending[done.FileID]
	if !ok {
		return
	}
	delete(h.pending, done.FileID)

	rec := p.rec
	rec.CompletedAt = h.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.SaveTransfer(ctx, rec); err != nil {
			h.log.Warn().Err(err).Str("file_id", rec.FileID).Msg("failed to record transfer")
		}
	}()
}

// removeClient handles disconnect-driven cleanup: the client is removed
// from every room it belongs to, remaining members are notified, and
// rooms that become empty are deleted.
func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	h.limiter.Forget(c.ID)

	for code := range c.Rooms {
		room, ok := h.rooms[code]
		if !ok {
			continue
		}
		if !room.RemoveClient(c) {
			continue
		}
		room.Broadcast(&Event{Kind: EventUserLeft, Room: code, User: c.ID}, nil)
		if room.Empty() {
			delete(h.rooms, code)
			h.log.Info().Str("room", code).Msg("room deleted")
		}
	}

	close(c.Events)
	h.log.Debug().Str("conn", c.ID).Msg("client unregistered")
}

// sweep is the periodic defensive pass. Empty rooms are deleted eagerly
// on leave/disconnect already; this guards against any missed path.
func (h *Hub) sweep() {
	for code, room := range h.rooms {
		if room.Empty() {
			delete(h.rooms, code)
			h.log.Warn().Str("room", code).Msg("sweep removed empty room")
		}
	}
	h.limiter.Sweep()

	cutoff := h.now().Add(-pendingTransferTTL)
	for id, p := range h.pending {
		if p.announcedAt.Before(cutoff) {
			delete(h.pending, id)
		}
	}
}

func (h *Hub) emit(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Debug().Str("conn", c.ID).Msg("dropped event for slow consumer")
	}
}
