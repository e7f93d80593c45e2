package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Raj5489/Share-Me/internal/proto"
)

// ChunkSize is the fixed slicing window for outgoing files.
const ChunkSize = 64 * 1024

// Pacing between chunk emissions. The delay is a deliberate heuristic
// substitute for real flow control: no receiver acknowledgment exists
// in the protocol, so the sender self-throttles instead.
const (
	largeFileThreshold = 5 * 1024 * 1024
	chunkDelaySmall    = 5 * time.Millisecond
	chunkDelayLarge    = 10 * time.Millisecond
)

// SenderState tracks the sending pipeline's progress.
type SenderState int

const (
	SenderIdle SenderState = iota
	SenderAnnouncing
	SenderStreaming
	SenderCompleting
	SenderDone
)

func (s SenderState) String() string {
	switch s {
	case SenderIdle:
		return "idle"
	case SenderAnnouncing:
		return "announcing"
	case SenderStreaming:
		return "streaming"
	case SenderCompleting:
		return "completing"
	case SenderDone:
		return "done"
	}
	return "unknown"
}

// FileMeta describes the file being offered to the room.
type FileMeta struct {
	Name     string
	Size     int64
	MimeType string
}

// EmitFunc delivers one wire message toward the relay.
type EmitFunc func(typ string, data any) error

// NewFileID returns a time-derived transfer id with a random suffix,
// so rapid concurrent sends from one device cannot collide.
func NewFileID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// Sender streams one file into a room as indexed base64 chunks:
// Idle -> Announcing -> Streaming -> Completing -> Done.
//
// The loop is genuinely suspendable: Pause blocks the next slice until
// Resume, and the byte offset survives the gap, so a reconnect picks up
// exactly where the transport dropped.
type Sender struct {
	emit   EmitFunc
	room   string
	fileID string
	meta   FileMeta
	src    io.Reader

	delay      time.Duration
	onProgress func(sent, total int64)

	mu         sync.Mutex
	state      SenderState
	offset     int64
	chunkIndex int
	gate       chan struct{} // closed = running
}

// NewSender builds a sender for one file. The reader is consumed
// sequentially, one chunk-size window at a time.
func NewSender(emit EmitFunc, room string, meta FileMeta, src io.Reader) *Sender {
	delay := chunkDelaySmall
	if meta.Size > largeFileThreshold {
		delay = chunkDelayLarge
	}
	gate := make(chan struct{})
	close(gate)
	return &Sender{
		emit:   emit,
		room:   room,
		fileID: NewFileID(),
		meta:   meta,
		src:    src,
		delay:  delay,
		state:  SenderIdle,
		gate:   gate,
	}
}

// FileID returns the transfer id announced to the room.
func (s *Sender) FileID() string { return s.fileID }

// State returns the current pipeline state.
func (s *Sender) State() SenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Offset returns how many bytes have been emitted so far.
func (s *Sender) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// OnProgress registers a callback invoked after every emitted chunk.
func (s *Sender) OnProgress(fn func(sent, total int64)) {
	s.onProgress = fn
}

// Pause suspends the chunk loop before its next slice. Idempotent.
func (s *Sender) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.gate:
		s.gate = make(chan struct{})
	default:
		// already paused
	}
}

// Resume releases a paused chunk loop. Idempotent.
func (s *Sender) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.gate:
		// already running
	default:
		close(s.gate)
	}
}

// Paused reports whether the chunk loop is currently suspended.
func (s *Sender) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.gate:
		return false
	default:
		return true
	}
}

// Run announces the file and streams it chunk by chunk, blocking until
// the transfer completes or ctx is canceled.
func (s *Sender) Run(ctx context.Context) error {
	s.setState(SenderAnnouncing)
	if err := s.emitWithRetry(ctx, proto.InboundTypeFileInfo, proto.FileInfoData{
		Room:     s.room,
		FileID:   s.fileID,
		FileName: s.meta.Name,
		FileSize: s.meta.Size,
		MimeType: s.meta.MimeType,
	}); err != nil {
		return err
	}

	s.setState(SenderStreaming)
	buf := make([]byte, ChunkSize)
	for {
		if err := s.waitRunning(ctx); err != nil {
			return err
		}

		n, readErr := io.ReadFull(s.src, buf)
		if readErr == io.ErrUnexpectedEOF {
			readErr = nil
		}
		if readErr == io.EOF {
			if s.Offset() > 0 || s.meta.Size > 0 {
				break
			}
			// Empty file: a single empty terminal chunk so receivers
			// still observe an isLast index.
			readErr = nil
		} else if readErr != nil {
			return fmt.Errorf("read source: %w", readErr)
		}

		// Evaluated before advancing, so the final boundary is exact
		// even when the size is a multiple of the chunk window.
		last := s.Offset()+int64(n) >= s.meta.Size

		chunk := proto.FileChunkData{
			Room:       s.room,
			FileID:     s.fileID,
			ChunkIndex: s.chunkIndex,
			Data:       base64.StdEncoding.EncodeToString(buf[:n]),
			IsLast:     last,
		}
		if err := s.emitWithRetry(ctx, proto.InboundTypeFileChunk, chunk); err != nil {
			return err
		}

		s.mu.Lock()
		s.offset += int64(n)
		s.chunkIndex++
		sent := s.offset
		s.mu.Unlock()

		if s.onProgress != nil {
			s.onProgress(sent, s.meta.Size)
		}
		if last {
			break
		}

		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.setState(SenderCompleting)
	if err := s.emitWithRetry(ctx, proto.InboundTypeFileComplete, proto.FileCompleteData{
		Room:   s.room,
		FileID: s.fileID,
	}); err != nil {
		return err
	}

	s.setState(SenderDone)
	return nil
}

// emitWithRetry retries a failed emission after each pause/resume
// cycle. Emissions only fail while the transport is down, and the
// resilience monitor pauses the sender for exactly that window.
func (s *Sender) emitWithRetry(ctx context.Context, typ string, data any) error {
	for {
		if err := s.waitRunning(ctx); err != nil {
			return err
		}
		if err := s.emit(typ, data); err == nil {
			return nil
		}
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sender) waitRunning(ctx context.Context) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) setState(st SenderState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
