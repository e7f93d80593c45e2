package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/Raj5489/Share-Me/internal/proto"
)

type emitRecorder struct {
	mu    sync.Mutex
	types []string
	data  []any
}

func (r *emitRecorder) emit(typ string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, typ)
	r.data = append(r.data, data)
	return nil
}

func (r *emitRecorder) snapshot() ([]string, []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...), append([]any(nil), r.data...)
}

func patternBytes(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf
}

func TestSenderSlicesAndAnnounces(t *testing.T) {
	src := patternBytes(2*ChunkSize + 10) // 131082 bytes
	rec := &emitRecorder{}

	s := NewSender(rec.emit, "ABC123", FileMeta{
		Name:     "photo.jpg",
		Size:     int64(len(src)),
		MimeType: "image/jpeg",
	}, bytes.NewReader(src))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.State() != SenderDone {
		t.Fatalf("expected done state, got %v", s.State())
	}

	types, data := rec.snapshot()
	want := []string{
		proto.InboundTypeFileInfo,
		proto.InboundTypeFileChunk,
		proto.InboundTypeFileChunk,
		proto.InboundTypeFileChunk,
		proto.InboundTypeFileComplete,
	}
	if len(types) != len(want) {
		t.Fatalf("emitted %d messages, want %d: %v", len(types), len(want), types)
	}
	for i, typ := range want {
		if types[i] != typ {
			t.Fatalf("message %d is %s, want %s", i, types[i], typ)
		}
	}

	info := data[0].(proto.FileInfoData)
	if info.FileName != "photo.jpg" || info.FileSize != int64(len(src)) || info.Room != "ABC123" {
		t.Fatalf("unexpected announcement: %+v", info)
	}
	if info.FileID == "" {
		t.Fatalf("announcement missing file id")
	}

	var rebuilt []byte
	for i, raw := range data[1:4] {
		chunk := raw.(proto.FileChunkData)
		if chunk.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		wantLast := i == 2
		if chunk.IsLast != wantLast {
			t.Fatalf("chunk %d isLast = %v, want %v", i, chunk.IsLast, wantLast)
		}
		decoded, err := base64.StdEncoding.DecodeString(chunk.Data)
		if err != nil {
			t.Fatalf("chunk %d not valid base64: %v", i, err)
		}
		wantSize := ChunkSize
		if i == 2 {
			wantSize = 10
		}
		if len(decoded) != wantSize {
			t.Fatalf("chunk %d has %d bytes, want %d", i, len(decoded), wantSize)
		}
		rebuilt = append(rebuilt, decoded...)
	}
	if !bytes.Equal(rebuilt, src) {
		t.Fatalf("reassembled chunks differ from the source")
	}
}

func TestSenderExactMultipleOfChunkSize(t *testing.T) {
	src := patternBytes(2 * ChunkSize)
	rec := &emitRecorder{}

	s := NewSender(rec.emit, "ABC123", FileMeta{Name: "f", Size: int64(len(src))}, bytes.NewReader(src))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	types, data := rec.snapshot()
	if len(types) != 4 { // info + 2 chunks + complete
		t.Fatalf("emitted %d messages, want 4: %v", len(types), types)
	}
	first := data[1].(proto.FileChunkData)
	second := data[2].(proto.FileChunkData)
	if first.IsLast {
		t.Fatalf("first chunk must not be last")
	}
	if !second.IsLast {
		t.Fatalf("isLast must be set on the final chunk of an exact multiple")
	}
}

func TestSenderEmptyFile(t *testing.T) {
	rec := &emitRecorder{}
	s := NewSender(rec.emit, "ABC123", FileMeta{Name: "empty", Size: 0}, bytes.NewReader(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	types, data := rec.snapshot()
	if len(types) != 3 { // info + one empty terminal chunk + complete
		t.Fatalf("emitted %d messages, want 3: %v", len(types), types)
	}
	chunk := data[1].(proto.FileChunkData)
	if !chunk.IsLast || chunk.Data != "" {
		t.Fatalf("expected empty terminal chunk, got %+v", chunk)
	}
}

func TestSenderAdaptiveDelay(t *testing.T) {
	small := NewSender(func(string, any) error { return nil }, "ABC123",
		FileMeta{Size: 1024}, bytes.NewReader(nil))
	if small.delay != chunkDelaySmall {
		t.Fatalf("small file delay = %v, want %v", small.delay, chunkDelaySmall)
	}

	large := NewSender(func(string, any) error { return nil }, "ABC123",
		FileMeta{Size: largeFileThreshold + 1}, bytes.NewReader(nil))
	if large.delay != chunkDelayLarge {
		t.Fatalf("large file delay = %v, want %v", large.delay, chunkDelayLarge)
	}
}

func TestSenderPauseResume(t *testing.T) {
	src := patternBytes(5 * ChunkSize)
	rec := &emitRecorder{}

	s := NewSender(rec.emit, "ABC123", FileMeta{Name: "f", Size: int64(len(src))}, bytes.NewReader(src))
	s.Pause()
	if !s.Paused() {
		t.Fatalf("sender should report paused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Paused before the announcement: nothing may be emitted.
	time.Sleep(100 * time.Millisecond)
	if types, _ := rec.snapshot(); len(types) != 0 {
		t.Fatalf("paused sender emitted %v", types)
	}

	s.Resume()
	if err := <-done; err != nil {
		t.Fatalf("run after resume: %v", err)
	}
	if got := s.Offset(); got != int64(len(src)) {
		t.Fatalf("offset = %d, want %d", got, len(src))
	}

	types, _ := rec.snapshot()
	if len(types) != 7 { // info + 5 chunks + complete
		t.Fatalf("emitted %d messages, want 7", len(types))
	}
}

func TestSenderMidStreamPauseRetainsOffset(t *testing.T) {
	src := patternBytes(4 * ChunkSize)
	rec := &emitRecorder{}

	s := NewSender(rec.emit, "ABC123", FileMeta{Name: "f", Size: int64(len(src))}, bytes.NewReader(src))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let at least one chunk out, then suspend.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if types, _ := rec.snapshot(); len(types) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no chunk emitted in time")
		}
		time.Sleep(time.Millisecond)
	}
	s.Pause()
	offsetAtPause := s.Offset()
	countAtPause := func() int { types, _ := rec.snapshot(); return len(types) }()

	time.Sleep(100 * time.Millisecond)
	if got := func() int { types, _ := rec.snapshot(); return len(types) }(); got > countAtPause+1 {
		t.Fatalf("chunk loop kept running while paused: %d -> %d messages", countAtPause, got)
	}
	if s.Offset() < offsetAtPause {
		t.Fatalf("offset went backwards")
	}

	s.Resume()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	// Every byte accounted for exactly once despite the gap.
	_, data := rec.snapshot()
	var rebuilt []byte
	for _, raw := range data {
		if chunk, ok := raw.(proto.FileChunkData); ok {
			decoded, err := base64.StdEncoding.DecodeString(chunk.Data)
			if err != nil {
				t.Fatalf("bad chunk: %v", err)
			}
			rebuilt = append(rebuilt, decoded...)
		}
	}
	if !bytes.Equal(rebuilt, src) {
		t.Fatalf("stream across pause/resume differs from the source")
	}
}
