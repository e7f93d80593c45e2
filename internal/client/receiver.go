package client

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"

	"github.com/Raj5489/Share-Me/internal/proto"
)

// TransferSession is the metadata mirrored for one incoming transfer.
type TransferSession struct {
	FileID   string
	FileName string
	FileSize int64
	MimeType string
	Sender   string
}

// Artifact is a fully reassembled file.
type Artifact struct {
	Session TransferSession
	Data    []byte
}

// TransferError describes a transfer that could not be reassembled.
// Missing chunk indices are reported explicitly instead of being
// silently padded out of the artifact.
type TransferError struct {
	FileID  string
	Missing []int
	Reason  string
}

func (e *TransferError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("transfer %s failed: %d missing chunk(s) %v", e.FileID, len(e.Missing), e.Missing)
	}
	return fmt.Sprintf("transfer %s failed: %s", e.FileID, e.Reason)
}

// chunkBuffer is a sparse, index-addressed sequence of decoded blocks.
// It grows to accommodate out-of-order or future indices.
type chunkBuffer struct {
	chunks    [][]byte
	received  int64 // sums per-arrival length; approximate under duplicates
	lastIndex int   // index carrying isLast, -1 until seen
}

type inboundSession struct {
	session TransferSession
	buffer  chunkBuffer
}

// maxChunkIndex is the highest index a transfer of the announced size
// can carry. The slack of one covers the empty terminal chunk of a
// zero-byte file and an exact-multiple final boundary.
func maxChunkIndex(fileSize int64) int {
	if fileSize < 0 {
		fileSize = 0
	}
	return int(fileSize/ChunkSize) + 1
}

// Receiver buffers incoming chunks by index and reassembles artifacts.
// One receiver serves all concurrent transfers, keyed by file id.
type Receiver struct {
	mu       sync.Mutex
	sessions map[string]*inboundSession
}

// NewReceiver constructs an empty receiver.
func NewReceiver() *Receiver {
	return &Receiver{sessions: make(map[string]*inboundSession)}
}

// HandleInfo allocates a session and an empty chunk buffer for an
// announced transfer. A duplicate announcement resets the session.
func (r *Receiver) HandleInfo(from string, info proto.FileInfoData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[info.FileID] = &inboundSession{
		session: TransferSession{
			FileID:   info.FileID,
			FileName: info.FileName,
			FileSize: info.FileSize,
			MimeType: info.MimeType,
			Sender:   from,
		},
		buffer: chunkBuffer{lastIndex: -1},
	}
}

// HandleChunk decodes and stores one chunk at its index. Chunks for
// unannounced transfers are dropped: the announcement may have raced a
// late join, and there is no way to ask for it again.
func (r *Receiver) HandleChunk(chunk proto.FileChunkData) error {
	data, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		return fmt.Errorf("decode chunk %d of %s: %w", chunk.ChunkIndex, chunk.FileID, err)
	}
	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("negative chunk index %d for %s", chunk.ChunkIndex, chunk.FileID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chunk.FileID]
	if !ok {
		return nil
	}

	// The announced size bounds how many chunks can legitimately exist;
	// anything past it would let a peer force an arbitrary allocation.
	if limit := maxChunkIndex(s.session.FileSize); chunk.ChunkIndex > limit {
		return fmt.Errorf("chunk index %d of %s exceeds announced size (max %d)", chunk.ChunkIndex, chunk.FileID, limit)
	}

	for len(s.buffer.chunks) <= chunk.ChunkIndex {
		s.buffer.chunks = append(s.buffer.chunks, nil)
	}
	s.buffer.chunks[chunk.ChunkIndex] = data
	s.buffer.received += int64(len(data))
	if chunk.IsLast {
		s.buffer.lastIndex = chunk.ChunkIndex
	}
	return nil
}

// Progress returns the received-byte counter and the announced size.
// The counter sums per-arrival lengths, so duplicate delivery
// over-counts; it is an indicator, not an invariant.
func (r *Receiver) Progress(fileID string) (received, total int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[fileID]
	if !found {
		return 0, 0, false
	}
	return s.buffer.received, s.session.FileSize, true
}

// Active returns the number of in-flight incoming transfers.
func (r *Receiver) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// HandleComplete reassembles the artifact in index order and discards
// the session. Every index up to the isLast chunk must be populated;
// gaps fail the transfer visibly rather than producing a silently
// truncated artifact.
func (r *Receiver) HandleComplete(done proto.FileCompleteData) (*Artifact, error) {
	r.mu.Lock()
	s, ok := r.sessions[done.FileID]
	delete(r.sessions, done.FileID)
	r.mu.Unlock()

	if !ok {
		return nil, &TransferError{FileID: done.FileID, Reason: "completion for unknown transfer"}
	}
	if s.buffer.lastIndex < 0 {
		return nil, &TransferError{FileID: done.FileID, Reason: "final chunk never arrived"}
	}

	var missing []int
	var buf bytes.Buffer
	buf.Grow(int(s.session.FileSize))
	for i := 0; i <= s.buffer.lastIndex; i++ {
		if i >= len(s.buffer.chunks) || s.buffer.chunks[i] == nil {
			missing = append(missing, i)
			continue
		}
		buf.Write(s.buffer.chunks[i])
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, &TransferError{FileID: done.FileID, Missing: missing}
	}
	if int64(buf.Len()) != s.session.FileSize {
		return nil, &TransferError{
			FileID: done.FileID,
			Reason: fmt.Sprintf("reassembled %d bytes, announced %d", buf.Len(), s.session.FileSize),
		}
	}

	return &Artifact{Session: s.session, Data: buf.Bytes()}, nil
}
