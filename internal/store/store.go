package store

import (
	"context"
	"time"
)

// TransferRecord is the metadata logged for one completed transfer.
// Content bytes are never stored; the relay only keeps what it needed
// to forward the announcement.
type TransferRecord struct {
	FileID      string
	Room        string
	Sender      string
	FileName    string
	FileSize    int64
	MimeType    string
	CompletedAt time.Time
}

// Store persists transfer history. Implementations must be safe for
// concurrent use.
type Store interface {
	// SaveTransfer appends one completed transfer to the history.
	SaveTransfer(ctx context.Context, rec TransferRecord) error

	// ListRecentTransfers returns up to limit records, newest first.
	ListRecentTransfers(ctx context.Context, limit int) ([]TransferRecord, error)

	// Close releases underlying resources.
	Close() error
}
