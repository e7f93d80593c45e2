package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Raj5489/Share-Me/internal/store"
)

const defaultTransferListLimit = 50

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. The store may be
// nil when history is disabled.
func NewAPIHandlers(st store.Store, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{store: st, log: logger}
}

// TransferResponse is one row of the transfer history.
type TransferResponse struct {
	FileID      string    `json:"file_id"`
	Room        string    `json:"room"`
	Sender      string    `json:"sender"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	MimeType    string    `json:"mime_type"`
	CompletedAt time.Time `json:"completed_at"`
}

// ErrorResponse is the generic API error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListTransfers returns recent transfer metadata, newest first.
func (h *APIHandlers) ListTransfers(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, []TransferResponse{})
		return
	}

	limit := defaultTransferListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	records, err := h.store.ListRecentTransfers(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list transfers")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load transfer history"})
		return
	}

	out := make([]TransferResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, TransferResponse{
			FileID:      rec.FileID,
			Room:        rec.Room,
			Sender:      rec.Sender,
			FileName:    rec.FileName,
			FileSize:    rec.FileSize,
			MimeType:    rec.MimeType,
			CompletedAt: rec.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
