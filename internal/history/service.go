package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/antigravity/go-spotify-wrapped/internal/db"
)

// Store is the subset of the history repository the importer needs.
type Store interface {
	InsertBatch(ctx context.Context, rows []db.HistoryRow) (int, error)
}

// ImportRequest is the wire body for POST /api/history/import.
type ImportRequest struct {
	Entries []PlayEvent `json:"entries"`
}

// ImportResponse is the wire body returned by a successful import call.
type ImportResponse struct {
	Success      bool `json:"success"`
	Inserted     int  `json:"inserted"`
	SkippedShort int  `json:"skippedShort"`
	Total        int  `json:"total"`
}

// Importer persists batches of raw export entries for a user.
type Importer struct {
	store Store
	log   zerolog.Logger
}

// NewImporter creates an Importer backed by the given store.
func NewImporter(store Store, logger zerolog.Logger) *Importer {
	return &Importer{store: store, log: logger}
}

// ImportBatch filters, normalizes, and stores a batch of entries for a user.
// Entries are processed in store-sized chunks, one insert per chunk. A failed
// chunk is logged and skipped; later chunks still run, and chunks already
// written stay written. The result is therefore best-effort: Inserted counts
// rows the store actually wrote, SkippedShort counts entries under the
// minimum play duration, and Total is the size of the input batch.
func (imp *Importer) ImportBatch(ctx context.Context, userID string, entries []PlayEvent) ImportResponse {
	result := ImportResponse{Success: true, Total: len(entries)}

	for _, chunk := range Chunk(entries, StoreChunkSize) {
		rows := make([]db.HistoryRow, 0, len(chunk))
		for _, e := range chunk {
			row, rejection := Normalize(userID, e)
			switch rejection {
			case Accepted:
				rows = append(rows, row)
			case RejectedShort:
				result.SkippedShort++
			default:
				// No track URI or unparseable timestamp: excluded from
				// inserted without a dedicated counter.
			}
		}

		if len(rows) == 0 {
			continue
		}

		inserted, err := imp.store.InsertBatch(ctx, rows)
		if err != nil {
			imp.log.Error().Err(err).
				Str("user_id", userID).
				Int("chunk_size", len(rows)).
				Msg("history chunk insert failed, continuing")
			continue
		}
		result.Inserted += inserted
	}

	return result
}
