package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// FileStatus tracks one export file through the upload.
// Transitions: pending -> processing -> done|error. Terminal states are final.
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusProcessing FileStatus = "processing"
	StatusDone       FileStatus = "done"
	StatusError      FileStatus = "error"
)

// FileReport is the per-file outcome of an upload.
type FileReport struct {
	Name   string
	Count  int
	Status FileStatus
	Error  string
}

// Progress is emitted after every uploaded chunk.
type Progress struct {
	Processed int
	Total     int
	Percent   int
}

// Summary aggregates counters across all files and chunks of an upload.
type Summary struct {
	Inserted     int
	SkippedShort int
	Total        int
	Files        []FileReport
}

// ErrNoFiles is returned when the uploader is given no JSON files to process.
var ErrNoFiles = errors.New("no JSON export files to import")

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithChunkSize overrides the transport chunk size.
func WithChunkSize(n int) UploaderOption {
	return func(u *Uploader) {
		u.chunkSize = n
	}
}

// WithProgress sets a callback invoked after every uploaded chunk.
func WithProgress(fn func(Progress)) UploaderOption {
	return func(u *Uploader) {
		u.onProgress = fn
	}
}

// WithFileStatus sets a callback invoked on every file status change.
func WithFileStatus(fn func(FileReport)) UploaderOption {
	return func(u *Uploader) {
		u.onFile = fn
	}
}

// WithLogger sets the uploader's logger.
func WithLogger(logger zerolog.Logger) UploaderOption {
	return func(u *Uploader) {
		u.log = logger
	}
}

// Uploader drives local export files through the import endpoint. Files are
// processed one at a time and chunks are sent strictly sequentially, so
// progress moves linearly and the server sees at most one request in flight.
type Uploader struct {
	client     *resty.Client
	chunkSize  int
	onProgress func(Progress)
	onFile     func(FileReport)
	log        zerolog.Logger
}

// NewUploader creates an Uploader that posts to the given server, presenting
// the given session ID as the session cookie.
func NewUploader(baseURL, sessionID string, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetCookie(&http.Cookie{Name: "session_id", Value: sessionID}),
		chunkSize: TransportChunkSize,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type parsedFile struct {
	name    string
	entries []PlayEvent
}

// Run imports the given export files and returns the aggregate summary.
// A file that fails to parse or upload is marked error and skipped; the
// remaining files still run, so the summary is always produced.
func (u *Uploader) Run(ctx context.Context, paths []string) (*Summary, error) {
	var jsonPaths []string
	for _, p := range paths {
		if filepath.Ext(p) == ".json" {
			jsonPaths = append(jsonPaths, p)
		}
	}
	if len(jsonPaths) == 0 {
		return nil, ErrNoFiles
	}

	// Parse everything up front so the total entry count, and with it the
	// progress percentage, is known before the first request goes out.
	parsed := make([]parsedFile, 0, len(jsonPaths))
	reports := make([]FileReport, 0, len(jsonPaths))
	for _, path := range jsonPaths {
		name := filepath.Base(path)
		entries, err := parseExportFile(path)
		if err != nil {
			u.log.Warn().Err(err).Str("file", name).Msg("skipping unparseable export file")
			reports = append(reports, FileReport{Name: name, Status: StatusError, Error: err.Error()})
			continue
		}
		parsed = append(parsed, parsedFile{name: name, entries: entries})
		reports = append(reports, FileReport{Name: name, Count: len(entries), Status: StatusPending})
	}
	for _, r := range reports {
		u.reportFile(r)
	}

	totalEntries := 0
	for _, p := range parsed {
		totalEntries += len(p.entries)
	}

	summary := &Summary{Total: totalEntries}
	processed := 0

	for _, p := range parsed {
		idx := reportIndex(reports, p.name, StatusPending)
		reports[idx].Status = StatusProcessing
		u.reportFile(reports[idx])

		fileOK := true
		for _, chunk := range Chunk(p.entries, u.chunkSize) {
			resp, err := u.postChunk(ctx, chunk)
			if err != nil {
				u.log.Warn().Err(err).Str("file", p.name).Msg("chunk upload failed")
				fileOK = false
			} else {
				summary.Inserted += resp.Inserted
				summary.SkippedShort += resp.SkippedShort
			}

			processed += len(chunk)
			u.reportProgress(processed, totalEntries)
		}

		if fileOK {
			reports[idx].Status = StatusDone
		} else {
			reports[idx].Status = StatusError
			reports[idx].Error = "upload failed"
		}
		u.reportFile(reports[idx])
	}

	summary.Files = reports
	return summary, nil
}

func (u *Uploader) postChunk(ctx context.Context, chunk []PlayEvent) (*ImportResponse, error) {
	var result ImportResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetBody(ImportRequest{Entries: chunk}).
		SetResult(&result).
		Post("/api/history/import")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("import endpoint returned %s", resp.Status())
	}
	return &result, nil
}

func (u *Uploader) reportFile(r FileReport) {
	if u.onFile != nil {
		u.onFile(r)
	}
}

func (u *Uploader) reportProgress(processed, total int) {
	if u.onProgress == nil {
		return
	}
	percent := 0
	if total > 0 {
		percent = processed * 100 / total
	}
	u.onProgress(Progress{Processed: processed, Total: total, Percent: percent})
}

// reportIndex finds the report for name with the given status. Files may
// repeat by basename across directories; matching on status picks the first
// not-yet-processed occurrence.
func reportIndex(reports []FileReport, name string, status FileStatus) int {
	for i, r := range reports {
		if r.Name == name && r.Status == status {
			return i
		}
	}
	return -1
}

// parseExportFile reads one export file as a JSON array of play events.
func parseExportFile(path string) ([]PlayEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var entries []PlayEvent
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}
