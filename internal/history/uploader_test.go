package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// newImportServer returns an httptest server backed by a real Importer over
// a mockStore, counting requests and the entry count of each request.
func newImportServer(t *testing.T, store *mockStore) (*httptest.Server, *atomic.Int32, *[]int) {
	t.Helper()

	var requests atomic.Int32
	var batchSizes []int
	imp := NewImporter(store, zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Entries) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		batchSizes = append(batchSizes, len(req.Entries))

		result := imp.ImportBatch(r.Context(), "user-1", req.Entries)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}))
	t.Cleanup(srv.Close)

	return srv, &requests, &batchSizes
}

func writeExportFile(t *testing.T, dir, name string, entries []PlayEvent) string {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshaling entries: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestUploaderTransportChunking(t *testing.T) {
	store := newMockStore()
	srv, requests, batchSizes := newImportServer(t, store)

	dir := t.TempDir()
	path := writeExportFile(t, dir, "StreamingHistory_music_0.json", makeEntries(501))

	uploader := NewUploader(srv.URL, "session-1", WithChunkSize(500))
	summary, err := uploader.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := requests.Load(); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
	if len(*batchSizes) != 2 || (*batchSizes)[0] != 500 || (*batchSizes)[1] != 1 {
		t.Errorf("batch sizes = %v, want [500 1]", *batchSizes)
	}
	if summary.Inserted != 501 {
		t.Errorf("Inserted = %d, want 501", summary.Inserted)
	}
	if summary.Total != 501 {
		t.Errorf("Total = %d, want 501", summary.Total)
	}
}

func TestUploaderMalformedFileContinues(t *testing.T) {
	store := newMockStore()
	srv, _, _ := newImportServer(t, store)

	dir := t.TempDir()
	good := writeExportFile(t, dir, "good.json", makeEntries(3))
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("this is not json"), 0o600); err != nil {
		t.Fatalf("writing bad file: %v", err)
	}

	uploader := NewUploader(srv.URL, "session-1", WithChunkSize(500))
	summary, err := uploader.Run(context.Background(), []string{good, bad})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	statuses := map[string]FileStatus{}
	counts := map[string]int{}
	for _, f := range summary.Files {
		statuses[f.Name] = f.Status
		counts[f.Name] = f.Count
	}
	if statuses["good.json"] != StatusDone {
		t.Errorf("good.json status = %s, want done", statuses["good.json"])
	}
	if statuses["bad.json"] != StatusError {
		t.Errorf("bad.json status = %s, want error", statuses["bad.json"])
	}
	if counts["bad.json"] != 0 {
		t.Errorf("bad.json count = %d, want 0", counts["bad.json"])
	}
	// Aggregate total covers only the parseable file.
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", summary.Inserted)
	}
}

func TestUploaderTransportFailureContinues(t *testing.T) {
	// Server fails every request; both files must still be attempted and the
	// summary still produced.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	first := writeExportFile(t, dir, "first.json", makeEntries(2))
	second := writeExportFile(t, dir, "second.json", makeEntries(2))

	uploader := NewUploader(srv.URL, "session-1", WithChunkSize(500))
	summary, err := uploader.Run(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	for _, f := range summary.Files {
		if f.Status != StatusError {
			t.Errorf("%s status = %s, want error", f.Name, f.Status)
		}
	}
	if summary.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", summary.Inserted)
	}
	if summary.Total != 4 {
		t.Errorf("Total = %d, want 4", summary.Total)
	}
}

func TestUploaderProgressAndStatusTransitions(t *testing.T) {
	store := newMockStore()
	srv, _, _ := newImportServer(t, store)

	dir := t.TempDir()
	path := writeExportFile(t, dir, "export.json", makeEntries(6))

	var progress []int
	var transitions []FileStatus
	uploader := NewUploader(srv.URL, "session-1",
		WithChunkSize(2),
		WithProgress(func(p Progress) { progress = append(progress, p.Percent) }),
		WithFileStatus(func(r FileReport) { transitions = append(transitions, r.Status) }),
	)

	if _, err := uploader.Run(context.Background(), []string{path}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	wantProgress := []int{33, 66, 100}
	if len(progress) != len(wantProgress) {
		t.Fatalf("progress events = %v, want %v", progress, wantProgress)
	}
	for i, p := range wantProgress {
		if progress[i] != p {
			t.Errorf("progress[%d] = %d, want %d", i, progress[i], p)
		}
	}

	wantTransitions := []FileStatus{StatusPending, StatusProcessing, StatusDone}
	if len(transitions) != len(wantTransitions) {
		t.Fatalf("status transitions = %v, want %v", transitions, wantTransitions)
	}
	for i, s := range wantTransitions {
		if transitions[i] != s {
			t.Errorf("transition[%d] = %s, want %s", i, transitions[i], s)
		}
	}
}

func TestUploaderNoFiles(t *testing.T) {
	uploader := NewUploader("http://127.0.0.1:0", "session-1")
	if _, err := uploader.Run(context.Background(), []string{"notes.txt"}); err != ErrNoFiles {
		t.Errorf("Run() error = %v, want ErrNoFiles", err)
	}
}
