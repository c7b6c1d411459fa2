// Command history-import uploads Spotify extended streaming history export
// files to a running wrapped server.
//
// Usage:
//
//	history-import -server http://127.0.0.1:8080 -session <session_id> file1.json file2.json ...
//
// The session ID comes from the session_id cookie of a signed-in browser
// session. Once given, it is cached under the user config directory so later
// runs can omit the flag.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/antigravity/go-spotify-wrapped/internal/history"
	"github.com/antigravity/go-spotify-wrapped/internal/web"
)

const (
	configDirName   = "spotify-wrapped"
	sessionFileName = "session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	serverURL := flag.String("server", defaultServerURL(), "base URL of the wrapped server")
	sessionID := flag.String("session", "", "session ID from the session_id cookie (cached after first use)")
	chunkSize := flag.Int("chunk-size", history.TransportChunkSize, "entries per upload request")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() == 0 {
		return fmt.Errorf("no export files given; pass one or more Streaming_History*.json files")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	session, err := resolveSession(*sessionID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader := history.NewUploader(*serverURL, session,
		history.WithChunkSize(*chunkSize),
		history.WithLogger(logger),
		history.WithFileStatus(printFileStatus),
		history.WithProgress(printProgress),
	)

	summary, err := uploader.Run(ctx, flag.Args())
	if err != nil {
		return err
	}
	fmt.Println()

	failed := 0
	for _, f := range summary.Files {
		if f.Status == history.StatusError {
			failed++
		}
	}

	fmt.Printf("Imported %d new plays (%d skipped as too short) out of %d entries across %d files.\n",
		summary.Inserted, summary.SkippedShort, summary.Total, len(summary.Files))
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed; rerun to retry (already imported plays are not duplicated)", failed)
	}
	return nil
}

func defaultServerURL() string {
	if url := os.Getenv("WRAPPED_SERVER_URL"); url != "" {
		return url
	}
	return "http://" + web.DefaultAddr
}

func printFileStatus(r history.FileReport) {
	switch r.Status {
	case history.StatusProcessing:
		fmt.Printf("%-40s uploading (%d entries)\n", r.Name, r.Count)
	case history.StatusDone:
		fmt.Printf("%-40s done\n", r.Name)
	case history.StatusError:
		fmt.Printf("%-40s error: %s\n", r.Name, r.Error)
	}
}

func printProgress(p history.Progress) {
	fmt.Printf("\r%d/%d entries (%d%%)", p.Processed, p.Total, p.Percent)
	if p.Processed == p.Total {
		fmt.Println()
	}
}

// resolveSession picks the session ID from the flag, the environment, or the
// cache file, in that order, and caches a freshly given ID for later runs.
func resolveSession(flagValue string) (string, error) {
	if flagValue == "" {
		flagValue = os.Getenv("WRAPPED_SESSION_ID")
	}

	path, err := sessionCachePath()
	if err != nil {
		return "", err
	}

	if flagValue != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return "", fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(flagValue+"\n"), 0600); err != nil {
			return "", fmt.Errorf("caching session ID: %w", err)
		}
		return flagValue, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no session ID; sign in at %s/auth/login and pass the session_id cookie via -session", defaultServerURL())
		}
		return "", fmt.Errorf("reading cached session ID: %w", err)
	}

	cached := strings.TrimSpace(string(data))
	if cached == "" {
		return "", fmt.Errorf("cached session file %s is empty; pass -session", path)
	}
	return cached, nil
}

func sessionCachePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir: %w", err)
	}
	return filepath.Join(configDir, configDirName, sessionFileName), nil
}
