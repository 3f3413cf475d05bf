package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaFetcher retrieves the binary payload of a media reference. The
// channel that received the message owns the credentials to do so.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, ref string) (io.ReadCloser, error)
}

// audioMaxAge is how long a failed transcription's artifact is kept around
// for inspection before the sweep removes it.
const audioMaxAge = time.Hour

// AudioStore keeps voice-note artifacts in a temp directory while they are
// being transcribed. Successful transcriptions delete their artifact at
// once; failures leave it for the age-based sweep.
type AudioStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewAudioStore(dir string, logger *slog.Logger) (*AudioStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "agrobot-audio")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create audio directory %s: %w", dir, err)
	}
	return &AudioStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Save writes the stream to a fresh artifact and returns its path.
func (a *AudioStore) Save(r io.Reader, ext string) (string, error) {
	if ext == "" {
		ext = ".ogg"
	}
	path := filepath.Join(a.dir, uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("cannot create audio artifact: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("cannot write audio artifact: %w", err)
	}
	return path, nil
}

func (a *AudioStore) Remove(path string) {
	if err := os.Remove(path); err != nil {
		a.logger.Warn("cannot remove audio artifact", "path", path, "error", err)
	}
}

// Sweep deletes artifacts older than audioMaxAge and reports how many went.
func (a *AudioStore) Sweep() int {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		a.logger.Warn("audio sweep failed", "dir", a.dir, "error", err)
		return 0
	}
	cutoff := a.now().Add(-audioMaxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(a.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		a.logger.Info("audio sweep", "removed", removed)
	}
	return removed
}

// extFor maps the delivered content type to an artifact extension so the
// transcription API can pick a decoder.
func extFor(mediaType string) string {
	switch {
	case strings.Contains(mediaType, "mpeg"), strings.Contains(mediaType, "mp3"):
		return ".mp3"
	case strings.Contains(mediaType, "mp4"), strings.Contains(mediaType, "m4a"):
		return ".m4a"
	case strings.Contains(mediaType, "wav"):
		return ".wav"
	case strings.Contains(mediaType, "amr"):
		return ".amr"
	default:
		return ".ogg"
	}
}
