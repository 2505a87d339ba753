// Package artifact uploads classified spreadsheets and records where they
// were published.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/model"
	"github.com/venture-galaxy/matchmaker/internal/resilience"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// Uploader publishes a file and returns the URL it can be downloaded from.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	// Backend names the storage backend for logs and metrics.
	Backend() string
}

// New returns the uploader selected by cfg.Backend. progress may be nil.
func New(cfg config.ArtifactConfig, progress chan<- Progress) (Uploader, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.Dir, cfg.PublicBaseURL, progress), nil
	case "ftp":
		return NewFTP(FTPOptions{
			URL:           cfg.FTPURL,
			User:          cfg.FTPUser,
			Password:      cfg.FTPPassword,
			PublicBaseURL: cfg.PublicBaseURL,
			Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
			Retry:         resilience.UploadRetry(cfg),
			Progress:      progress,
		})
	default:
		return nil, eris.Errorf("artifact: unsupported backend %q", cfg.Backend)
	}
}

// ObjectName returns the file name used for an investor's classified
// startups spreadsheet.
func ObjectName(investorID string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", investorID, now.UTC().Format("20060102T150405Z"))
}

// Record stores ref as the investor's lastClassifiedStartups field, leaving
// the rest of the document untouched.
func Record(ctx context.Context, docs store.DocumentStore, investorID string, ref model.ArtifactRef) error {
	err := docs.Put(ctx, model.CollectionInvestors, investorID, map[string]any{
		"lastClassifiedStartups": map[string]any{
			"url":       ref.URL,
			"timestamp": ref.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return eris.Wrapf(err, "artifact: record upload for investor %s", investorID)
	}
	return nil
}

// LocalUploader writes files into a directory.
type LocalUploader struct {
	dir      string
	baseURL  string
	progress chan<- Progress
}

// NewLocal creates a LocalUploader. With an empty baseURL the returned URLs
// are file:// URLs.
func NewLocal(dir, baseURL string, progress chan<- Progress) *LocalUploader {
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), progress: progress}
}

// Backend implements Uploader.
func (u *LocalUploader) Backend() string { return "local" }

// Upload implements Uploader.
func (u *LocalUploader) Upload(_ context.Context, name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "artifact: create dir %s", u.dir)
	}

	path := filepath.Join(u.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "artifact: create %s", path)
	}

	_, copyErr := io.Copy(f, NewProgressReader(data, u.progress))
	closeErr := f.Close()
	if copyErr != nil {
		return "", eris.Wrapf(copyErr, "artifact: write %s", path)
	}
	if closeErr != nil {
		return "", eris.Wrapf(closeErr, "artifact: close %s", path)
	}

	zap.L().Info("artifact: stored", zap.String("path", path), zap.Int("bytes", len(data)))

	if u.baseURL != "" {
		return u.baseURL + "/" + name, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}
