package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/dgallion1/modsearch/internal/store"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads a single module definition.
type Fetcher interface {
	GetDefinition(ctx context.Context, moduleID string) (*platform.Definition, error)
}

// DownloadSummary reports the outcome of DownloadAll.
type DownloadSummary struct {
	Total      int      `json:"total"`
	Downloaded int      `json:"downloaded"`
	Failed     int      `json:"failed"`
	Files      []string `json:"files"`
	Errors     []string `json:"errors"`
}

// Downloader fetches definitions with bounded concurrency and writes them
// through the store.
type Downloader struct {
	fetch       Fetcher
	store       *store.Store
	log         *slog.Logger
	concurrency int

	// backoff is replaceable in tests.
	backoff func(attempt int) time.Duration

	// OnResult, when set, is called after each module finishes.
	OnResult func(module platform.Module, err error)
}

func NewDownloader(fetch Fetcher, st *store.Store, log *slog.Logger, concurrency int) *Downloader {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Downloader{
		fetch:       fetch,
		store:       st,
		log:         log,
		concurrency: concurrency,
		backoff:     Backoff,
	}
}

// DownloadAll downloads every module into dir. A failed module is recorded
// and does not stop the others. Files are listed in module order.
func (d *Downloader) DownloadAll(ctx context.Context, modules []platform.Module, dir string) DownloadSummary {
	files := make([]string, len(modules))
	errs := make([]error, len(modules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	var mu sync.Mutex
	for i, m := range modules {
		g.Go(func() error {
			path, err := d.downloadOne(gctx, m, dir)
			files[i], errs[i] = path, err
			if d.OnResult != nil {
				mu.Lock()
				d.OnResult(m, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	summary := DownloadSummary{Total: len(modules), Files: []string{}, Errors: []string{}}
	for i, m := range modules {
		if errs[i] != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s (%s): %s", m.Name, m.ID, errs[i]))
			continue
		}
		summary.Downloaded++
		summary.Files = append(summary.Files, files[i])
	}
	return summary
}

func (d *Downloader) downloadOne(ctx context.Context, m platform.Module, dir string) (string, error) {
	log := d.log.With("module_id", m.ID, "module", m.Name)

	var (
		def     *platform.Definition
		lastErr error
	)
	for attempt := range MaxRetries {
		def, lastErr = d.fetch.GetDefinition(ctx, m.ID)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable download error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(d.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if lastErr != nil {
		log.Error("download failed", "error", lastErr)
		return "", lastErr
	}

	if def.Name == "" {
		def.Name = m.Name
	}
	path, err := d.store.WriteDefinition(dir, def)
	if err != nil {
		log.Error("write definition failed", "error", err)
		return "", err
	}
	log.Info("downloaded module definition", "path", path)
	return path, nil
}
