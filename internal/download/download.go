// Package download implements the concurrent page downloader: a batch of
// numbered pages is fanned over the worker pool, and each worker fetches a
// page, extracts the embedded image URL and writes the image to disk.
package download

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/jayunimelb/bootcamp/pool"
)

// Batch describes one downloader run over the pages First..First+Count-1.
type Batch struct {
	BaseURL string
	First   int
	Count   int
	Workers int
	OutDir  string

	Client *Client
	Cache  *Cache
	Pool   *pool.Pool
	Logger log.Logger
}

// Run executes the batch and blocks until every page has been handled.
// Per-page failures are logged and counted but never stop sibling pages; a
// page past the end of the archive requests a best-effort stop of the rest
// of the batch.
func (b *Batch) Run(ctx context.Context) (pool.Stats, error) {
	if err := ValidateBaseURL(b.BaseURL); err != nil {
		return pool.Stats{}, err
	}
	if b.Count < 0 {
		return pool.Stats{}, errors.Errorf("download: page count must not be negative, got %d", b.Count)
	}
	if err := os.MkdirAll(b.OutDir, 0o755); err != nil {
		return pool.Stats{}, errors.Wrap(err, "creating output directory")
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats, err := b.Pool.Run(ctx, b.Count, b.Workers, func(ctx context.Context, item int) error {
		page := b.First + item
		err := b.fetchPage(page)
		if errors.Is(err, ErrNoMoreContent) {
			// Advisory stop: pages already claimed by other workers drain
			// normally, so the batch may overshoot the end of the archive.
			level.Info(b.Logger).Log("msg", "reached end of archive", "page", page)
			cancel()
			return nil
		}
		return err
	})
	if errors.Is(err, context.Canceled) && parent.Err() == nil {
		// Stopped by the end-of-archive signal, not by the caller.
		err = nil
	}
	return stats, err
}

func (b *Batch) fetchPage(page int) error {
	pageURL := fmt.Sprintf("%s/%d", b.BaseURL, page)

	body, err := b.Client.Get(pageURL)
	if err != nil {
		return err
	}

	ref, ok := ExtractImageURL(body)
	if !ok {
		return errors.Errorf("no image found on %s", pageURL)
	}
	imgURL, err := ResolveURL(pageURL, ref)
	if err != nil {
		return errors.Wrapf(err, "resolving image URL on %s", pageURL)
	}

	if !b.Cache.Claim(imgURL) {
		level.Debug(b.Logger).Log("msg", "image already downloaded", "page", page, "url", imgURL)
		return nil
	}

	img, err := b.Client.Get(imgURL)
	if err != nil {
		b.Cache.Forget(imgURL)
		if errors.Is(err, ErrNoMoreContent) {
			// A missing image is an ordinary per-page failure; only a
			// missing page marks the end of the archive.
			return errors.Errorf("image missing at %s", imgURL)
		}
		return err
	}

	name := fmt.Sprintf("%d-%s", page, path.Base(imgURL))
	if err := os.WriteFile(filepath.Join(b.OutDir, name), img, 0o644); err != nil {
		b.Cache.Forget(imgURL)
		return errors.Wrapf(err, "writing %s", name)
	}

	level.Debug(b.Logger).Log("msg", "downloaded", "page", page, "file", name, "bytes", len(img))
	return nil
}
