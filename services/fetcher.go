package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// ProgressFunc returns a writer that receives downloaded bytes for a file of
// the given total size (-1 if unknown). It may return nil.
type ProgressFunc func(name string, total int64) io.Writer

// Fetcher downloads remote files to disk. Concurrent fetches of the same
// destination share one request.
type Fetcher struct {
	client   *http.Client
	group    singleflight.Group
	progress ProgressFunc
}

// NewFetcher creates a fetcher; a nil client means a client with timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{client: client}
}

// SetProgressFunc installs a progress writer factory.
func (f *Fetcher) SetProgressFunc(fn ProgressFunc) {
	f.progress = fn
}

// Fetch downloads url into dest and returns the number of bytes written.
// The file is written to a temporary name and renamed when complete.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (int64, error) {
	v, err, _ := f.group.Do(dest, func() (interface{}, error) {
		return f.fetch(ctx, url, dest)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (f *Fetcher) fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("url request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("url response error: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to make directory: %w", err)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	var w io.Writer = out
	if f.progress != nil {
		if pw := f.progress(filepath.Base(dest), resp.ContentLength); pw != nil {
			w = io.MultiWriter(out, pw)
		}
	}

	n, err := io.Copy(w, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}
