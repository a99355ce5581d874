// Package download streams Earthdata assets to disk using netrc credentials.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultChunkSize is the read size used while streaming a body to disk.
const DefaultChunkSize = 1024

const maxRedirects = 10

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: status %d %s", e.URL, e.StatusCode, e.Reason)
}

// ProgressFunc receives the running byte count and the advertised total
// (0 when the server sent no Content-Length).
type ProgressFunc func(done, total int64)

// Result describes a finished transfer.
type Result struct {
	Path    string
	Written int64
	Total   int64

	// Complete is false when a Content-Length was advertised and the number
	// of bytes written differs from it.
	Complete bool
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout bounds a whole transfer. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) { dl.client.Timeout = d }
}

// WithChunkSize overrides the streaming chunk size.
func WithChunkSize(n int) Option {
	return func(dl *Downloader) {
		if n > 0 {
			dl.chunkSize = n
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(dl *Downloader) { dl.progress = fn }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(dl *Downloader) { dl.logger = logger }
}

// Downloader performs authenticated GETs. Earthdata answers a data request
// with a redirect to its login host and sets session cookies on the way
// back, so the client keeps a cookie jar and re-attaches credentials on
// redirects to the login host.
type Downloader struct {
	client    *http.Client
	creds     Credentials
	chunkSize int
	progress  ProgressFunc
	logger    *slog.Logger
}

// New creates a Downloader for the given credentials.
func New(creds Credentials, opts ...Option) (*Downloader, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	d := &Downloader{
		creds:     creds,
		chunkSize: DefaultChunkSize,
		logger:    slog.Default(),
	}
	d.client = &http.Client{
		Jar:           jar,
		CheckRedirect: d.checkRedirect,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

func (d *Downloader) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Hostname() == d.creds.Host {
		req.SetBasicAuth(d.creds.Login, d.creds.Password)
	}
	return nil
}

// Download streams url into dest, creating or truncating it. A size
// mismatch against Content-Length is logged and reported in the Result but
// is not an error; the partial file is left in place.
func (d *Downloader) Download(ctx context.Context, url, dest string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(d.creds.Login, d.creds.Password)
	req.Header.Set("User-Agent", "emit-prep/1.0")

	d.logger.DebugContext(ctx, "starting download",
		slog.String("url", url),
		slog.String("dest", dest),
	)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.ErrorContext(ctx, "download request failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.ErrorContext(ctx, "download returned non-200 status",
			slog.String("url", url),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	written, err := d.stream(resp.Body, dest, total)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Path:     dest,
		Written:  written,
		Total:    total,
		Complete: total == 0 || written == total,
	}

	if !res.Complete {
		d.logger.WarnContext(ctx, "download size mismatch",
			slog.String("url", url),
			slog.String("dest", dest),
			slog.Int64("expected_bytes", total),
			slog.Int64("written_bytes", written),
		)
	} else {
		d.logger.InfoContext(ctx, "download completed",
			slog.String("dest", dest),
			slog.Int64("bytes", written),
		)
	}

	return res, nil
}

// stream copies body to a freshly created dest in chunkSize reads. A body
// that ends early is not an error here; the caller compares sizes.
func (d *Downloader) stream(body io.Reader, dest string, total int64) (written int64, err error) {
	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dest, closeErr)
		}
	}()

	buf := make([]byte, d.chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("failed to write %s: %w", dest, werr)
			}
			written += int64(n)
			if d.progress != nil {
				d.progress(written, total)
			}
		}
		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			return written, nil
		}
		return written, fmt.Errorf("failed to read response body: %w", readErr)
	}
}
