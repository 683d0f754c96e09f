// Package fetch provides the shared HTTP downloader used for message images,
// avatars and hosted generation results. One Fetcher owns one long-lived
// *http.Client for the lifetime of the plugin.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/imagegen/internal/tlsutil"
	"github.com/BaSui01/imagegen/types"
)

// ErrTooLarge is returned when a body exceeds Config.MaxBytes.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Config configures a Fetcher.
type Config struct {
	// MaxBytes caps a downloaded body. Zero means unlimited.
	MaxBytes int64
	// UserAgent is sent with every GET.
	UserAgent string
}

// Fetcher downloads URLs over a shared client. Concurrent GETs for the same
// URL share one round trip.
type Fetcher struct {
	client *http.Client
	cfg    Config
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a Fetcher. A nil client gets a dedicated hardened transport.
func New(client *http.Client, cfg Config, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Transport: tlsutil.SecureTransport()}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "imagegen/1.0"
	}
	return &Fetcher{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "fetcher")),
	}
}

// Client exposes the shared client so API calls reuse the same connection pool.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// IsHTTP reports whether src is an http(s) URL.
func IsHTTP(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Get downloads url. timeout <= 0 falls back to the ctx deadline, if any.
// Transport errors, non-2xx statuses and oversized bodies are returned as
// *types.Error with code FETCH_FAILED.
func (f *Fetcher) Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok && timeout <= 0 {
		timeout = time.Until(deadline)
	}
	ch := f.group.DoChan(url, func() (any, error) {
		// 共享请求不随单个调用方取消
		reqCtx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(reqCtx, timeout)
			defer cancel()
		}
		return f.get(reqCtx, url)
	})

	select {
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), types.ErrFetchFailed, "fetch cancelled")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data := res.Val.([]byte)
		if res.Shared {
			// 调用方之间不共享底层切片
			data = append([]byte(nil), data...)
		}
		return data, nil
	}
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.WrapError(err, types.ErrFetchFailed, "failed to create request")
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, types.WrapError(err, types.ErrFetchFailed, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, types.NewError(types.ErrFetchFailed, fmt.Sprintf("unexpected status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, types.WrapError(err, types.ErrFetchFailed, "failed to read body")
	}
	if f.cfg.MaxBytes > 0 && int64(len(data)) > f.cfg.MaxBytes {
		return nil, types.WrapError(ErrTooLarge, types.ErrFetchFailed, fmt.Sprintf("limit %d bytes", f.cfg.MaxBytes))
	}

	f.logger.Debug("fetched",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))
	return data, nil
}

// Close releases idle connections held by the shared client.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
