package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/imagegen/internal/pool"
	"github.com/BaSui01/imagegen/types"
)

const testTemplate = "https://avatar.test/{id}"

// fakeDownloader 按 URL 返回预置字节，未登记的 URL 视为 404
type fakeDownloader struct {
	mu        sync.Mutex
	responses map[string][]byte
	calls     []string
	timeouts  map[string]time.Duration
}

func newFakeDownloader(responses map[string][]byte) *fakeDownloader {
	if responses == nil {
		responses = map[string][]byte{}
	}
	return &fakeDownloader{responses: responses, timeouts: map[string]time.Duration{}}
}

func (f *fakeDownloader) Get(_ context.Context, url string, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	f.timeouts[url] = timeout
	data, ok := f.responses[url]
	if !ok {
		return nil, types.NewError(types.ErrFetchFailed, "unexpected status 404").WithHTTPStatus(404)
	}
	return data, nil
}

func (f *fakeDownloader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestPool(t testing.TB) *pool.WorkerPool {
	t.Helper()
	p := pool.NewWorkerPool(pool.WorkerPoolConfig{Workers: 2, QueueSize: 8})
	t.Cleanup(p.Close)
	return p
}

func newTestResolver(t testing.TB, dl Downloader, opts ...Option) *Resolver {
	t.Helper()
	r := New(Config{AvatarURLTemplate: testTemplate, AvatarTimeout: 10 * time.Second}, dl, newTestPool(t), opts...)
	r.randomID = func() string { return "123456789" }
	return r
}

func avatar(id string) string {
	return "https://avatar.test/" + id
}
