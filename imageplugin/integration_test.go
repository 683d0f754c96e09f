package imageplugin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/imagegen/internal/fetch"
	"github.com/BaSui01/imagegen/internal/metrics"
	"github.com/BaSui01/imagegen/internal/pool"
	"github.com/BaSui01/imagegen/llm/image"
	"github.com/BaSui01/imagegen/plugins"
	"github.com/BaSui01/imagegen/resolver"
	tu "github.com/BaSui01/imagegen/testutil"
	"github.com/BaSui01/imagegen/testutil/fixtures"
	"github.com/BaSui01/imagegen/types"
)

// 真实的 Resolver + Client + Fetcher 通过 Manager 分发
func TestEndToEnd_AnimatedAttachment(t *testing.T) {
	anim := fixtures.AnimatedGIF(4, 4, 3)
	var (
		mu       sync.Mutex
		uploaded string
	)

	srv := tu.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/anim.gif":
			_, _ = w.Write(anim)
		case r.URL.Path == "/v1/images/generations":
			if r.Header.Get("Authorization") == "Bearer bad" {
				http.Error(w, "invalid key", http.StatusUnauthorized)
				return
			}
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			uploaded = req["image"]
			mu.Unlock()
			_, _ = w.Write([]byte(`{"data":[{"b64_json":"` +
				strings.TrimRight(base64.StdEncoding.EncodeToString([]byte("RESULT")), "=") + `"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, nil)
	fetcher := fetch.New(srv.Client(), fetch.Config{}, nil)
	workers := pool.NewWorkerPool(pool.DefaultWorkerPoolConfig())

	res := resolver.New(resolver.Config{AvatarURLTemplate: srv.URL + "/avatar/{id}"}, fetcher, workers,
		resolver.WithMetrics(collector))
	client := image.NewClient(image.Config{APIKeys: []string{"bad", "good"}, BaseURL: srv.URL, Timeout: 5 * time.Second},
		fetcher, image.WithMetrics(collector))
	plugin := New(testConfig(), res, client,
		WithMetrics(collector),
		WithCloser(func(context.Context) error { fetcher.Close(); return nil }),
		WithCloser(func(context.Context) error { workers.Close(); return nil }))

	manager := plugins.NewManager(nil, nil)
	require.NoError(t, manager.Register(plugin))
	require.NoError(t, manager.InitAll(context.Background()))

	msg := &types.Message{ID: "m1", Sender: "10001", Segments: []types.Segment{
		&types.TextSegment{Text: "生图 make it blue"},
		&types.ImageSegment{URL: srv.URL + "/anim.gif"},
	}}
	resp := &fakeResponder{}
	handled, err := manager.Dispatch(tu.TestContext(t), msg, resp)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, resp.replies, 2)
	assert.Equal(t, AckText, resp.replies[0].text)
	assert.Equal(t, []byte("RESULT"), resp.replies[1].image)

	// 上传的是归一化后的 PNG，而不是原始 GIF
	mu.Lock()
	sent, err := base64.StdEncoding.DecodeString(uploaded)
	mu.Unlock()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(sent), "\x89PNG"))

	assert.Equal(t, 1, client.Credentials().Cursor())
	expected := `
# HELP test_dispatch_total Total number of matched commands by status
# TYPE test_dispatch_total counter
test_dispatch_total{command="生图",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_dispatch_total"))

	require.NoError(t, manager.ShutdownAll(context.Background()))
	_, err = pool.Run(context.Background(), workers, func(context.Context) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, pool.ErrPoolClosed)
}
