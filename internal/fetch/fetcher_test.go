package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/imagegen/types"
)

func TestFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "imagegen/1.0", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("PNGDATA"))
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			_, _ = w.Write(make([]byte, 64))
		}
	}))
	defer srv.Close()

	f := New(srv.Client(), Config{MaxBytes: 32}, nil)
	defer f.Close()

	t.Run("success", func(t *testing.T) {
		data, err := f.Get(context.Background(), srv.URL+"/ok", time.Second)
		require.NoError(t, err)
		assert.Equal(t, []byte("PNGDATA"), data)
	})

	t.Run("non-2xx", func(t *testing.T) {
		_, err := f.Get(context.Background(), srv.URL+"/missing", time.Second)
		require.Error(t, err)
		e, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrFetchFailed, e.Code)
		assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := f.Get(context.Background(), srv.URL+"/big", time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	f := New(srv.Client(), Config{}, nil)
	_, err := f.Get(context.Background(), srv.URL, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrFetchFailed))
}

func TestFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := New(nil, Config{}, nil)
	_, err := f.Get(context.Background(), url, time.Second)
	assert.True(t, types.IsErrorCode(err, types.ErrFetchFailed))
}

func TestFetcher_DeduplicatesConcurrentGets(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte("avatar"))
	}))
	defer srv.Close()

	f := New(srv.Client(), Config{}, nil)

	var wg sync.WaitGroup
	results := make([][]byte, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := f.Get(context.Background(), srv.URL+"/same", time.Second)
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, r := range results {
		assert.Equal(t, []byte("avatar"), r)
	}
}

func TestIsHTTP(t *testing.T) {
	assert.True(t, IsHTTP("http://x/a.png"))
	assert.True(t, IsHTTP("HTTPS://x/a.png"))
	assert.False(t, IsHTTP("base64://AAAA"))
	assert.False(t, IsHTTP("file:///tmp/a.png"))
}
