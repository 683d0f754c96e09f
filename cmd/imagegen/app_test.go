package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/config"
	"github.com/BaSui01/imagegen/internal/fetch"
	"github.com/BaSui01/imagegen/plugins"
)

func TestApp_RunAndShutdown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OneBot.URL = "ws://127.0.0.1:1"
	cfg.OneBot.ReconnectInterval = 10 * time.Millisecond
	cfg.Metrics.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.ops)

	info, ok := a.manager.Registry().Get("imagegen")
	require.True(t, ok)
	assert.Equal(t, "0.1.0", info.Metadata.Version)
	assert.Equal(t, plugins.PluginStateInitialized, info.State)

	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestApp_NoOpsServerWithoutAddr(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Addr = ""

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, a.ops)
	require.NoError(t, a.manager.ShutdownAll(context.Background()))
}

func TestNewFetchers_SeparateLimits(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Resolver.MaxImageBytes = 1024
	cfg.Generation.MaxResultBytes = 4096

	inbound, results := newFetchers(cfg, zap.NewNop())
	assert.Same(t, inbound.Client(), results.Client())

	_, err := inbound.Get(context.Background(), srv.URL+"/in.png", time.Second)
	assert.ErrorIs(t, err, fetch.ErrTooLarge)

	data, err := results.Get(context.Background(), srv.URL+"/out.png", time.Second)
	require.NoError(t, err)
	assert.Len(t, data, len(body))
}
