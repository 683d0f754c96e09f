package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/imagegen/config"
	"github.com/BaSui01/imagegen/imageplugin"
	"github.com/BaSui01/imagegen/internal/cache"
	"github.com/BaSui01/imagegen/internal/fetch"
	"github.com/BaSui01/imagegen/internal/metrics"
	"github.com/BaSui01/imagegen/internal/pool"
	"github.com/BaSui01/imagegen/internal/server"
	"github.com/BaSui01/imagegen/internal/telemetry"
	"github.com/BaSui01/imagegen/llm/image"
	"github.com/BaSui01/imagegen/onebot"
	"github.com/BaSui01/imagegen/plugins"
	"github.com/BaSui01/imagegen/resolver"
	"github.com/BaSui01/imagegen/types"
)

// shutdownTimeout 限制插件与遥测的关闭时长
const shutdownTimeout = 15 * time.Second

// app 持有一次 serve 运行的全部组件
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	metrics   *metrics.Collector
	manager   *plugins.Manager
	bot       *onebot.Client
	ops       *server.Manager
}

// newApp 按配置组装组件，返回前完成插件初始化
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	providers, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	a.telemetry = providers

	a.metrics = metrics.NewCollector(cfg.Metrics.Namespace, nil, logger)

	plugin := a.buildPlugin()

	a.manager = plugins.NewManager(nil, logger)
	if err := a.manager.Register(plugin); err != nil {
		return nil, fmt.Errorf("register plugin: %w", err)
	}
	if err := a.manager.InitAll(ctx); err != nil {
		return nil, err
	}

	a.bot = onebot.NewClient(onebotConfig(cfg.OneBot), a.dispatch, logger)

	if cfg.Metrics.Addr != "" {
		opsCfg := server.DefaultConfig()
		opsCfg.Addr = cfg.Metrics.Addr
		a.ops = server.NewManager(server.NewOpsHandler(a.metrics.Handler()), opsCfg, logger)
	}
	return a, nil
}

// buildPlugin 组装 fetcher、编解码池、头像缓存、Resolver 与生成客户端
func (a *app) buildPlugin() *imageplugin.Plugin {
	cfg := a.cfg
	logger := a.logger

	fetcher, results := newFetchers(cfg, logger)
	workers := pool.NewWorkerPool(pool.WorkerPoolConfig{
		Workers:   cfg.Resolver.CodecWorkers,
		QueueSize: cfg.Resolver.CodecWorkers * 16,
		PanicHandler: func(r any) {
			logger.Error("codec task panicked", zap.Any("panic", r))
		},
	})

	resolverOpts := []resolver.Option{
		resolver.WithLogger(logger),
		resolver.WithMetrics(a.metrics),
	}
	closers := []imageplugin.Option{
		imageplugin.WithCloser(func(context.Context) error {
			fetcher.Close()
			return nil
		}),
		imageplugin.WithCloser(func(context.Context) error {
			workers.Close()
			return nil
		}),
	}

	if cfg.Cache.Enabled {
		avatarCache, err := newAvatarCache(cfg.Cache, logger)
		if err != nil {
			// 缓存不可用时继续运行，头像每次直接下载
			logger.Warn("avatar cache disabled", zap.Error(err))
		} else {
			resolverOpts = append(resolverOpts, resolver.WithAvatarCache(avatarCache))
			closers = append(closers, imageplugin.WithCloser(func(context.Context) error {
				return avatarCache.Close()
			}))
		}
	}

	res := resolver.New(resolver.Config{
		AvatarURLTemplate: cfg.Resolver.AvatarURLTemplate,
		AvatarTimeout:     cfg.Resolver.AvatarTimeout,
		FetchTimeout:      cfg.Resolver.FetchTimeout,
	}, fetcher, workers, resolverOpts...)

	generator := image.NewClient(image.Config{
		APIKeys: cfg.Generation.APIKeys,
		BaseURL: cfg.Generation.BaseURL,
		Timeout: cfg.Generation.Timeout,
	}, results,
		image.WithLogger(logger),
		image.WithMetrics(a.metrics),
		image.WithTracerProvider(a.telemetry.TracerProvider()),
	)
	if generator.Credentials().Len() == 0 {
		logger.Warn("no generation api keys configured, commands will fail")
	}

	opts := append([]imageplugin.Option{
		imageplugin.WithLogger(logger),
		imageplugin.WithMetrics(a.metrics),
	}, closers...)
	return imageplugin.New(pluginConfig(cfg), res, generator, opts...)
}

// dispatch 是 OneBot 消息回调，每条消息在独立 goroutine 上执行
func (a *app) dispatch(ctx context.Context, msg *types.Message) {
	if _, err := a.manager.Dispatch(ctx, msg, a.bot); err != nil {
		a.logger.Warn("dispatch failed",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// run 阻塞到 ctx 结束或任一组件异常退出，随后按序关闭
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.bot.Run(gctx) })
	if a.ops != nil {
		g.Go(func() error { return a.ops.Run(gctx) })
	}
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		errs = append(errs, runErr)
	}
	if err := a.manager.ShutdownAll(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// newFetchers 创建入站图片与生成结果两个下载器，共用同一个 HTTP 客户端，
// 各自使用独立的大小上限
func newFetchers(cfg *config.Config, logger *zap.Logger) (inbound, results *fetch.Fetcher) {
	inbound = fetch.New(nil, fetch.Config{MaxBytes: cfg.Resolver.MaxImageBytes}, logger)
	results = fetch.New(inbound.Client(), fetch.Config{MaxBytes: cfg.Generation.MaxResultBytes}, logger)
	return inbound, results
}

// newAvatarCache 连接 redis 头像缓存
func newAvatarCache(cfg config.CacheConfig, logger *zap.Logger) (*cache.Manager, error) {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = cfg.Addr
	cacheCfg.Password = cfg.Password
	cacheCfg.DB = cfg.DB
	if cfg.TTL > 0 {
		cacheCfg.DefaultTTL = cfg.TTL
	}
	return cache.NewManager(cacheCfg, logger)
}

// pluginConfig 把配置文件的指令段转换为插件配置
func pluginConfig(cfg *config.Config) imageplugin.Config {
	commands := make([]imageplugin.Command, 0, len(cfg.Commands))
	for _, c := range cfg.Commands {
		commands = append(commands, imageplugin.Command{
			Trigger:        c.Trigger,
			Prompt:         c.Prompt,
			NegativePrompt: c.NegativePrompt,
			Model:          c.Model,
		})
	}
	return imageplugin.Config{
		Basic: imageplugin.Command{
			Trigger:        cfg.Basic.Trigger,
			NegativePrompt: cfg.Basic.NegativePrompt,
			Model:          cfg.Basic.Model,
		},
		Commands:  commands,
		RateLimit: cfg.RateLimit.RPS,
		Burst:     cfg.RateLimit.Burst,
	}
}

func onebotConfig(cfg config.OneBotConfig) onebot.Config {
	return onebot.Config{
		URL:               cfg.URL,
		AccessToken:       cfg.AccessToken,
		ReconnectInterval: cfg.ReconnectInterval,
		ActionTimeout:     cfg.ActionTimeout,
	}
}
