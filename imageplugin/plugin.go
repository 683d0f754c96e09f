package imageplugin

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/internal/ctxkeys"
	"github.com/BaSui01/imagegen/internal/metrics"
	"github.com/BaSui01/imagegen/llm/image"
	"github.com/BaSui01/imagegen/plugins"
	"github.com/BaSui01/imagegen/types"
)

const (
	// PluginName 插件名
	PluginName = "imagegen"
	// PluginVersion 插件版本
	PluginVersion = "0.1.0"

	// AckText 生成开始时的回复
	AckText = "正在生成中，请稍候..."
	// FailurePrefix 生成失败回复前缀
	FailurePrefix = "生成失败，"
	// ErrorPrefix 生成过程异常回复前缀
	ErrorPrefix = "生成出错: "
	// RateLimitedText 被限流时的回复
	RateLimitedText = "请求过于频繁，请稍后再试。"

	noImageReason = "未返回图片。"
)

// Responder 把回复渲染回消息所在会话
type Responder = plugins.Responder

// Resolver 从消息中获取参考图
type Resolver interface {
	Resolve(ctx context.Context, msg *types.Message) (*types.ImagePayload, bool)
}

// Generator 调用生成接口
type Generator interface {
	Generate(ctx context.Context, img []byte, prompt, negativePrompt, model string) image.Outcome
}

// Config 配置指令与限流
type Config struct {
	Basic     Command   `json:"basic" yaml:"basic"`
	Commands  []Command `json:"commands" yaml:"commands"`
	RateLimit float64   `json:"rate_limit" yaml:"rate_limit"`
	Burst     int       `json:"burst" yaml:"burst"`
}

// Plugin 生图插件
type Plugin struct {
	cfg       Config
	resolver  Resolver
	generator Generator
	limiter   *senderLimiter
	closers   []func(context.Context) error
	metrics   *metrics.Collector
	logger    *zap.Logger
}

var (
	_ plugins.Plugin           = (*Plugin)(nil)
	_ plugins.MessageHandler   = (*Plugin)(nil)
	_ plugins.MetadataProvider = (*Plugin)(nil)
)

// Option 配置 Plugin
type Option func(*Plugin)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Plugin) { p.metrics = m }
}

// WithCloser 注册 Shutdown 时释放的资源，按注册逆序执行
func WithCloser(fn func(context.Context) error) Option {
	return func(p *Plugin) {
		if fn != nil {
			p.closers = append(p.closers, fn)
		}
	}
}

// New 创建插件
func New(cfg Config, resolver Resolver, generator Generator, opts ...Option) *Plugin {
	p := &Plugin{
		cfg:       cfg,
		resolver:  resolver,
		generator: generator,
		limiter:   newSenderLimiter(cfg.RateLimit, cfg.Burst),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "imageplugin"))
	return p
}

// Name 实现 plugins.Plugin
func (p *Plugin) Name() string { return PluginName }

// Version 实现 plugins.Plugin
func (p *Plugin) Version() string { return PluginVersion }

// Metadata 实现 plugins.MetadataProvider
func (p *Plugin) Metadata() plugins.PluginMetadata {
	commands := make([]string, 0, len(p.cfg.Commands)+1)
	if p.cfg.Basic.Trigger != "" {
		commands = append(commands, p.cfg.Basic.Trigger)
	}
	for _, c := range p.cfg.Commands {
		commands = append(commands, c.Trigger)
	}
	return plugins.PluginMetadata{
		Name:        PluginName,
		Version:     PluginVersion,
		Description: "通用图片生成插件",
		Commands:    commands,
	}
}

// Init 校验依赖与指令配置
func (p *Plugin) Init(context.Context) error {
	if p.resolver == nil || p.generator == nil {
		return errors.New("imageplugin: resolver and generator are required")
	}
	// 空触发词的自定义指令跳过，不影响其余指令
	commands := make([]Command, 0, len(p.cfg.Commands))
	for i, c := range p.cfg.Commands {
		if strings.TrimSpace(c.Trigger) == "" {
			p.logger.Warn("skipping custom command with empty trigger", zap.Int("index", i))
			continue
		}
		commands = append(commands, c)
	}
	p.cfg.Commands = commands

	if p.cfg.Basic.Trigger == "" && len(p.cfg.Commands) == 0 {
		return errors.New("imageplugin: no trigger configured")
	}
	p.logger.Info("image plugin ready",
		zap.String("basic_trigger", p.cfg.Basic.Trigger),
		zap.Int("custom_commands", len(p.cfg.Commands)))
	return nil
}

// Shutdown 释放共享资源
func (p *Plugin) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// HandleMessage 实现 plugins.MessageHandler
func (p *Plugin) HandleMessage(ctx context.Context, msg *types.Message, responder Responder) (bool, error) {
	if msg == nil {
		return false, nil
	}
	inv, ok := p.match(msg.PlainText())
	if !ok {
		return false, nil
	}

	if !p.limiter.Allow(msg.Sender) {
		p.metrics.RecordDispatch(inv.command, "rate_limited")
		p.logger.Info("sender rate limited", zap.String("sender", msg.Sender), zap.String("command", inv.command))
		return true, responder.SendText(ctx, msg, RateLimitedText)
	}

	return true, p.run(ctx, msg, inv, responder)
}

// match 自定义指令优先于基础指令
func (p *Plugin) match(text string) (invocation, bool) {
	if text == "" {
		return invocation{}, false
	}
	if inv, ok := matchCustom(p.cfg.Commands, text); ok {
		return inv, true
	}
	return matchBasic(p.cfg.Basic, text)
}

func (p *Plugin) run(ctx context.Context, msg *types.Message, inv invocation, responder Responder) (err error) {
	taskID := uuid.NewString()
	ctx = ctxkeys.WithCommand(ctxkeys.WithTaskID(ctx, taskID), inv.command)
	logger := p.logger.With(
		zap.String("task_id", taskID),
		zap.String("command", inv.command),
		zap.String("sender", msg.Sender),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("generation panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			p.metrics.RecordDispatch(inv.command, "panic")
			err = errors.Join(
				fmt.Errorf("generation panicked: %v", r),
				responder.SendText(ctx, msg, fmt.Sprintf("%s%v", ErrorPrefix, r)),
			)
		}
	}()

	var img []byte
	if payload, ok := p.resolver.Resolve(ctx, msg); ok {
		img = payload.Data
		logger.Debug("reference image attached",
			zap.String("origin", string(payload.Origin)),
			zap.Int("bytes", len(img)))
	}

	if err := responder.SendText(ctx, msg, AckText); err != nil {
		logger.Warn("failed to send acknowledgment", zap.Error(err))
	}

	outcome := p.generator.Generate(ctx, img, inv.prompt, inv.negativePrompt, inv.model)
	if !outcome.OK() {
		reason := outcome.Reason
		if reason == "" {
			reason = noImageReason
		}
		logger.Warn("generation failed", zap.String("reason", reason), zap.String("code", string(outcome.Code)))
		p.metrics.RecordDispatch(inv.command, "failed")
		return responder.SendText(ctx, msg, FailurePrefix+reason)
	}

	logger.Info("generation succeeded", zap.Int("bytes", len(outcome.Data)))
	p.metrics.RecordDispatch(inv.command, "success")
	if err := responder.SendImage(ctx, msg, outcome.Data); err != nil {
		return fmt.Errorf("send image: %w", err)
	}
	return nil
}
