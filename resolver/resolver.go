package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/internal/metrics"
	"github.com/BaSui01/imagegen/internal/pool"
	"github.com/BaSui01/imagegen/types"
)

// Downloader 下载图片与头像
type Downloader interface {
	Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Config 配置 Resolver
type Config struct {
	AvatarURLTemplate string        `json:"avatar_url_template" yaml:"avatar_url_template"`
	AvatarTimeout     time.Duration `json:"avatar_timeout" yaml:"avatar_timeout"`
	FetchTimeout      time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		AvatarURLTemplate: DefaultAvatarURLTemplate,
		AvatarTimeout:     10 * time.Second,
		FetchTimeout:      30 * time.Second,
	}
}

// Resolver 按优先级从消息中解析图片
type Resolver struct {
	cfg        Config
	downloader Downloader
	workers    *pool.WorkerPool
	normalizer *Normalizer
	cache      AvatarCache
	metrics    *metrics.Collector
	logger     *zap.Logger
	randomID   func() string
}

// Option 配置 Resolver
type Option func(*Resolver)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithAvatarCache 设置头像缓存
func WithAvatarCache(c AvatarCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// New 创建 Resolver，workers 用于解码与归一化
func New(cfg Config, downloader Downloader, workers *pool.WorkerPool, opts ...Option) *Resolver {
	def := DefaultConfig()
	if cfg.AvatarURLTemplate == "" {
		cfg.AvatarURLTemplate = def.AvatarURLTemplate
	}
	if cfg.AvatarTimeout <= 0 {
		cfg.AvatarTimeout = def.AvatarTimeout
	}

	r := &Resolver{
		cfg:        cfg,
		downloader: downloader,
		workers:    workers,
		logger:     zap.NewNop(),
		randomID:   RandomID,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "resolver"))
	r.normalizer = NewNormalizer(workers, r.logger)
	return r
}

// Resolve 返回消息中第一张可用图片，找不到时返回 false。
// 候选失败只记日志，不向外返回错误；消息本身不会被修改。
func (r *Resolver) Resolve(ctx context.Context, msg *types.Message) (*types.ImagePayload, bool) {
	if msg == nil {
		return nil, false
	}

	payload, ok := r.resolve(ctx, msg)
	if !ok {
		r.metrics.RecordResolution("")
		r.logger.Debug("no image resolved", zap.String("message_id", msg.ID))
		return nil, false
	}
	r.metrics.RecordResolution(string(payload.Origin))
	r.logger.Debug("image resolved",
		zap.String("message_id", msg.ID),
		zap.String("origin", string(payload.Origin)),
		zap.Int("bytes", len(payload.Data)))
	return payload, true
}

func (r *Resolver) resolve(ctx context.Context, msg *types.Message) (*types.ImagePayload, bool) {
	if data, ok := r.fromQuoted(ctx, msg); ok {
		return &types.ImagePayload{Data: data, Origin: types.OriginQuoted}, true
	}
	if p, ok := r.fromSegments(ctx, msg.Segments); ok {
		return p, true
	}
	if ctx.Err() != nil {
		return nil, false
	}
	if data, ok := r.avatar(ctx, msg.Sender); ok {
		return &types.ImagePayload{Data: data, Origin: types.OriginSender}, true
	}
	return nil, false
}

// fromQuoted 查找引用段链中的第一张可用图片
func (r *Resolver) fromQuoted(ctx context.Context, msg *types.Message) ([]byte, bool) {
	for _, quoted := range msg.Quoted() {
		for _, seg := range quoted.Chain {
			img, ok := seg.(*types.ImageSegment)
			if !ok {
				continue
			}
			if data, ok := r.fromImage(ctx, img); ok {
				return data, true
			}
		}
	}
	return nil, false
}

// fromSegments 顶层段：第一张可用图片，否则第一个 @ 用户的头像
func (r *Resolver) fromSegments(ctx context.Context, segments []types.Segment) (*types.ImagePayload, bool) {
	var mention *types.MentionSegment
	for _, seg := range segments {
		switch s := seg.(type) {
		case *types.ImageSegment:
			if data, ok := r.fromImage(ctx, s); ok {
				return &types.ImagePayload{Data: data, Origin: types.OriginImage}, true
			}
		case *types.MentionSegment:
			if mention == nil {
				mention = s
			}
		case *types.QuotedSegment, *types.TextSegment:
		}
	}

	if mention == nil || ctx.Err() != nil {
		return nil, false
	}
	if data, ok := r.avatar(ctx, mention.UserID); ok {
		return &types.ImagePayload{Data: data, Origin: types.OriginMention}, true
	}
	return nil, false
}

// fromImage 依次尝试 URL 与内联数据
func (r *Resolver) fromImage(ctx context.Context, img *types.ImageSegment) ([]byte, bool) {
	for _, src := range img.Sources() {
		if ctx.Err() != nil {
			return nil, false
		}
		if data, ok := r.loadBytes(ctx, src); ok {
			return data, true
		}
	}
	return nil, false
}
