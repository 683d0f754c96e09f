package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/internal/ctxkeys"
	"github.com/BaSui01/imagegen/internal/metrics"
	"github.com/BaSui01/imagegen/llm/retry"
	"github.com/BaSui01/imagegen/types"
)

const instrumentationName = "github.com/BaSui01/imagegen/llm/image"

// Downloader 获取托管图片；生成请求复用其 HTTP 客户端
type Downloader interface {
	Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
	Client() *http.Client
}

// Client 调用图像生成接口，在 Key 池上做故障转移
type Client struct {
	cfg        Config
	pool       *CredentialPool
	downloader Downloader
	logger     *zap.Logger
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

// Option 配置 Client
type Option func(*Client)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 Provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// NewClient 创建生成客户端
func NewClient(cfg Config, downloader Downloader, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	c := &Client{
		cfg:        cfg,
		pool:       NewCredentialPool(cfg.APIKeys),
		downloader: downloader,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "image_client"))
	return c
}

// Credentials 返回 Key 池
func (c *Client) Credentials() *CredentialPool {
	return c.pool
}

// Generate 生成图片。img 为已归一化的参考图，可为空。
// 从不返回 error：所有失败都折叠为带原因的 Outcome。
func (c *Client) Generate(ctx context.Context, img []byte, prompt, negativePrompt, model string) Outcome {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "image.generate", trace.WithAttributes(
		attribute.Bool("image.has_reference", len(img) > 0),
		attribute.String("image.model", model),
		attribute.Int("image.credentials", c.pool.Len()),
	))
	defer span.End()

	outcome := c.generate(ctx, img, prompt, negativePrompt, model)

	status := "success"
	if !outcome.OK() {
		status = string(outcome.Code)
		span.SetStatus(codes.Error, outcome.Reason)
	}
	span.SetAttributes(attribute.String("image.status", status))
	c.metrics.RecordGeneration(status, time.Since(start))
	return outcome
}

func (c *Client) generate(ctx context.Context, img []byte, prompt, negativePrompt, model string) Outcome {
	if c.pool.Len() == 0 {
		c.logger.Error("no api keys configured")
		return failure(types.ErrNoCredentials, "no credentials configured")
	}

	payload, err := json.Marshal(buildRequest(img, prompt, negativePrompt, model))
	if err != nil {
		return failure(types.ErrInternalError, fmt.Sprintf("failed to encode request: %v", err))
	}

	data, attempts, err := c.withRetry(ctx, payload)
	if err != nil {
		if attempts < c.pool.Len() {
			// 调用方取消，剩余 Key 未尝试
			return failure(types.ErrExhaustedRetries,
				fmt.Sprintf("%d of %d credentials tried: %v", attempts, c.pool.Len(), err))
		}
		return failure(types.ErrExhaustedRetries, fmt.Sprintf("all %d credentials failed: %v", attempts, err))
	}
	return success(data)
}

// buildRequest 构造请求体：可选字段仅在非空时出现
func buildRequest(img []byte, prompt, negativePrompt, model string) GenerateRequest {
	req := GenerateRequest{
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
		Model:          model,
	}
	if len(img) > 0 {
		req.Image = base64.StdEncoding.EncodeToString(img)
	}
	return req
}

// withRetry 以 Key 池大小为上限逐个尝试，失败时推进游标。
// Timeout 作用于单次尝试，ctx 只负责调用方取消。返回实际发出的尝试次数。
func (c *Client) withRetry(ctx context.Context, payload []byte) ([]byte, int, error) {
	logger := c.logger
	if taskID, ok := ctxkeys.TaskID(ctx); ok {
		logger = logger.With(zap.String("task_id", taskID))
	}

	policy := retry.Policy{
		MaxAttempts: c.pool.Len(),
		OnRetry: func(attempt int, err error) {
			next := c.pool.Advance()
			logger.Debug("switching api key", zap.Int("attempt", attempt), zap.Int("next_key_index", next))
		},
	}

	attempts := 0
	data, err := retry.Do(ctx, policy, logger, func(ctx context.Context, attempt int) ([]byte, error) {
		index, key, ok := c.pool.Current()
		if !ok {
			return nil, types.NewError(types.ErrNoCredentials, "no credentials configured")
		}
		attempts++

		data, err := c.attempt(ctx, key, payload)
		c.metrics.RecordAttempt(index, err == nil)
		if err != nil {
			logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", c.pool.Len()),
				zap.Int("key_index", index),
				zap.Error(err))
			return nil, err
		}
		return data, nil
	})
	return data, attempts, err
}

// attempt 以单次超时执行一次请求
func (c *Client) attempt(ctx context.Context, key string, payload []byte) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.sendRequest(ctx, key, payload)
}

// sendRequest 发送一次生成请求并把响应解码为图片字节
func (c *Client) sendRequest(ctx context.Context, key string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.downloader.Client().Do(httpReq)
	if err != nil {
		return nil, types.WrapError(err, types.ErrRequestFailed, "generation request failed").WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, types.NewError(types.ErrRequestFailed,
			fmt.Sprintf("status=%d body=%s", resp.StatusCode, string(errBody))).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(true)
	}

	var gResp generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return nil, types.WrapError(err, types.ErrRequestFailed, "failed to decode response").WithRetryable(true)
	}

	result, err := parseResult(&gResp)
	if err != nil {
		return nil, err
	}
	return c.materialize(ctx, result)
}

// materialize 把响应变体转换为图片字节
func (c *Client) materialize(ctx context.Context, result Result) ([]byte, error) {
	switch r := result.(type) {
	case URLResult:
		data, err := c.downloader.Get(ctx, r.URL, 0)
		if err != nil {
			return nil, fmt.Errorf("download generated image: %w", err)
		}
		if len(data) == 0 {
			return nil, errNoImageData()
		}
		return data, nil
	case InlineResult:
		return r.Data, nil
	default:
		return nil, fmt.Errorf("unsupported result type %T", result)
	}
}
