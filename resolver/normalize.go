package resolver

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"

	// 注册常见静态格式，用于 DecodeConfig 识别容器
	_ "image/jpeg"

	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/internal/pool"
)

// Normalizer 把动图归一化为单帧静态图，编解码在 WorkerPool 上执行
type Normalizer struct {
	workers *pool.WorkerPool
	logger  *zap.Logger
}

// NewNormalizer 创建 Normalizer
func NewNormalizer(workers *pool.WorkerPool, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		workers: workers,
		logger:  logger.With(zap.String("component", "normalizer")),
	}
}

// Normalize 在 WorkerPool 上执行 FirstFrame。
// 只有在任务无法执行（池已关闭或 ctx 结束）时返回 error。
func (n *Normalizer) Normalize(ctx context.Context, raw []byte) ([]byte, error) {
	return pool.Run(ctx, n.workers, func(context.Context) ([]byte, error) {
		out, err := firstFrame(raw)
		if err != nil {
			n.logger.Warn("frame normalization failed, keeping original bytes",
				zap.Int("bytes", len(raw)),
				zap.Error(err))
			return raw, nil
		}
		return out, nil
	})
}

// FirstFrame 同步归一化：非动图原样返回，出错时返回原始字节
func FirstFrame(raw []byte) []byte {
	out, err := firstFrame(raw)
	if err != nil {
		return raw
	}
	return out
}

func firstFrame(raw []byte) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("detect format: %w", err)
	}
	if format != "gif" {
		return raw, nil
	}

	anim, err := gif.DecodeAll(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(anim.Image) <= 1 {
		return raw, nil
	}

	bounds := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if bounds.Empty() {
		bounds = anim.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(bounds)
	draw.Draw(canvas, anim.Image[0].Bounds(), anim.Image[0], anim.Image[0].Bounds().Min, draw.Src)

	buf := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(buf)
	if err := png.Encode(buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}
