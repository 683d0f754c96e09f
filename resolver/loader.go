package resolver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/imagegen/internal/fetch"
	"github.com/BaSui01/imagegen/internal/pool"
	"github.com/BaSui01/imagegen/llm/image"
)

const inlineMarker = "base64://"

// isInline 判断是否为内联图片引用
func isInline(src string) bool {
	return strings.HasPrefix(src, inlineMarker) || strings.HasPrefix(src, "data:")
}

// loadBytes 解析单个候选来源，失败返回 false
func (r *Resolver) loadBytes(ctx context.Context, src string) ([]byte, bool) {
	var raw []byte
	switch {
	case fetch.IsHTTP(src):
		data, err := r.downloader.Get(ctx, src, r.cfg.FetchTimeout)
		if err != nil {
			r.logger.Debug("image fetch failed", zap.String("url", src), zap.Error(err))
			r.metrics.RecordCandidateFailure("fetch")
			return nil, false
		}
		raw = data
	case isInline(src):
		payload := strings.TrimPrefix(src, inlineMarker)
		data, err := pool.Run(ctx, r.workers, func(context.Context) ([]byte, error) {
			return image.DecodeBase64(payload)
		})
		if err != nil {
			r.logger.Debug("inline image decode failed", zap.Error(err))
			r.metrics.RecordCandidateFailure("decode")
			return nil, false
		}
		raw = data
	default:
		r.logger.Debug("unsupported image source", zap.String("source", truncate(src, 64)))
		r.metrics.RecordCandidateFailure("unsupported")
		return nil, false
	}
	return r.finish(ctx, raw)
}

// finish 拒绝空数据并执行帧归一化
func (r *Resolver) finish(ctx context.Context, raw []byte) ([]byte, bool) {
	if len(raw) == 0 {
		r.metrics.RecordCandidateFailure("empty")
		return nil, false
	}
	data, err := r.normalizer.Normalize(ctx, raw)
	if err != nil {
		r.logger.Debug("normalization not run", zap.Error(err))
		r.metrics.RecordCandidateFailure("normalize")
		return nil, false
	}
	return data, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
