package resolver

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultAvatarURLTemplate 是默认头像地址模板，{id} 为用户 ID
const DefaultAvatarURLTemplate = "https://q4.qlogo.cn/headimg_dl?dst_uin={id}&spec=640"

// AvatarCache 缓存归一化后的头像字节（仅数字 ID）
type AvatarCache interface {
	GetAvatar(ctx context.Context, userID string) ([]byte, error)
	SetAvatar(ctx context.Context, userID string, data []byte) error
}

// IsNumericID 判断是否为合法的数字用户 ID
func IsNumericID(id string) bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}

// RandomID 返回 100000000 到 999999999 之间的随机 ID
func RandomID() string {
	return strconv.Itoa(100000000 + rand.IntN(900000000))
}

// AvatarURL 按模板生成头像地址；非数字 ID 替换为随机 9 位 ID
func AvatarURL(template, identity string) string {
	return avatarURL(template, identity, RandomID)
}

func avatarURL(template, identity string, randomID func() string) string {
	if template == "" {
		template = DefaultAvatarURLTemplate
	}
	id := strings.TrimSpace(identity)
	if !IsNumericID(id) {
		id = randomID()
	}
	return strings.ReplaceAll(template, "{id}", id)
}

// avatar 获取并归一化头像；数字 ID 优先读缓存
func (r *Resolver) avatar(ctx context.Context, identity string) ([]byte, bool) {
	id := strings.TrimSpace(identity)
	cacheable := r.cache != nil && IsNumericID(id)

	if cacheable {
		data, err := r.cache.GetAvatar(ctx, id)
		if err == nil && len(data) > 0 {
			r.metrics.RecordCacheHit("avatar")
			return data, true
		}
		r.metrics.RecordCacheMiss("avatar")
	}

	url := avatarURL(r.cfg.AvatarURLTemplate, id, r.randomID)
	raw, err := r.downloader.Get(ctx, url, r.cfg.AvatarTimeout)
	if err != nil {
		r.logger.Debug("avatar fetch failed", zap.String("identity", identity), zap.Error(err))
		r.metrics.RecordCandidateFailure("avatar")
		return nil, false
	}
	data, ok := r.finish(ctx, raw)
	if !ok {
		return nil, false
	}

	if cacheable {
		if err := r.cache.SetAvatar(ctx, id, data); err != nil {
			r.logger.Warn("avatar cache write failed", zap.String("identity", id), zap.Error(err))
		}
	}
	return data, true
}
