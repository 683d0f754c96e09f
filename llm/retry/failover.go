package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrExhausted 表示所有尝试均失败
var ErrExhausted = errors.New("all attempts failed")

// Policy 定义故障转移重试策略
// 与指数退避不同：每次失败后由 OnRetry 切换到下一个资源（例如下一个 API Key），
// 尝试次数由资源数量决定
type Policy struct {
	MaxAttempts int                         // 最大尝试次数（<=0 时直接返回 ErrExhausted）
	Delay       time.Duration               // 两次尝试之间的等待时间（0 表示立即重试）
	Retryable   func(err error) bool        // 错误过滤（为 nil 则重试所有错误）
	OnRetry     func(attempt int, err error) // 非最后一次失败后、下一次尝试前调用
}

// Do 按策略执行 fn，直到成功、遇到不可重试错误或尝试次数耗尽
// attempt 从 0 开始计数
func Do[T any](ctx context.Context, policy Policy, logger *zap.Logger, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts <= 0 {
		return zero, fmt.Errorf("%w: no attempts allowed", ErrExhausted)
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 && policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("重试被取消: %w", ctx.Err())
			case <-time.After(policy.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("重试被取消: %w", err)
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			if attempt > 0 {
				logger.Info("重试成功", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if policy.Retryable != nil && !policy.Retryable(err) {
			logger.Debug("错误不可重试", zap.Int("attempt", attempt), zap.Error(err))
			return zero, err
		}

		// 最后一次尝试失败后不再切换
		if attempt == policy.MaxAttempts-1 {
			break
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
	}

	logger.Warn("重试次数耗尽",
		zap.Int("attempts", policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, policy.MaxAttempts, lastErr)
}
