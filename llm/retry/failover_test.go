package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	retries := 0
	v, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		OnRetry:     func(int, error) { retries++ },
	}, zap.NewNop(), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls, "应该只调用一次")
	assert.Equal(t, 0, retries)
}

func TestDo_FailoverThenSuccess(t *testing.T) {
	var seen []int
	var switched []int
	v, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		OnRetry:     func(attempt int, err error) { switched = append(switched, attempt) },
	}, nil, func(ctx context.Context, attempt int) (int, error) {
		seen = append(seen, attempt)
		if attempt < 2 {
			return 0, errors.New("temporary error")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, []int{0, 1}, switched)
}

func TestDo_Exhausted(t *testing.T) {
	persistent := errors.New("persistent error")
	retries := 0
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 2,
		OnRetry:     func(int, error) { retries++ },
	}, nil, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, persistent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, persistent)
	assert.Contains(t, err.Error(), "after 2 attempts")
	// 最后一次失败后不切换
	assert.Equal(t, 1, retries)
}

func TestDo_NoAttempts(t *testing.T) {
	called := false
	_, err := Do(context.Background(), Policy{}, nil, func(ctx context.Context, attempt int) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.False(t, called)
}

func TestDo_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, Delay: time.Second}, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("error")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "重试被取消")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

// 对任意 n 与成功位置 k（k 可能不存在），调用次数 = min(k+1, n)
func TestProperty_Do_AttemptCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(rt, "n")
		k := rapid.IntRange(0, 12).Draw(rt, "k")

		calls := 0
		_, err := Do(context.Background(), Policy{MaxAttempts: n}, nil, func(ctx context.Context, attempt int) (int, error) {
			calls++
			if attempt == k {
				return attempt, nil
			}
			return 0, errors.New("fail")
		})

		if k < n {
			require.NoError(rt, err)
			assert.Equal(rt, k+1, calls)
		} else {
			require.ErrorIs(rt, err, ErrExhausted)
			assert.Equal(rt, n, calls)
		}
	})
}
