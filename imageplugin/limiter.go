package imageplugin

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// senderIdleTTL 之后未活动的发送者被清理
const senderIdleTTL = 10 * time.Minute

// senderLimiter 按发送者限流，rps <= 0 时不限流
type senderLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastPrune time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSenderLimiter(rps float64, burst int) *senderLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &senderLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow 判断该发送者本次请求是否放行
func (l *senderLimiter) Allow(sender string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for id, v := range l.visitors {
			if now.Sub(v.lastSeen) > senderIdleTTL {
				delete(l.visitors, id)
			}
		}
		l.lastPrune = now
	}
	v, ok := l.visitors[sender]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[sender] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

func (l *senderLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
