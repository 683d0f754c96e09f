package image

import (
	"strings"
	"sync"
)

// CredentialPool 是有序的 API Key 列表与当前游标。
// 游标始终是非空池中的合法下标；池为空时不会发起请求。
// 游标只是负载均衡提示：并发失败时各自推进一次。
type CredentialPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewCredentialPool 创建 Key 池，空白 Key 会被忽略
func NewCredentialPool(keys []string) *CredentialPool {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	return &CredentialPool{keys: clean}
}

// Len 返回 Key 数量
func (p *CredentialPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Current 返回当前游标及其 Key；池为空时 ok 为 false
func (p *CredentialPool) Current() (index int, key string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return 0, "", false
	}
	return p.cursor, p.keys[p.cursor], true
}

// Advance 将游标移到下一个 Key（取模），返回新游标
func (p *CredentialPool) Advance() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return 0
	}
	p.cursor = (p.cursor + 1) % len(p.keys)
	return p.cursor
}

// Cursor 返回当前游标
func (p *CredentialPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
