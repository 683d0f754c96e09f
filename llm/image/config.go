package image

import (
	"strings"
	"time"
)

// Config 配置生成客户端
type Config struct {
	APIKeys []string      `json:"api_keys" yaml:"api_keys"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"` // 0 表示不单独限制
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com",
		Timeout: 120 * time.Second,
	}
}

// endpoint 返回生成接口地址
func (c Config) endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/v1/images/generations"
}
