// =============================================================================
// 📦 图片生成插件默认配置
// =============================================================================
package config

import (
	"runtime"
	"time"
)

// DefaultAvatarURLTemplate 是 QQ 头像地址模板
const DefaultAvatarURLTemplate = "https://q4.qlogo.cn/headimg_dl?dst_uin={id}&spec=640"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Generation: DefaultGenerationConfig(),
		Basic:      DefaultBasicConfig(),
		Commands:   []CommandConfig{},
		Resolver:   DefaultResolverConfig(),
		Cache:      DefaultCacheConfig(),
		RateLimit:  DefaultRateLimitConfig(),
		OneBot:     DefaultOneBotConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultGenerationConfig 返回默认生成 API 配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		APIKeys:        []string{},
		BaseURL:        "https://api.openai.com",
		Timeout:        120 * time.Second,
		MaxResultBytes: 64 << 20,
	}
}

// DefaultBasicConfig 返回默认基础指令配置
func DefaultBasicConfig() BasicConfig {
	return BasicConfig{
		Trigger: "生图",
	}
}

// DefaultResolverConfig 返回默认图片获取配置
func DefaultResolverConfig() ResolverConfig {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return ResolverConfig{
		AvatarURLTemplate: DefaultAvatarURLTemplate,
		AvatarTimeout:     10 * time.Second,
		FetchTimeout:      30 * time.Second,
		MaxImageBytes:     20 << 20,
		CodecWorkers:      workers,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: false,
		Addr:    "localhost:6379",
		DB:      0,
		TTL:     time.Hour,
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:   0,
		Burst: 1,
	}
}

// DefaultOneBotConfig 返回默认 OneBot 配置
func DefaultOneBotConfig() OneBotConfig {
	return OneBotConfig{
		URL:               "ws://127.0.0.1:3001",
		ReconnectInterval: 5 * time.Second,
		ActionTimeout:     30 * time.Second,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Addr:      ":9091",
		Namespace: "imagegen",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "imagegen",
		SampleRate:   0.1,
	}
}
