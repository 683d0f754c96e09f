// =============================================================================
// 📦 图片生成插件配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("IMAGEGEN").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是插件的完整配置结构
type Config struct {
	// Generation 图片生成 API 配置
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Basic 基础生图指令配置
	Basic BasicConfig `yaml:"basic" env:"BASIC"`

	// Commands 自定义指令列表（仅支持 YAML）
	Commands []CommandConfig `yaml:"commands" env:"-"`

	// Resolver 图片获取配置
	Resolver ResolverConfig `yaml:"resolver" env:"RESOLVER"`

	// Cache 头像缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// RateLimit 按发送者限流配置
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// OneBot 宿主适配器配置
	OneBot OneBotConfig `yaml:"onebot" env:"ONEBOT"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// GenerationConfig 图片生成 API 配置
type GenerationConfig struct {
	// API Key 池，失败时按顺序轮换
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// 基础 URL，请求发往 {base_url}/v1/images/generations
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 单次生成请求超时（0 表示仅依赖传输层默认值）
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 托管结果图片的最大字节数（0 表示不限制），与入站图片上限分开
	MaxResultBytes int64 `yaml:"max_result_bytes" env:"MAX_RESULT_BYTES"`
}

// BasicConfig 基础生图指令
type BasicConfig struct {
	// 触发词
	Trigger string `yaml:"trigger" env:"TRIGGER"`
	// 模型覆盖
	Model string `yaml:"model" env:"MODEL"`
	// 反向提示词
	NegativePrompt string `yaml:"negative_prompt" env:"NEGATIVE_PROMPT"`
}

// CommandConfig 自定义指令
type CommandConfig struct {
	Trigger        string `yaml:"trigger"`
	Prompt         string `yaml:"prompt"`
	NegativePrompt string `yaml:"negative_prompt"`
	Model          string `yaml:"model"`
}

// ResolverConfig 图片获取配置
type ResolverConfig struct {
	// 头像 URL 模板，{id} 会被替换为用户 ID
	AvatarURLTemplate string `yaml:"avatar_url_template" env:"AVATAR_URL_TEMPLATE"`
	// 头像下载超时
	AvatarTimeout time.Duration `yaml:"avatar_timeout" env:"AVATAR_TIMEOUT"`
	// 普通图片下载超时（0 表示不限制）
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
	// 单张图片最大字节数
	MaxImageBytes int64 `yaml:"max_image_bytes" env:"MAX_IMAGE_BYTES"`
	// 编解码工作协程数
	CodecWorkers int `yaml:"codec_workers" env:"CODEC_WORKERS"`
}

// CacheConfig 头像缓存配置
type CacheConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Redis 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// RateLimitConfig 按发送者限流配置
type RateLimitConfig struct {
	// 每秒请求数（0 表示不限流）
	RPS float64 `yaml:"rps" env:"RPS"`
	// 突发容量
	Burst int `yaml:"burst" env:"BURST"`
}

// OneBotConfig OneBot v11 正向 WebSocket 配置
type OneBotConfig struct {
	// WebSocket 地址
	URL string `yaml:"url" env:"URL"`
	// 访问令牌
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN"`
	// 断线重连间隔
	ReconnectInterval time.Duration `yaml:"reconnect_interval" env:"RECONNECT_INTERVAL"`
	// 动作调用超时
	ActionTimeout time.Duration `yaml:"action_timeout" env:"ACTION_TIMEOUT"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 监听地址（空表示不启动）
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "IMAGEGEN",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片，空项会被丢弃
		if field.Type().Elem().Kind() == reflect.String {
			parts := make([]string, 0)
			for _, p := range strings.Split(value, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Generation.BaseURL) == "" {
		errs = append(errs, "generation.base_url is required")
	}
	if c.Generation.Timeout < 0 {
		errs = append(errs, "generation.timeout must not be negative")
	}
	if c.Generation.MaxResultBytes < 0 {
		errs = append(errs, "generation.max_result_bytes must not be negative")
	}
	if strings.TrimSpace(c.Basic.Trigger) == "" {
		errs = append(errs, "basic.trigger is required")
	}
	if c.Resolver.AvatarTimeout <= 0 {
		errs = append(errs, "resolver.avatar_timeout must be positive")
	}
	if !strings.Contains(c.Resolver.AvatarURLTemplate, "{id}") {
		errs = append(errs, "resolver.avatar_url_template must contain {id}")
	}
	if c.Resolver.CodecWorkers <= 0 {
		errs = append(errs, "resolver.codec_workers must be positive")
	}
	if c.RateLimit.RPS < 0 {
		errs = append(errs, "rate_limit.rps must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
