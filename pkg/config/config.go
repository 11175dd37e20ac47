// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 APP_HTTP_PORT 覆盖 http.port
const EnvPrefix = "APP"

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// gRPC 服务配置
	GRPC GRPCConfig `mapstructure:"grpc"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 追踪配置
	Tracing TracingConfig `mapstructure:"tracing"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	// 蒙特卡洛模拟配置
	Simulation SimulationConfig `mapstructure:"simulation"`
	// 读缓存配置
	Cache CacheConfig `mapstructure:"cache"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Addr 返回监听地址
func (c HTTPConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 最大并发流数
	MaxConcurrentStreams int `mapstructure:"max_concurrent_streams"`
}

// Addr 返回监听地址
func (c GRPCConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql, postgres, sqlite
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置，Host 为空时不启用缓存与分布式限流
type RedisConfig struct {
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// Addr 返回 host:port
func (c RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// KafkaConfig Kafka 配置，Brokers 为空时事件只写日志
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
	// 是否异步写入
	Async bool `mapstructure:"async"`
}

// Enabled 是否配置了 Kafka
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式
	Format string `mapstructure:"format"`
	// 输出目标
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
	// 是否输出调用者信息
	WithCaller bool `mapstructure:"with_caller"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// OTel 收集器端点
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	// 采样率
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 指标路径，挂在 HTTP 服务上
	Path string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 每秒请求数
	RPS int `mapstructure:"rps"`
	// 突发容量
	Burst int `mapstructure:"burst"`
}

// SimulationConfig 蒙特卡洛引擎配置
type SimulationConfig struct {
	// 每次运行的路径数
	Paths int `mapstructure:"paths"`
	// 每条路径的步数（期限）
	Steps int `mapstructure:"steps"`
	// 并行 worker 数，0 表示 GOMAXPROCS
	Workers int `mapstructure:"workers"`
	// 从资产配置中读取敞口的键
	ExposureKey string `mapstructure:"exposure_key"`
	// 资产配置缺少该键时的默认敞口
	DefaultExposure float64 `mapstructure:"default_exposure"`
	// 假设是否叠加随机抖动
	AssumptionJitter bool `mapstructure:"assumption_jitter"`
}

// CacheConfig 读缓存配置
type CacheConfig struct {
	// 缓存有效期（秒）
	TTL int `mapstructure:"ttl"`
}

// Load 从 TOML 文件加载配置，文件必须存在，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	return load(configPath, true)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时只使用默认值与环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	return load(configPath, false)
}

func load(configPath string, required bool) (*Config, error) {
	v := viper.New()

	// 设置默认值，同时让 AutomaticEnv 能识别全部键
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 设置环境变量前缀，使用 _ 替代 .
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Simulation.Paths <= 0 {
		return fmt.Errorf("simulation.paths must be positive: %d", c.Simulation.Paths)
	}
	if c.Simulation.Steps <= 0 {
		return fmt.Errorf("simulation.steps must be positive: %d", c.Simulation.Steps)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("simulation.workers cannot be negative: %d", c.Simulation.Workers)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit rps and burst must be positive when enabled")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "scenario")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.max_concurrent_streams", 1000)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:scenario.db?cache=shared")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.write_timeout", 10)
	v.SetDefault("kafka.async", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_endpoint", "localhost:4317")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.rps", 50)
	v.SetDefault("ratelimit.burst", 100)

	v.SetDefault("simulation.paths", 10000)
	v.SetDefault("simulation.steps", 5)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.exposure_key", "DeepTech")
	v.SetDefault("simulation.default_exposure", 0.1)
	v.SetDefault("simulation.assumption_jitter", true)

	v.SetDefault("cache.ttl", 600)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
