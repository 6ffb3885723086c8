package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name" validate:"required"` // 应用程序名称，同时作为 MCP 服务名
	Version     string `yaml:"version"`                  // 应用程序版本
	Environment string `yaml:"environment"`              // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"` // 日志级别
}

// ServerConfig 定义了 MCP 传输层的配置。
type ServerConfig struct {
	Transport string `yaml:"transport" validate:"oneof=stdio sse streamable-http"` // 传输方式
	Host      string `yaml:"host"`                                               // 监听地址
	Port      int    `yaml:"port" validate:"min=1,max=65535"`                    // 监听端口
	Path      string `yaml:"path" validate:"startswith=/"`                       // streamable-http 的端点路径
	BaseURL   string `yaml:"base_url"`                                           // SSE 对外公布的基础 URL，为空时按 host:port 推导
}

// Addr 返回 host:port 形式的监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DocumentsConfig 定义了文档访问范围。
type DocumentsConfig struct {
	AllowedDirs []string `yaml:"allowed_dirs"` // 允许访问的目录，为空时不限制
	DefaultDir  string   `yaml:"default_dir"`  // 相对路径的基准目录，为空时使用当前目录
	AtomicWrite bool     `yaml:"atomic_write"` // 是否先写临时文件再重命名
}

// ConvertConfig 定义了 PDF 转换的配置。
type ConvertConfig struct {
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"` // 单次外部转换的超时时间
	LibreOfficePaths []string      `yaml:"libreoffice_paths"`       // 额外的 LibreOffice 可执行文件候选
	Docx2PDFPath     string        `yaml:"docx2pdf_path"`           // docx2pdf 可执行文件
	VerifyPDF        bool          `yaml:"verify_pdf"`              // 转换后是否打开 PDF 校验页数
}

// CacheConfig 定义了只读工具结果缓存的配置。
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Capacity  int           `yaml:"capacity" validate:"gte=0"`   // 最大条目数
	MaxWeight int           `yaml:"max_weight" validate:"gte=0"` // 所有结果文本的最大字节数
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`        // 条目存活时间
}

// AuthConfig 用于配置 HTTP 传输的认证方法。
type AuthConfig struct {
	Method    string `yaml:"method" validate:"omitempty,oneof=none jwt"` // "none" 或 "jwt"
	JwtSecret string `yaml:"jwtSecret" validate:"required_if=Method jwt"`
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点，为空时不启用 minio:// 引用
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// EtcdConfig 定义了 Etcd 服务发现的连接配置。
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"` // Etcd 节点地址列表，为空时不注册
	Username  string   `yaml:"username"`  // 用户名
	Password  string   `yaml:"password"`  // 密码
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
}

// DatabaseConfigs 包含所有外部依赖的连接配置。
type DatabaseConfigs struct {
	Redis RedisConfig `yaml:"redis"`
	MinIO MinIOConfig `yaml:"minio"`
	Etcd  EtcdConfig  `yaml:"etcd"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// LockConfig 定义了文档写锁的配置。
type LockConfig struct {
	Backend string        `yaml:"backend" validate:"oneof=local redis"` // "local" 或 "redis"
	TTL     time.Duration `yaml:"ttl" validate:"gt=0"`                  // redis 锁的过期时间
}

// AuditConfig 定义了审计事件的配置。
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic" validate:"required_if=Enabled true"` // Kafka 主题，未配置 broker 时写日志
}

// MiddlewareConfig 包含 HTTP 中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按客户端限流的配置。
type RateLimiterConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Algorithm      string            `yaml:"algorithm" validate:"omitempty,oneof=tokenBucket leakyBucket fixedWindow slidingLog slidingCounter"`
	MaxClients     int               `yaml:"maxClients"` // 同时跟踪的客户端数量上限
	FixedWindow    WindowConfig      `yaml:"fixedWindow"`
	SlidingLog     WindowConfig      `yaml:"slidingLog"`
	SlidingCounter WindowConfig      `yaml:"slidingCounter"`
	TokenBucket    TokenBucketConfig `yaml:"tokenBucket"`
	LeakyBucket    TokenBucketConfig `yaml:"leakyBucket"`

	// TrustForwardedFor 为 true 时按 X-Forwarded-For 的首个地址区分客户端，
	// 仅在受信任的反向代理之后开启，否则按连接的远端地址区分。
	TrustForwardedFor bool `yaml:"trustForwardedFor"`
}

// WindowConfig 定义了窗口类算法的配置。
type WindowConfig struct {
	Limit   int    `yaml:"limit"`
	Window  string `yaml:"window"`  // 例如: "1m", "30s"
	Buckets int    `yaml:"buckets"` // 仅 slidingCounter 使用，默认 10
}

// TokenBucketConfig 定义了令牌桶和漏桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	Documents  DocumentsConfig  `yaml:"documents"`
	Convert    ConvertConfig    `yaml:"convert"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Lock       LockConfig       `yaml:"lock"`
	Audit      AuditConfig      `yaml:"audit"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// Default 返回不依赖任何外部服务即可运行的默认配置。
func Default() *AppConfig {
	return &AppConfig{
		App:    AppInfo{Name: "word-document-server", Version: "1.0.0", Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{Transport: "stdio", Host: "0.0.0.0", Port: 8000, Path: "/mcp"},
		Documents: DocumentsConfig{
			AtomicWrite: true,
		},
		Convert: ConvertConfig{Timeout: 60 * time.Second, VerifyPDF: true},
		Cache:   CacheConfig{Enabled: true, Capacity: 256, MaxWeight: 32 << 20, TTL: 5 * time.Minute},
		Auth:    AuthConfig{Method: "none"},
		Lock:    LockConfig{Backend: "local", TTL: 2 * time.Minute},
		Audit:   AuditConfig{Topic: "word_mcp_audit"},
		Middleware: MiddlewareConfig{
			RateLimiter: RateLimiterConfig{
				Algorithm:   "tokenBucket",
				MaxClients:  1024,
				TokenBucket: TokenBucketConfig{Rate: 10, Capacity: 20},
			},
			CircuitBreaker: CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: "30s"},
		},
	}
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。为空或文件不存在时使用默认配置。
//
// 返回值:
//
//	*AppConfig: 叠加了环境变量之后的配置。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// .env 文件是可选的，不存在时忽略。
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		default:
			// 在默认配置上解析，文件中未出现的字段保持默认值。
			if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
				return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖传输层和常用配置。
func (c *AppConfig) applyEnv(getenv func(string) string) error {
	if v := getenv("MCP_TRANSPORT"); v != "" {
		c.Server.Transport = strings.ToLower(v)
	}
	if v := getenv("MCP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := getenv("MCP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MCP_PORT 不是有效的端口: %q", v)
		}
		c.Server.Port = port
	}
	if v := getenv("MCP_PATH"); v != "" {
		c.Server.Path = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = strings.ToLower(v)
	}
	if v := getenv("WORD_MCP_ALLOWED_DIRS"); v != "" {
		c.Documents.AllowedDirs = strings.Split(v, string(os.PathListSeparator))
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	return nil
}

var validate = validator.New()

// Validate 检查配置中的取值范围，返回可读的错误信息。
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
