package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	CORS         CORSConfig `mapstructure:"cors"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	// ReceiverEnabled 为 true 时挂载校长办公室接收端 /receive-sync-data
	ReceiverEnabled bool `mapstructure:"receiver_enabled"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	PoolSize        int    `mapstructure:"pool_size"`          // 常驻连接数
	MaxOverflow     int    `mapstructure:"max_overflow"`       // 峰值时额外允许的连接数
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix 所有键的命名空间前缀
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RetryConfig 远程调用重试策略
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// AIConfig AI 评分服务配置（OpenAI 兼容的 chat/completions 接口）
type AIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

// SyncConfig 校长办公室同步配置
type SyncConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retry          RetryConfig   `mapstructure:"retry"`
	// StaleAfter 超过该时长仍处于 syncing 的任务视为已放弃
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// StorageConfig 附件对象存储配置
type StorageConfig struct {
	Backend       string    `mapstructure:"backend"` // oss | local
	LocalDir      string    `mapstructure:"local_dir"`
	FallbackLocal bool      `mapstructure:"fallback_local"`
	OSS           OSSConfig `mapstructure:"oss"`
}

// OSSConfig 阿里云 OSS 配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
}

// UploadConfig 分片上传配置
type UploadConfig struct {
	ChunkSize     int64         `mapstructure:"chunk_size"`
	MaxFileSize   int64         `mapstructure:"max_file_size"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	TempDir       string        `mapstructure:"temp_dir"`
	AllowedSuffix []string      `mapstructure:"allowed_suffix"`
}

// SchedulerConfig 定时任务配置（cron 表达式）
type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	UploadCleanupCron string `mapstructure:"upload_cleanup_cron"`
	SyncSweepCron     string `mapstructure:"sync_sweep_cron"`
}

// WorkerConfig 后台任务池配置
type WorkerConfig struct {
	Size       int           `mapstructure:"size"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_body_bytes", 8<<20)
	v.SetDefault("server.receiver_enabled", false)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "teaching_eval")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.pool_size", 20)
	v.SetDefault("db.max_overflow", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "teval:")

	v.SetDefault("auth.access_token_ttl", "2h")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ai.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("ai.model", "deepseek-chat")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.connect_timeout", "10s")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.retry.max_attempts", 3)
	v.SetDefault("ai.retry.initial_interval", "1s")
	v.SetDefault("ai.retry.max_interval", "10s")

	v.SetDefault("sync.endpoint", "https://president-office.example.edu.cn/receive-sync-data")
	v.SetDefault("sync.connect_timeout", "10s")
	v.SetDefault("sync.timeout", "30s")
	v.SetDefault("sync.retry.max_attempts", 3)
	v.SetDefault("sync.retry.initial_interval", "2s")
	v.SetDefault("sync.retry.max_interval", "10s")
	v.SetDefault("sync.stale_after", "30m")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./data/attachments")
	v.SetDefault("storage.fallback_local", true)

	v.SetDefault("upload.chunk_size", 5<<20)
	v.SetDefault("upload.max_file_size", 200<<20)
	v.SetDefault("upload.session_ttl", "24h")
	v.SetDefault("upload.temp_dir", "./data/uploads")
	v.SetDefault("upload.allowed_suffix", []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".jpg", ".jpeg", ".png", ".zip"})

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.upload_cleanup_cron", "0 */30 * * * *")
	v.SetDefault("scheduler.sync_sweep_cron", "0 */5 * * * *")

	v.SetDefault("worker.size", 4)
	v.SetDefault("worker.job_timeout", "5m")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Storage.Backend {
	case "local":
	case "oss":
		if c.Storage.OSS.Endpoint == "" || c.Storage.OSS.Bucket == "" {
			return fmt.Errorf("配置校验失败: storage.oss.endpoint 与 storage.oss.bucket 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: 未知的 storage.backend %q", c.Storage.Backend)
	}
	if c.Upload.ChunkSize <= 0 {
		return fmt.Errorf("配置校验失败: upload.chunk_size 必须大于 0")
	}
	return nil
}

// Watch 监听配置文件变更，仅用于热更新日志级别等无状态配置
func Watch(path string, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
