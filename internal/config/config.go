package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // PostgreSQL配置
	Sync     SyncConfig     `mapstructure:"sync"`     // 同步调度配置
	Source   SourceConfig   `mapstructure:"source"`   // 折扣数据源配置
	Steam    SteamConfig    `mapstructure:"steam"`    // Steam 元数据补全配置
	Redis    RedisConfig    `mapstructure:"redis"`    // 查询缓存配置
	Auth     AuthConfig     `mapstructure:"auth"`     // 定时任务/管理接口鉴权
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogSQL          bool          `mapstructure:"log_sql"`           // 是否打印SQL
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	Cron            string        `mapstructure:"cron"`             // 进程内调度Cron表达式
	InApp           bool          `mapstructure:"in_app"`           // 是否启用进程内调度
	Countries       []string      `mapstructure:"countries"`        // 默认同步的国家列表
	FreshnessWindow time.Duration `mapstructure:"freshness_window"` // 折扣过期窗口
	ExpireOnEmpty   bool          `mapstructure:"expire_on_empty"`  // 数据源返回0条时是否仍执行过期清理
	Enrichment      bool          `mapstructure:"enrichment"`       // 是否启用Steam元数据补全
}

// SourceConfig 折扣数据源配置
type SourceConfig struct {
	Mock              bool          `mapstructure:"mock"`                // 使用内置样例数据（无外部凭证时）
	Name              string        `mapstructure:"name"`                // 数据源名称
	BaseURL           string        `mapstructure:"base_url"`            // API基础地址
	APIKey            string        `mapstructure:"api_key"`             // API密钥（可选）
	Timeout           int           `mapstructure:"timeout"`             // 请求超时（秒）
	RetryCount        int           `mapstructure:"retry_count"`         // 重试次数
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"` // 首次重试等待
	RetryFactor       float64       `mapstructure:"retry_factor"`        // 退避倍数
	Concurrency       int           `mapstructure:"concurrency"`         // 同时在途请求上限
	RatePerSecond     float64       `mapstructure:"rate_per_second"`     // 每秒请求数上限
	Proxy             string        `mapstructure:"proxy"`               // 代理地址
	UserAgent         string        `mapstructure:"user_agent"`          // 请求UA
}

// SteamConfig Steam appdetails 配置
type SteamConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// RedisConfig 查询缓存配置，addr 为空时不启用
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AuthConfig 静态Bearer令牌
type AuthConfig struct {
	CronSecret string `mapstructure:"cron_secret"`
	AdminToken string `mapstructure:"admin_token"`
}

// LoadConfig 加载配置文件（默认 ./config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	dir := os.Getenv("DEALSYNC_CONFIG_DIR")
	if dir == "" {
		dir = "./config"
	}
	return LoadConfigFrom(dir)
}

// LoadConfigFrom 从指定目录读取 config.yaml；文件不存在时只使用默认值+环境变量
func LoadConfigFrom(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 2. 读取 config.yaml
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	cfg.Sync.Countries = normalizeCountries(cfg.Sync.Countries)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("sync.cron", "@daily")
	v.SetDefault("sync.countries", []string{"US", "GB", "DE"})
	v.SetDefault("sync.freshness_window", 48*time.Hour)
	v.SetDefault("sync.enrichment", true)
	v.SetDefault("source.name", "cheapshark")
	v.SetDefault("source.base_url", "https://www.cheapshark.com/api/1.0")
	v.SetDefault("source.timeout", 15)
	v.SetDefault("source.retry_count", 3)
	v.SetDefault("source.retry_initial_delay", 500*time.Millisecond)
	v.SetDefault("source.retry_factor", 2.0)
	v.SetDefault("source.concurrency", 4)
	v.SetDefault("source.rate_per_second", 4.0)
	v.SetDefault("source.user_agent", "WASDrop/1.0")
	v.SetDefault("steam.base_url", "https://store.steampowered.com")
	v.SetDefault("steam.timeout", 10)
	v.SetDefault("redis.ttl", 10*time.Minute)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DEALS_API_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("DEALS_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("ENABLE_MOCK_DATA"); v != "" {
		cfg.Source.Mock = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DEALS_SYNC_COUNTRIES"); v != "" {
		cfg.Sync.Countries = strings.Split(v, ",")
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Auth.CronSecret = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Auth.AdminToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

func normalizeCountries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Validate 校验相互依赖的配置项
func (c *Config) Validate() error {
	if !c.Source.Mock && strings.TrimSpace(c.Source.BaseURL) == "" {
		return fmt.Errorf("非mock模式必须配置 source.base_url（或 DEALS_API_BASE_URL）")
	}
	if c.Sync.FreshnessWindow <= 0 {
		return fmt.Errorf("sync.freshness_window 必须大于0，当前: %s", c.Sync.FreshnessWindow)
	}
	if c.Source.Concurrency <= 0 {
		return fmt.Errorf("source.concurrency 必须大于0，当前: %d", c.Source.Concurrency)
	}
	return nil
}
