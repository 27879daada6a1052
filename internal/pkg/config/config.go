package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Forum    ForumConfig    `mapstructure:"forum"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	Mode      string  `mapstructure:"mode"`
	RateLimit float64 `mapstructure:"rate_limit"` // 每个IP每秒请求数，0 表示不限流
	RateBurst int     `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// StorageConfig 选择论坛数据的存储实现
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

// CacheConfig 保存"最近一次成功的 feed 页"的缓存
type CacheConfig struct {
	Driver string        `mapstructure:"driver"` // redis, memory
	Size   int           `mapstructure:"size"`   // memory 驱动的 LRU 容量
	TTL    time.Duration `mapstructure:"ttl"`
}

// ForumConfig 论坛排序与分页参数
type ForumConfig struct {
	MaxCommentDepth     int           `mapstructure:"max_comment_depth"`
	HotDecaySeconds     float64       `mapstructure:"hot_decay_seconds"`
	FeedDefaultPageSize int           `mapstructure:"feed_default_page_size"`
	FeedMaxPageSize     int           `mapstructure:"feed_max_page_size"`
	FeedQueryTimeout    time.Duration `mapstructure:"feed_query_timeout"`
	MaxWriteAttempts    int           `mapstructure:"max_write_attempts"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return errors.New("database configuration is incomplete")
		}
	case "memory":
	default:
		return errors.New("storage.driver must be postgres or memory")
	}

	switch c.Cache.Driver {
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis address is required")
		}
	case "memory":
		if c.Cache.Size <= 0 {
			return errors.New("cache.size must be positive")
		}
	default:
		return errors.New("cache.driver must be redis or memory")
	}

	if c.Forum.MaxCommentDepth < 0 {
		return errors.New("forum.max_comment_depth must not be negative")
	}
	if c.Forum.HotDecaySeconds <= 0 {
		return errors.New("forum.hot_decay_seconds must be positive")
	}
	if c.Forum.FeedDefaultPageSize <= 0 || c.Forum.FeedMaxPageSize < c.Forum.FeedDefaultPageSize {
		return errors.New("forum feed page sizes are inconsistent")
	}
	if c.Forum.MaxWriteAttempts <= 0 {
		return errors.New("forum.max_write_attempts must be positive")
	}

	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("forum.max_comment_depth", 2)
	v.SetDefault("forum.hot_decay_seconds", 45000)
	v.SetDefault("forum.feed_default_page_size", 20)
	v.SetDefault("forum.feed_max_page_size", 100)
	v.SetDefault("forum.feed_query_timeout", 2*time.Second)
	v.SetDefault("forum.max_write_attempts", 5)
	v.SetDefault("cors.allow_origins", []string{"*"})
}

// Load 读取并校验配置，不修改全局变量
func Load(env string, paths ...string) (Config, error) {
	v := viper.New()

	// 根据环境选择配置文件
	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量，例如 FORUM_MAX_COMMENT_DEPTH
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfig 加载配置到 GlobalConfig
func LoadConfig() {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := Load(env)
	if err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	GlobalConfig = cfg

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
