package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Trending   TrendingConfig   `mapstructure:"trending"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

// EngineConfig holds the recommendation policy parameters. These are
// configuration, not constants: production values are tuned without code
// changes.
type EngineConfig struct {
	Dimension       int           `mapstructure:"dimension"`
	ModelVersion    string        `mapstructure:"model_version"`
	PreferenceDecay float64       `mapstructure:"preference_decay"` // in (0,1); closer to 1 = slower forgetting
	DislikePenalty  float64       `mapstructure:"dislike_penalty"`
	SessionWindow   time.Duration `mapstructure:"session_window"`
	Profile         string        `mapstructure:"profile"` // balanced, content-heavy, behavior-heavy
	CandidateFactor int           `mapstructure:"candidate_factor"`
	MaxTopN         int           `mapstructure:"max_top_n"`
}

type OracleConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type SimilarityConfig struct {
	Engine      string  `mapstructure:"engine"` // linear, ann
	RecallFloor float64 `mapstructure:"recall_floor"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type TrendingConfig struct {
	HalfLife time.Duration `mapstructure:"half_life"`
	Window   time.Duration `mapstructure:"window"`
	Store    string        `mapstructure:"store"` // memory, redis
	Interval time.Duration `mapstructure:"interval"`
	TopN     int           `mapstructure:"top_n"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	PublicURL string `mapstructure:"public_url"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Environment string `mapstructure:"environment"`
	File        string `mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("oracle.endpoint", "ORACLE_ENDPOINT")
	v.BindEnv("oracle.api_key", "ORACLE_API_KEY")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/curator.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "curator")
	v.SetDefault("database.name", "curator")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("engine.dimension", 512)
	v.SetDefault("engine.model_version", "clip-vit-b32-v1")
	v.SetDefault("engine.preference_decay", 0.8)
	v.SetDefault("engine.dislike_penalty", 1.0)
	v.SetDefault("engine.session_window", "30m")
	v.SetDefault("engine.profile", "balanced")
	v.SetDefault("engine.candidate_factor", 3)
	v.SetDefault("engine.max_top_n", 100)

	v.SetDefault("oracle.endpoint", "http://localhost:9090/v1/embed")
	v.SetDefault("oracle.model", "clip-vit-b32")
	v.SetDefault("oracle.timeout", "10s")
	v.SetDefault("oracle.retry_backoff", "500ms")

	v.SetDefault("similarity.engine", "linear")
	v.SetDefault("similarity.recall_floor", 0.95)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "artworks")

	v.SetDefault("trending.half_life", "24h")
	v.SetDefault("trending.window", "168h")
	v.SetDefault("trending.store", "memory")
	v.SetDefault("trending.interval", "10m")
	v.SetDefault("trending.top_n", 500)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "artworks")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "local")
	v.SetDefault("log.file", "/var/log/curator/app.log")
}

// Validate checks policy parameters that would silently corrupt scoring if
// misconfigured.
func (c *Config) Validate() error {
	if c.Engine.Dimension <= 0 {
		return fmt.Errorf("engine.dimension must be positive, got %d", c.Engine.Dimension)
	}
	if c.Engine.PreferenceDecay <= 0 || c.Engine.PreferenceDecay >= 1 {
		return fmt.Errorf("engine.preference_decay must be in (0,1), got %v", c.Engine.PreferenceDecay)
	}
	if c.Engine.ModelVersion == "" {
		return fmt.Errorf("engine.model_version is required")
	}
	if c.Similarity.RecallFloor <= 0 || c.Similarity.RecallFloor > 1 {
		return fmt.Errorf("similarity.recall_floor must be in (0,1], got %v", c.Similarity.RecallFloor)
	}
	if c.Trending.HalfLife <= 0 {
		return fmt.Errorf("trending.half_life must be positive")
	}
	switch c.Similarity.Engine {
	case "linear", "ann":
	default:
		return fmt.Errorf("similarity.engine must be linear or ann, got %q", c.Similarity.Engine)
	}
	return nil
}
