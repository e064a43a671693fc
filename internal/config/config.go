// Package config loads editplay settings from defaults, a JSON or YAML file
// and EDITPLAY_* environment variables, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/editplay/internal/playback"
	"github.com/SmitUplenchwar2687/editplay/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EDITPLAY_"

// Config is the top-level configuration.
type Config struct {
	Server   ServerConfig   `json:"server" envPrefix:"SERVER_"`
	Client   ClientConfig   `json:"client" envPrefix:"CLIENT_"`
	Playback PlaybackConfig `json:"playback" envPrefix:"PLAYBACK_"`
	Storage  StorageConfig  `json:"storage" envPrefix:"STORAGE_"`
	Log      LogConfig      `json:"log" envPrefix:"LOG_"`
}

// ServerConfig holds stub webapp settings.
type ServerConfig struct {
	Addr        string        `json:"addr" env:"ADDR"`
	Catalog     string        `json:"catalog" env:"CATALOG"`
	RecordDir   string        `json:"record_dir" env:"RECORD_DIR"`
	GradeDelay  time.Duration `json:"grade_delay" env:"GRADE_DELAY"`
	TokenSecret string        `json:"-" env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `json:"token_ttl" env:"TOKEN_TTL"`
	// LoginAttempts failed logins are allowed per username per LoginWindow.
	// Negative disables the limit.
	LoginAttempts int           `json:"login_attempts" env:"LOGIN_ATTEMPTS"`
	LoginWindow   time.Duration `json:"login_window" env:"LOGIN_WINDOW"`
}

// ClientConfig says which webapp to play against and as whom.
type ClientConfig struct {
	URL      string `json:"url" env:"URL"`
	Username string `json:"username" env:"USERNAME"`
	Password string `json:"-" env:"PASSWORD"`
}

// PlaybackConfig holds scheduler settings.
type PlaybackConfig struct {
	SendInterval     time.Duration `json:"send_interval" env:"SEND_INTERVAL"`
	PollInterval     time.Duration `json:"poll_interval" env:"POLL_INTERVAL"`
	SubmitOnFullText bool          `json:"submit_on_full_text" env:"SUBMIT_ON_FULL_TEXT"`
}

// StorageConfig selects the stub webapp's state backend.
type StorageConfig struct {
	Backend string      `json:"backend" env:"BACKEND"`
	Redis   RedisConfig `json:"redis" envPrefix:"REDIS_"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string        `json:"host" env:"HOST"`
	Port         int           `json:"port" env:"PORT"`
	Password     string        `json:"-" env:"PASSWORD"`
	DB           int           `json:"db" env:"DB"`
	Cluster      bool          `json:"cluster" env:"CLUSTER"`
	ClusterNodes []string      `json:"cluster_nodes" env:"CLUSTER_NODES" envSeparator:","`
	PoolSize     int           `json:"pool_size" env:"POOL_SIZE"`
	MaxRetries   int           `json:"max_retries" env:"MAX_RETRIES"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"DIAL_TIMEOUT"`
	Prefix       string        `json:"prefix" env:"PREFIX"`
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	Level  string `json:"level" env:"LEVEL"`
	Format string `json:"format" env:"FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			TokenTTL:      12 * time.Hour,
			LoginAttempts: 5,
			LoginWindow:   time.Minute,
		},
		Client: ClientConfig{
			URL: "http://localhost:8080",
		},
		Playback: PlaybackConfig{
			SendInterval:     playback.DefaultSendBatchInterval,
			PollInterval:     playback.DefaultPollInterval,
			SubmitOnFullText: true,
		},
		Storage: StorageConfig{
			Backend: storage.BackendMemory,
			Redis: RedisConfig{
				Host:        "localhost",
				Port:        6379,
				PoolSize:    20,
				MaxRetries:  3,
				DialTimeout: 5 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.Playback.SendInterval < time.Millisecond {
		return fmt.Errorf("playback.send_interval must be at least 1ms, got %s", c.Playback.SendInterval)
	}
	if c.Playback.PollInterval <= 0 {
		return fmt.Errorf("playback.poll_interval must be positive, got %s", c.Playback.PollInterval)
	}
	if c.Server.GradeDelay < 0 {
		return fmt.Errorf("server.grade_delay must not be negative, got %s", c.Server.GradeDelay)
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be positive, got %s", c.Server.TokenTTL)
	}
	if c.Server.LoginWindow <= 0 {
		return fmt.Errorf("server.login_window must be positive, got %s", c.Server.LoginWindow)
	}

	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendRedis:
		r := c.Storage.Redis
		if r.Cluster {
			if len(r.ClusterNodes) == 0 {
				return fmt.Errorf("storage.redis.cluster_nodes is required when cluster=true")
			}
		} else if r.Host == "" || r.Port <= 0 {
			return fmt.Errorf("storage.redis.host and storage.redis.port are required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q, must be one of: memory, redis", c.Storage.Backend)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q, must be text or json", c.Log.Format)
	}
	return nil
}

// RedisStorageConfig converts the Redis section for storage.NewRedisStorage.
func (c StorageConfig) RedisStorageConfig() *storage.RedisConfig {
	r := c.Redis
	return &storage.RedisConfig{
		Host:         r.Host,
		Port:         r.Port,
		Password:     r.Password,
		DB:           r.DB,
		Cluster:      r.Cluster,
		ClusterNodes: r.ClusterNodes,
		PoolSize:     r.PoolSize,
		MaxRetries:   r.MaxRetries,
		DialTimeout:  r.DialTimeout,
		Prefix:       r.Prefix,
	}
}

// Load builds the effective config: defaults, then the file at path if
// path is non-empty, then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg, nil); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from EDITPLAY_* variables. A nil environ reads
// the process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// LoadFile reads a config file and merges it with defaults. Files ending in
// .yaml or .yml are YAML; anything else is JSON. Fields not specified in
// the file keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := raw.mergeInto(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// rawConfig is the file representation with string durations.
type rawConfig struct {
	Server struct {
		Addr        string `json:"addr" yaml:"addr"`
		Catalog     string `json:"catalog" yaml:"catalog"`
		RecordDir   string `json:"record_dir" yaml:"record_dir"`
		GradeDelay  string `json:"grade_delay" yaml:"grade_delay"`
		TokenSecret string `json:"token_secret" yaml:"token_secret"`
		TokenTTL    string `json:"token_ttl" yaml:"token_ttl"`
		// Pointer so an explicit 0 is kept.
		LoginAttempts *int   `json:"login_attempts" yaml:"login_attempts"`
		LoginWindow   string `json:"login_window" yaml:"login_window"`
	} `json:"server" yaml:"server"`
	Client struct {
		URL      string `json:"url" yaml:"url"`
		Username string `json:"username" yaml:"username"`
		Password string `json:"password" yaml:"password"`
	} `json:"client" yaml:"client"`
	Playback struct {
		SendInterval     string `json:"send_interval" yaml:"send_interval"`
		PollInterval     string `json:"poll_interval" yaml:"poll_interval"`
		SubmitOnFullText *bool  `json:"submit_on_full_text" yaml:"submit_on_full_text"`
	} `json:"playback" yaml:"playback"`
	Storage struct {
		Backend string `json:"backend" yaml:"backend"`
		Redis   struct {
			Host         string   `json:"host" yaml:"host"`
			Port         int      `json:"port" yaml:"port"`
			Password     string   `json:"password" yaml:"password"`
			DB           int      `json:"db" yaml:"db"`
			Cluster      bool     `json:"cluster" yaml:"cluster"`
			ClusterNodes []string `json:"cluster_nodes" yaml:"cluster_nodes"`
			PoolSize     int      `json:"pool_size" yaml:"pool_size"`
			MaxRetries   int      `json:"max_retries" yaml:"max_retries"`
			DialTimeout  string   `json:"dial_timeout" yaml:"dial_timeout"`
			Prefix       string   `json:"prefix" yaml:"prefix"`
		} `json:"redis" yaml:"redis"`
	} `json:"storage" yaml:"storage"`
	Log struct {
		Level  string `json:"level" yaml:"level"`
		Format string `json:"format" yaml:"format"`
	} `json:"log" yaml:"log"`
}

func (raw *rawConfig) mergeInto(cfg *Config) error {
	setString(&cfg.Server.Addr, raw.Server.Addr)
	setString(&cfg.Server.Catalog, raw.Server.Catalog)
	setString(&cfg.Server.RecordDir, raw.Server.RecordDir)
	setString(&cfg.Server.TokenSecret, raw.Server.TokenSecret)
	setString(&cfg.Client.URL, raw.Client.URL)
	setString(&cfg.Client.Username, raw.Client.Username)
	setString(&cfg.Client.Password, raw.Client.Password)
	setString(&cfg.Storage.Backend, raw.Storage.Backend)
	setString(&cfg.Storage.Redis.Host, raw.Storage.Redis.Host)
	setString(&cfg.Storage.Redis.Password, raw.Storage.Redis.Password)
	setString(&cfg.Storage.Redis.Prefix, raw.Storage.Redis.Prefix)
	setString(&cfg.Log.Level, raw.Log.Level)
	setString(&cfg.Log.Format, raw.Log.Format)

	if raw.Server.LoginAttempts != nil {
		cfg.Server.LoginAttempts = *raw.Server.LoginAttempts
	}
	if raw.Playback.SubmitOnFullText != nil {
		cfg.Playback.SubmitOnFullText = *raw.Playback.SubmitOnFullText
	}

	r := raw.Storage.Redis
	if r.Port > 0 {
		cfg.Storage.Redis.Port = r.Port
	}
	if r.DB > 0 {
		cfg.Storage.Redis.DB = r.DB
	}
	if r.Cluster {
		cfg.Storage.Redis.Cluster = true
	}
	if len(r.ClusterNodes) > 0 {
		cfg.Storage.Redis.ClusterNodes = r.ClusterNodes
	}
	if r.PoolSize > 0 {
		cfg.Storage.Redis.PoolSize = r.PoolSize
	}
	if r.MaxRetries > 0 {
		cfg.Storage.Redis.MaxRetries = r.MaxRetries
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.grade_delay", raw.Server.GradeDelay, &cfg.Server.GradeDelay},
		{"server.token_ttl", raw.Server.TokenTTL, &cfg.Server.TokenTTL},
		{"server.login_window", raw.Server.LoginWindow, &cfg.Server.LoginWindow},
		{"playback.send_interval", raw.Playback.SendInterval, &cfg.Playback.SendInterval},
		{"playback.poll_interval", raw.Playback.PollInterval, &cfg.Playback.PollInterval},
		{"storage.redis.dial_timeout", r.DialTimeout, &cfg.Storage.Redis.DialTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// WriteExample writes an example config file to path, as YAML when path
// ends in .yaml or .yml and JSON otherwise.
func WriteExample(path string) error {
	example := exampleJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		example = exampleYAML
	}
	return os.WriteFile(path, []byte(example), 0o644)
}

const exampleJSON = `{
  "server": {
    "addr": ":8080",
    "catalog": "catalog.yaml",
    "record_dir": "",
    "grade_delay": "1s",
    "token_ttl": "12h",
    "login_attempts": 5,
    "login_window": "1m"
  },
  "client": {
    "url": "http://localhost:8080",
    "username": "user2",
    "password": "muffin"
  },
  "playback": {
    "send_interval": "2s",
    "poll_interval": "1s",
    "submit_on_full_text": true
  },
  "storage": {
    "backend": "memory",
    "redis": {
      "host": "localhost",
      "port": 6379,
      "dial_timeout": "5s"
    }
  },
  "log": {
    "level": "info",
    "format": "text"
  }
}
`

const exampleYAML = `server:
  addr: ":8080"
  catalog: catalog.yaml
  grade_delay: 1s
  token_ttl: 12h
  login_attempts: 5
  login_window: 1m
client:
  url: http://localhost:8080
  username: user2
  password: muffin
playback:
  send_interval: 2s
  poll_interval: 1s
  submit_on_full_text: true
storage:
  backend: memory
  redis:
    host: localhost
    port: 6379
    dial_timeout: 5s
log:
  level: info
  format: text
`
