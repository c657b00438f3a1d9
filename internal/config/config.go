package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Capture CaptureConfig `mapstructure:"capture"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CaptureConfig struct {
	Enabled       bool     `mapstructure:"enabled"`  // 默认采集；关闭后只记录调用了 LogCustomMetadata 的请求
	Identity      string   `mapstructure:"identity"` // 默认 userId
	LogDir        string   `mapstructure:"log_dir"`
	MaxBodyBytes  int      `mapstructure:"max_body_bytes"`
	RedactHeaders []string `mapstructure:"redact_headers"`
	RedactKeys    []string `mapstructure:"redact_keys"`
}

type SinkConfig struct {
	Kind     string `mapstructure:"kind"`
	DSN      string `mapstructure:"dsn"`
	ORM      string `mapstructure:"orm"` // postgres only: sqlx | gorm
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Cassandra
	Hosts    []string `mapstructure:"hosts"`
	Keyspace string   `mapstructure:"keyspace"`

	// Firebase
	ProjectID       string `mapstructure:"project_id"`
	DatabaseURL     string `mapstructure:"database_url"`
	CredentialsFile string `mapstructure:"credentials_file"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	AuditListKey string `mapstructure:"audit_list_key"`
	AuditListMax int    `mapstructure:"audit_list_max"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// Environment variables support
	// e.g. BUILDMYMETA_SINK_DSN
	v.SetEnvPrefix("buildmymeta")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("capture.enabled", true)
	v.SetDefault("capture.identity", "")
	v.SetDefault("capture.log_dir", "buildmymetalogs")
	v.SetDefault("capture.max_body_bytes", 64*1024)
	v.SetDefault("capture.redact_headers", []string{"authorization", "cookie", "set-cookie", "proxy-authorization", "x-api-key"})
	v.SetDefault("capture.redact_keys", []string{"password", "secret", "token", "api_key", "api_secret", "private_key"})
	v.SetDefault("sink.kind", string(model.BackendSQLite))
	v.SetDefault("sink.dsn", "buildmymeta.db")
	v.SetDefault("sink.orm", "sqlx")
	v.SetDefault("sink.database", "buildmymeta")
	v.SetDefault("sink.keyspace", "buildmymeta")
	v.SetDefault("sink.max_open_conns", 50)
	v.SetDefault("sink.max_idle_conns", 10)
	v.SetDefault("redis.audit_list_key", "buildmymeta:audit")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate catches setup mistakes before any connection is opened.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Capture.Identity) == "" {
		return apperrors.NewConfiguration("capture.identity is required")
	}
	kind := model.BackendKind(c.Sink.Kind)
	for _, k := range model.BackendKinds {
		if k == kind {
			return nil
		}
	}
	return apperrors.NewConfiguration(fmt.Sprintf("invalid or missing sink.kind %q", c.Sink.Kind))
}
