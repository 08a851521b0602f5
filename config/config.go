package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Genie    GenieConfig    `mapstructure:"genie"`
}

type ServerConfig struct {
	HTTPAddress string        `mapstructure:"http_address"`
	RPCAddress  string        `mapstructure:"rpc_address"`
	StaticDir   string        `mapstructure:"static_dir"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
}

type MonitorConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig describes the Lakebase (Postgres) instance. User and Password
// are only set for local development; otherwise credentials are issued by the
// Databricks workspace for InstanceName.
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Name           string        `mapstructure:"name"`
	InstanceName   string        `mapstructure:"instance_name"`
	SSLMode        string        `mapstructure:"sslmode"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
}

// StaticCredentials reports whether a fixed user/password pair is configured.
func (c DatabaseConfig) StaticCredentials() bool {
	return c.User != "" && c.Password != ""
}

type LLMConfig struct {
	ServingEndpoint string        `mapstructure:"serving_endpoint"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float32       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type GenieConfig struct {
	SpaceID string `mapstructure:"space_id"`
}

var envBindings = map[string][]string{
	"server.http_address":      {"HTTP_ADDRESS"},
	"server.rpc_address":       {"RPC_ADDRESS"},
	"server.static_dir":        {"STATIC_DIR"},
	"server.heartbeat":         {"FEED_HEARTBEAT"},
	"monitor.address":          {"MONITOR_ADDRESS"},
	"log.level":                {"LOG_LEVEL"},
	"database.driver":          {"LAKEBASE_DRIVER"},
	"database.host":            {"LAKEBASE_HOST", "PGHOST"},
	"database.port":            {"LAKEBASE_PORT", "PGPORT"},
	"database.name":            {"LAKEBASE_DATABASE", "PGDATABASE"},
	"database.instance_name":   {"LAKEBASE_INSTANCE_NAME"},
	"database.sslmode":         {"LAKEBASE_SSLMODE", "PGSSLMODE"},
	"database.user":            {"LAKEBASE_USER"},
	"database.password":        {"LAKEBASE_PASSWORD"},
	"database.connect_timeout": {"LAKEBASE_CONNECT_TIMEOUT"},
	"database.log_level":       {"LAKEBASE_LOG_LEVEL"},
	"llm.serving_endpoint":     {"SERVING_ENDPOINT_NAME"},
	"llm.base_url":             {"LLM_BASE_URL"},
	"llm.api_key":              {"LLM_API_KEY"},
	"llm.max_tokens":           {"LLM_MAX_TOKENS"},
	"llm.temperature":          {"LLM_TEMPERATURE"},
	"llm.timeout":              {"LLM_TIMEOUT"},
	"genie.space_id":           {"GENIE_SPACE_ID"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8000")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.heartbeat", 30*time.Second)
	v.SetDefault("monitor.address", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "pq")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "databricks_postgres")
	v.SetDefault("database.instance_name", "trex-game-db")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("llm.serving_endpoint", "databricks-meta-llama-3-3-70b-instruct")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 150)
	v.SetDefault("llm.temperature", 0.9)
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("genie.space_id", "01f10e93a00012ba90fa5af86758879e")
}

// LoadConfig reads config.yaml from path (when present), a .env file from the
// same directory, and environment overrides. file, when non-empty, names an
// explicit config file that must exist.
func LoadConfig(path, file string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Databricks Apps hands the listening port over in DATABRICKS_APP_PORT.
	if port, ok := os.LookupEnv("DATABRICKS_APP_PORT"); ok && port != "" {
		if _, explicit := os.LookupEnv("HTTP_ADDRESS"); !explicit && !v.InConfig("server.http_address") {
			cfg.Server.HTTPAddress = ":" + port
		}
	}

	return &cfg, nil
}
