// Package config loads the service configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RocketMQ RocketMQConfig `mapstructure:"rocketmq"`
	Model    ModelConfig    `mapstructure:"model"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type MySQLConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Database string `mapstructure:"database"`
}

// RedisConfig enables cross-instance decision delivery when Addr is set.
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type RocketMQConfig struct {
	NameServers []string `mapstructure:"name_servers"`
	MaxRetries  int      `mapstructure:"max_retries"`
	Topics      struct {
		ProductView string `mapstructure:"product_view"`
		Negotiation string `mapstructure:"negotiation"`
	} `mapstructure:"topics"`
}

type ModelConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	m := c.MySQL
	return fmt.Sprintf("%s:%s@%s/%s?parseTime=true&loc=UTC", m.User, m.Password, m.Host, m.Database)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.sqlite_path", "bargain.db")
	v.SetDefault("mysql.user", "user")
	v.SetDefault("mysql.password", "password")
	v.SetDefault("mysql.host", "tcp(127.0.0.1:3306)")
	v.SetDefault("mysql.database", "hackathon_db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel_prefix", "")
	v.SetDefault("rocketmq.name_servers", []string{})
	v.SetDefault("rocketmq.max_retries", 2)
	v.SetDefault("rocketmq.topics.product_view", "product_views")
	v.SetDefault("rocketmq.topics.negotiation", "negotiations")
	v.SetDefault("model.path", "bargaining_brain.bin")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads path (or ./config.yaml when path is empty and the file exists),
// then applies BARGAIN_* and the legacy MYSQL_*/PORT environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("bargain")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	legacy := map[string]string{
		"mysql.user":     "MYSQL_USER",
		"mysql.password": "MYSQL_PWD",
		"mysql.host":     "MYSQL_HOST",
		"mysql.database": "MYSQL_DATABASE",
		"server.port":    "PORT",
	}
	for key, env := range legacy {
		if err := v.BindEnv(key, "BARGAIN_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.RocketMQ.NameServers = splitList(cfg.RocketMQ.NameServers)
	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return &cfg, nil
}

// splitList flattens comma-separated entries, as env vars deliver lists, into trimmed items.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, item := range strings.Split(entry, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
