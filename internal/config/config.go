// Package config loads the pipeline's configuration from a YAML file and
// environment variables, adapted from the trading platform's viper-backed
// config loader.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// Config is the full configuration surface shared by all three services.
// Each service only reads the sections it needs.
type Config struct {
	Environment string `mapstructure:"environment"` // staging | production
	MockBroker  bool   `mapstructure:"mock_broker"`
	LiveTrading bool   `mapstructure:"live_trading"`

	Mongo struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
	} `mapstructure:"mongo"`

	Bus struct {
		NatsURL     string `mapstructure:"nats_url"`
		TopicPrefix string `mapstructure:"topic_prefix"`
		InMemory    bool   `mapstructure:"in_memory"`
	} `mapstructure:"bus"`

	Margin struct {
		PreviewBaseURL string `mapstructure:"preview_base_url"`
		PreviewTimeout int    `mapstructure:"preview_timeout_seconds"`
	} `mapstructure:"margin"`

	Risk struct {
		MaxMarginUtilization float64 `mapstructure:"max_margin_utilization"`
	} `mapstructure:"risk"`

	Ingestion struct {
		CatchUpBatchSize   int `mapstructure:"catch_up_batch_size"`
		ReconnectBaseDelay int `mapstructure:"reconnect_base_delay_seconds"`
		ReconnectMaxTries  int `mapstructure:"reconnect_max_tries"`
	} `mapstructure:"ingestion"`

	Execution struct {
		QueueSize   int `mapstructure:"queue_size"`
		DedupTTLMin int `mapstructure:"dedup_ttl_minutes"`
	} `mapstructure:"execution"`

	Monitoring struct {
		LogLevel       string `mapstructure:"log_level"`
		PrometheusPort int    `mapstructure:"prometheus_port"`
		HumanLogPath   string `mapstructure:"human_log_path"`
	} `mapstructure:"monitoring"`
}

var (
	cfg  *Config
	once sync.Once
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "staging")
	v.SetDefault("mock_broker", true)
	v.SetDefault("live_trading", false)
	v.SetDefault("bus.topic_prefix", "pipeline.")
	v.SetDefault("bus.in_memory", false)
	v.SetDefault("margin.preview_timeout_seconds", 35)
	v.SetDefault("risk.max_margin_utilization", 0.9)
	v.SetDefault("ingestion.catch_up_batch_size", 500)
	v.SetDefault("ingestion.reconnect_base_delay_seconds", 2)
	v.SetDefault("ingestion.reconnect_max_tries", 5)
	v.SetDefault("execution.queue_size", 1000)
	v.SetDefault("execution.dedup_ttl_minutes", 24*60)
	v.SetDefault("monitoring.log_level", "info")
	v.SetDefault("monitoring.prometheus_port", 9090)
	v.SetDefault("monitoring.human_log_path", "pipeline.log")
}

// Load reads configuration from configPath (a directory containing
// config.yaml) plus PIPELINE_-prefixed environment variables. Safe to call
// more than once: only the first call reads configuration, and later calls
// return the same *Config with a nil error, whatever configPath they pass.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		cfg = &Config{}
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/pipeline")
		}

		v.AutomaticEnv()
		v.SetEnvPrefix("PIPELINE")
		setDefaults(v)

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to read config file: %w", readErr)
				return
			}
		}

		if unmarshalErr := v.Unmarshal(cfg); unmarshalErr != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
			return
		}
	})
	return cfg, err
}

// Get returns the already-loaded configuration, loading defaults if Load
// was never called.
func Get() *Config {
	if cfg == nil {
		_, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	}
	return cfg
}
