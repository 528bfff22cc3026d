package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Agent   AgentConfig   `yaml:"agent"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type AgentConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// Refresh loop (optional). Defaults are applied at wiring time:
	// 30s interval, page size 10, limiter off.
	RefreshIntervalSeconds    int `yaml:"refresh_interval_seconds"`
	RefreshRateLimitPerMinute int `yaml:"refresh_rate_limit_per_minute"`
	PageSize                  int `yaml:"page_size"`

	// Session scoping: the agent polls either a seller's or a buyer's shipments.
	SellerID string `yaml:"seller_id"`
	BuyerID  string `yaml:"buyer_id"`

	SwaggerPath string `yaml:"swagger_path"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
