package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type NodeConfig struct {
	Host     string `env:"NODE_HOST, required"`
	Port     string `env:"NODE_PORT, default=2333"`
	Password string `env:"NODE_PASSWORD, required"`
	Secure   bool   `env:"NODE_SECURE"`
	Shards   int    `env:"NODE_SHARDS, default=1"`

	ResumeKey            string        `env:"NODE_RESUME_KEY"`
	ResumeTimeoutSeconds int           `env:"NODE_RESUME_TIMEOUT_SECONDS, default=60"`
	ReconnectBaseDelay   time.Duration `env:"NODE_RECONNECT_BASE_DELAY, default=3s"`
	ReconnectMaxAttempts int           `env:"NODE_RECONNECT_MAX_ATTEMPTS, default=0"`
}

func NewNodeConfigFromEnv() (*NodeConfig, error) {
	var cfg NodeConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WebSocketURL addresses the node's control connection.
func (c *NodeConfig) WebSocketURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, c.Host, c.Port)
}

// RestURL addresses the node's HTTP surface.
func (c *NodeConfig) RestURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, c.Host, c.Port)
}
