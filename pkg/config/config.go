// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-driven configuration for the API and worker.
type Config struct {
	Port             string        `envconfig:"PORT" default:"8080"`
	OrdersTable      string        `envconfig:"ORDERS_TABLE" default:"orders"`
	OrdersQueueURL   string        `envconfig:"ORDERS_QUEUE_URL"`
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE" default:"FoodOrderflow"`
	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	Currency         string        `envconfig:"CURRENCY" default:"INR"`
	GatewayKeyID     string        `envconfig:"RAZORPAY_KEY_ID" required:"true"`
	GatewayKeySecret string        `envconfig:"RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret    string        `envconfig:"RAZORPAY_WEBHOOK_SECRET" required:"true"`
	GatewayBaseURL   string        `envconfig:"RAZORPAY_BASE_URL" default:""`
	GatewayTimeout   time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`
}

// Load processes the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
