package core

import (
	"fmt"
	"strings"
)

const DefaultToleranceSeconds = 300

type SignatureConfig struct {
	Secret           string `koanf:"secret" mapstructure:"secret"`
	ToleranceSeconds int    `koanf:"tolerance_seconds" mapstructure:"tolerance_seconds"`
}

type HandlerConfig struct {
	TimeoutSeconds int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	ProductLabel   string `koanf:"product_label" mapstructure:"product_label"`
}

type Config struct {
	ServiceName     string          `koanf:"service_name" mapstructure:"service_name"`
	NamespacePrefix string          `koanf:"namespace_prefix" mapstructure:"namespace_prefix"`
	Signature       SignatureConfig `koanf:"signature" mapstructure:"signature"`
	Handlers        HandlerConfig   `koanf:"handlers" mapstructure:"handlers"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "billing-webhooks",
		Signature: SignatureConfig{
			ToleranceSeconds: DefaultToleranceSeconds,
		},
		Handlers: HandlerConfig{
			TimeoutSeconds: 30,
			ProductLabel:   "Pro subscription",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Signature.Secret) == "" {
		return fmt.Errorf("core: signature.secret is required")
	}
	if c.Signature.ToleranceSeconds < 0 {
		return fmt.Errorf("core: signature.tolerance_seconds must not be negative")
	}
	if c.Handlers.TimeoutSeconds < 0 {
		return fmt.Errorf("core: handlers.timeout_seconds must not be negative")
	}
	return nil
}
