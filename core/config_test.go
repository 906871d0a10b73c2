package core

import (
	"context"
	"testing"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Signature.Secret = "whsec_test"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	missingSecret := DefaultConfig()
	if err := missingSecret.Validate(); err == nil {
		t.Fatalf("expected error without signature secret")
	}

	negativeTolerance := validConfig()
	negativeTolerance.Signature.ToleranceSeconds = -1
	if err := negativeTolerance.Validate(); err == nil {
		t.Fatalf("expected error for negative tolerance")
	}
}

func TestDefaultConfig_Tolerance(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Signature.ToleranceSeconds != DefaultToleranceSeconds {
		t.Fatalf("expected default tolerance %d, got %d", DefaultToleranceSeconds, cfg.Signature.ToleranceSeconds)
	}
}

func TestCfgxConfigProvider_OverlaysRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(NewStaticRawConfigLoader(map[string]any{
		"namespace_prefix": "WDTK",
		"signature": map[string]any{
			"secret":            "whsec_loaded",
			"tolerance_seconds": 120,
		},
	}))

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.NamespacePrefix != "WDTK" {
		t.Fatalf("unexpected namespace prefix %q", cfg.NamespacePrefix)
	}
	if cfg.Signature.Secret != "whsec_loaded" {
		t.Fatalf("unexpected secret %q", cfg.Signature.Secret)
	}
	if cfg.Signature.ToleranceSeconds != 120 {
		t.Fatalf("unexpected tolerance %d", cfg.Signature.ToleranceSeconds)
	}
	if cfg.ServiceName != "billing-webhooks" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
}

func TestGoOptionsResolver_RuntimeWinsOverLoaded(t *testing.T) {
	loaded := validConfig()
	loaded.NamespacePrefix = "WDTK"
	loaded.Handlers.ProductLabel = "Loaded label"

	runtime := Config{}
	runtime.Handlers.ProductLabel = "Runtime label"

	resolved, err := GoOptionsResolver{}.Resolve(DefaultConfig(), loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Handlers.ProductLabel != "Runtime label" {
		t.Fatalf("expected runtime layer to win, got %q", resolved.Handlers.ProductLabel)
	}
	if resolved.NamespacePrefix != "WDTK" {
		t.Fatalf("expected loaded prefix to survive, got %q", resolved.NamespacePrefix)
	}
	if resolved.Signature.Secret != "whsec_test" {
		t.Fatalf("expected loaded secret to survive, got %q", resolved.Signature.Secret)
	}
}
