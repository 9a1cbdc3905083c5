package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Dataset.Format != "csv" {
		t.Errorf("Expected format csv, got %s", cfg.Dataset.Format)
	}
	if cfg.Perturbation.Kind != "l_inf" {
		t.Errorf("Expected kind l_inf, got %s", cfg.Perturbation.Kind)
	}
	if len(cfg.Verification.K) != 1 || cfg.Verification.K[0] != 1 {
		t.Errorf("Expected K=[1], got %v", cfg.Verification.K)
	}
	if cfg.Verification.DistanceMetric != "euclidean" {
		t.Errorf("Expected euclidean, got %s", cfg.Verification.DistanceMetric)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.EnableTLS {
		t.Error("Expected TLS disabled by default")
	}
	if cfg.Server.Auth.Enabled {
		t.Error("Expected auth disabled by default")
	}
	if !cfg.Server.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"KNAVE_DATASET_FORMAT", "KNAVE_TRAINING_PATH", "KNAVE_TEST_PATH",
		"KNAVE_PERTURBATION_KIND", "KNAVE_EPSILON",
		"KNAVE_K", "KNAVE_DISTANCE_METRIC", "KNAVE_SKIP_TIES", "KNAVE_NUM_TEST",
		"KNAVE_SAVE_IN", "KNAVE_HOST", "KNAVE_PORT", "KNAVE_ENABLE_TLS",
	}
	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("KNAVE_DATASET_FORMAT", "libsvm")
	os.Setenv("KNAVE_TRAINING_PATH", "/data/train.libsvm")
	os.Setenv("KNAVE_PERTURBATION_KIND", "hyper_rect")
	os.Setenv("KNAVE_EPSILON", "0.2")
	os.Setenv("KNAVE_K", "1,3,5")
	os.Setenv("KNAVE_DISTANCE_METRIC", "manhattan")
	os.Setenv("KNAVE_SKIP_TIES", "true")
	os.Setenv("KNAVE_HOST", "127.0.0.1")
	os.Setenv("KNAVE_PORT", "9090")
	os.Setenv("KNAVE_ENABLE_TLS", "true")

	cfg := LoadFromEnv()

	if cfg.Dataset.Format != "libsvm" {
		t.Errorf("Expected format libsvm, got %s", cfg.Dataset.Format)
	}
	if cfg.Dataset.TrainingPath != "/data/train.libsvm" {
		t.Errorf("Expected training path, got %s", cfg.Dataset.TrainingPath)
	}
	if cfg.Perturbation.Kind != "hyper_rect" {
		t.Errorf("Expected kind hyper_rect, got %s", cfg.Perturbation.Kind)
	}
	if cfg.Perturbation.Epsilon != 0.2 {
		t.Errorf("Expected epsilon 0.2, got %v", cfg.Perturbation.Epsilon)
	}
	want := []int{1, 3, 5}
	if len(cfg.Verification.K) != len(want) {
		t.Fatalf("Expected K=%v, got %v", want, cfg.Verification.K)
	}
	for i, k := range want {
		if cfg.Verification.K[i] != k {
			t.Errorf("K[%d] = %d, want %d", i, cfg.Verification.K[i], k)
		}
	}
	if cfg.Verification.DistanceMetric != "manhattan" {
		t.Errorf("Expected manhattan, got %s", cfg.Verification.DistanceMetric)
	}
	if !cfg.Verification.SkipTies {
		t.Error("Expected skip_ties enabled")
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Server.EnableTLS {
		t.Error("Expected TLS enabled")
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	originalPort := os.Getenv("KNAVE_PORT")
	defer func() {
		if originalPort == "" {
			os.Unsetenv("KNAVE_PORT")
		} else {
			os.Setenv("KNAVE_PORT", originalPort)
		}
	}()

	os.Setenv("KNAVE_PORT", "not-a-number")
	cfg := LoadFromEnv()

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080 for invalid value, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	envVars := []string{
		"KNAVE_DATASET_FORMAT", "KNAVE_HOST", "KNAVE_PORT",
	}
	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				os.Setenv(key, value)
			}
		}
	}()

	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Dataset.Format != defaults.Dataset.Format {
		t.Errorf("Expected default format, got %s", cfg.Dataset.Format)
	}
	if cfg.Server.Host != defaults.Server.Host {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != defaults.Server.Port {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "unknown dataset format",
			config: func() *Config {
				c := Default()
				c.Dataset.Format = "parquet"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "epsilon out of range",
			config: func() *Config {
				c := Default()
				c.Perturbation.Epsilon = 1.5
				return c
			}(),
			wantErr: true,
		},
		{
			name: "empty k",
			config: func() *Config {
				c := Default()
				c.Verification.K = nil
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unknown metric",
			config: func() *Config {
				c := Default()
				c.Verification.DistanceMetric = "cosine"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "port too low",
			config: func() *Config {
				c := Default()
				c.Server.Port = 0
				return c
			}(),
			wantErr: true,
		},
		{
			name: "port too high",
			config: func() *Config {
				c := Default()
				c.Server.Port = 70000
				return c
			}(),
			wantErr: true,
		},
		{
			name: "TLS enabled without cert",
			config: func() *Config {
				c := Default()
				c.Server.EnableTLS = true
				return c
			}(),
			wantErr: true,
		},
		{
			name: "k exceeds training set size",
			config: func() *Config {
				c := Default()
				c.Verification.K = []int{10}
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainingSize := 0
			if tt.name == "k exceeds training set size" {
				trainingSize = 4
			}
			err := tt.config.Validate(trainingSize)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "localhost", Port: 8080}

	addr := cfg.Address()
	expected := "localhost:8080"
	if addr != expected {
		t.Errorf("Expected address %s, got %s", expected, addr)
	}

	defaultCfg := Default()
	addr = defaultCfg.Server.Address()
	expected = "0.0.0.0:8080"
	if addr != expected {
		t.Errorf("Expected default address %s, got %s", expected, addr)
	}
}
