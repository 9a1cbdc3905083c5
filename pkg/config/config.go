// Package config holds the typed configuration surface for both the
// CLI and the server (spec.md §6 "Configuration surface").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abstract-ml/knave/pkg/knaveerr"
)

// Config holds the full configuration for a verification run or a
// running server.
type Config struct {
	Dataset       DatasetConfig
	Perturbation  PerturbationConfig
	Verification  VerificationConfig
	FeatureRanges FeatureRangesConfig
	Output        OutputConfig
	Server        ServerConfig
}

// DatasetConfig selects and locates the training and test sets.
type DatasetConfig struct {
	Format       string // "csv" or "libsvm"
	TrainingPath string
	TestPath     string
}

// PerturbationConfig parametrizes the perturbation family (spec §4.G).
type PerturbationConfig struct {
	Kind      string // "l_inf", "hyper_rect", "noise_cat"
	Epsilon   float64
	Epsilons  []float64
	CatOn     []int
	NoiseKind string // nested kind for noise_cat, "l_inf" or "hyper_rect"
}

// VerificationConfig parametrizes the driver itself.
type VerificationConfig struct {
	K              []int
	DistanceMetric string // "euclidean" or "manhattan"
	SkipTies       bool
	NumTest        int // 0 = all
	RandomState    int64
	UseRaf         bool
}

// FeatureRangesConfig optionally overrides the dataset's inferred
// per-feature [lo,hi] ranges.
type FeatureRangesConfig struct {
	GlobalLo, GlobalHi float64
	HasGlobal          bool
	PerFeature         map[int][2]float64
}

// OutputConfig controls report persistence.
type OutputConfig struct {
	SaveIn string
}

// ServerConfig holds the REST server's network, TLS, auth, and
// rate-limit settings.
type ServerConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	EnableTLS       bool
	CertFile        string
	KeyFile         string

	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// AuthConfig controls JWT authentication on the REST service.
type AuthConfig struct {
	Enabled   bool
	Secret    string
	TokenTTL  time.Duration
	Issuer    string
}

// RateLimitConfig controls the token-bucket rate limiter.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// Default returns a safe, runnable default configuration: k=[1],
// Euclidean distance, no TLS, auth disabled, rate limiting enabled at
// a conservative default.
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Format: "csv",
		},
		Perturbation: PerturbationConfig{
			Kind:    "l_inf",
			Epsilon: 0,
		},
		Verification: VerificationConfig{
			K:              []int{1},
			DistanceMetric: "euclidean",
			NumTest:        0,
		},
		Output: OutputConfig{
			SaveIn: "./results",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
			Auth: AuthConfig{
				Enabled:  false,
				TokenTTL: time.Hour,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
	}
}

// LoadFromEnv overlays KNAVE_* environment variables on top of
// Default(), the same way the teacher overlays VECTOR_* variables.
func LoadFromEnv() *Config {
	cfg := Default()

	if format := os.Getenv("KNAVE_DATASET_FORMAT"); format != "" {
		cfg.Dataset.Format = format
	}
	if path := os.Getenv("KNAVE_TRAINING_PATH"); path != "" {
		cfg.Dataset.TrainingPath = path
	}
	if path := os.Getenv("KNAVE_TEST_PATH"); path != "" {
		cfg.Dataset.TestPath = path
	}

	if kind := os.Getenv("KNAVE_PERTURBATION_KIND"); kind != "" {
		cfg.Perturbation.Kind = kind
	}
	if eps := os.Getenv("KNAVE_EPSILON"); eps != "" {
		if v, err := strconv.ParseFloat(eps, 64); err == nil {
			cfg.Perturbation.Epsilon = v
		}
	}

	if ks := os.Getenv("KNAVE_K"); ks != "" {
		if parsed, ok := parseIntList(ks); ok {
			cfg.Verification.K = parsed
		}
	}
	if metric := os.Getenv("KNAVE_DISTANCE_METRIC"); metric != "" {
		cfg.Verification.DistanceMetric = metric
	}
	if skip := os.Getenv("KNAVE_SKIP_TIES"); skip == "true" {
		cfg.Verification.SkipTies = true
	}
	if numTest := os.Getenv("KNAVE_NUM_TEST"); numTest != "" {
		if n, err := strconv.Atoi(numTest); err == nil {
			cfg.Verification.NumTest = n
		}
	}
	if useRaf := os.Getenv("KNAVE_USE_RAF"); useRaf == "true" {
		cfg.Verification.UseRaf = true
	}

	if saveIn := os.Getenv("KNAVE_SAVE_IN"); saveIn != "" {
		cfg.Output.SaveIn = saveIn
	}

	if host := os.Getenv("KNAVE_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("KNAVE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if enableTLS := os.Getenv("KNAVE_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("KNAVE_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("KNAVE_TLS_KEY")
	}
	if authEnabled := os.Getenv("KNAVE_AUTH_ENABLED"); authEnabled == "true" {
		cfg.Server.Auth.Enabled = true
		cfg.Server.Auth.Secret = os.Getenv("KNAVE_AUTH_SECRET")
	}
	if rlDisabled := os.Getenv("KNAVE_RATE_LIMIT_ENABLED"); rlDisabled == "false" {
		cfg.Server.RateLimit.Enabled = false
	}

	return cfg
}

func parseIntList(s string) ([]int, bool) {
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// Validate enforces spec §7.1's configuration errors: unknown
// format/kind/metric, epsilon out of [0,1], empty K, or any k above
// the declared training set size (trainingSize <= 0 skips that last
// check, since it isn't known before the dataset is loaded).
func (c *Config) Validate(trainingSize int) error {
	switch c.Dataset.Format {
	case "csv", "libsvm":
	default:
		return knaveerr.NewConfigError("dataset.format", fmt.Sprintf("unknown format %q", c.Dataset.Format))
	}

	switch c.Perturbation.Kind {
	case "l_inf", "hyper_rect", "noise_cat":
	default:
		return knaveerr.NewConfigError("perturbation.kind", fmt.Sprintf("unknown kind %q", c.Perturbation.Kind))
	}
	if c.Perturbation.Epsilon < 0 || c.Perturbation.Epsilon > 1 {
		return knaveerr.NewConfigError("perturbation.epsilon", "must be in [0,1]")
	}
	for _, eps := range c.Perturbation.Epsilons {
		if eps < 0 || eps > 1 {
			return knaveerr.NewConfigError("perturbation.epsilons", "each entry must be in [0,1]")
		}
	}

	switch c.Verification.DistanceMetric {
	case "euclidean", "manhattan":
	default:
		return knaveerr.NewConfigError("verification.distance_metric", fmt.Sprintf("unknown metric %q", c.Verification.DistanceMetric))
	}
	if len(c.Verification.K) == 0 {
		return knaveerr.NewConfigError("verification.k", "must declare at least one k")
	}
	for _, k := range c.Verification.K {
		if k < 1 {
			return knaveerr.NewConfigError("verification.k", fmt.Sprintf("k=%d must be positive", k))
		}
		if trainingSize > 0 && k > trainingSize {
			return knaveerr.NewConfigError("verification.k", fmt.Sprintf("k=%d exceeds training set size %d", k, trainingSize))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return knaveerr.NewConfigError("server.port", fmt.Sprintf("invalid port %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return knaveerr.NewConfigError("server.tls", "TLS enabled but cert or key file not specified")
	}
	if c.Server.Auth.Enabled && c.Server.Auth.Secret == "" {
		return knaveerr.NewConfigError("server.auth.secret", "auth enabled but no secret configured")
	}

	return nil
}

// Address returns the server's listen address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
