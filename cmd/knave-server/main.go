package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/abstract-ml/knave/pkg/api/rest"
	"github.com/abstract-ml/knave/pkg/api/rest/middleware"
	"github.com/abstract-ml/knave/pkg/config"
	"github.com/abstract-ml/knave/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("kNAVe Verification Server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := loadConfig(*configFile)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(0); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewDefaultLogger()
	metrics := observability.NewMetrics()

	restConfig := rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Server.Auth.Enabled,
			JWTSecret:   cfg.Server.Auth.Secret,
			PublicPaths: []string{"/v1/health", "/v1/metrics", "/docs"},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.Server.RateLimit.Enabled,
			RequestsPerSec: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:          cfg.Server.RateLimit.Burst,
			PerIP:          true,
		},
	}

	server, err := rest.NewServer(restConfig, metrics, logger)
	if err != nil {
		log.Fatalf("Failed to create REST server: %v", err)
	}

	printStartupInfo(cfg)

	stopSampling := make(chan struct{})
	go sampleSystemMetrics(metrics, stopSampling)
	defer close(stopSampling)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("REST server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	log.Println("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping REST server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}

func loadConfig(configFile string) *config.Config {
	if configFile == "" {
		return config.LoadFromEnv()
	}

	cfg := config.Default()
	data, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}
	return cfg
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   kNAVe                                                   ║
║   k-Nearest-neighbor Adversarial VErification              ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║            REST API Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ TLS Enabled:      %-35v ║\n", cfg.Server.EnableTLS)
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.Server.Auth.Enabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.Server.RateLimit.Enabled)
	if cfg.Server.RateLimit.Enabled {
		fmt.Printf("║ Rate:             %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst))
	}
	fmt.Printf("║ API Docs:         %-35s ║\n", fmt.Sprintf("http://%s/docs", cfg.Server.Address()))
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║            Verification Defaults                       ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ K:                %-35v ║\n", cfg.Verification.K)
	fmt.Printf("║ Distance metric:  %-35s ║\n", cfg.Verification.DistanceMetric)
	fmt.Printf("║ Skip ties:        %-35v ║\n", cfg.Verification.SkipTies)
	fmt.Printf("║ Domain:           %-35s ║\n", domainLabel(cfg.Verification.UseRaf))
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// sampleSystemMetrics periodically publishes the goroutine count and
// heap memory usage gauges until stop is closed.
func sampleSystemMetrics(metrics *observability.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var mem runtime.MemStats
	for {
		select {
		case <-ticker.C:
			metrics.UpdateGoroutineCount(runtime.NumGoroutine())
			runtime.ReadMemStats(&mem)
			metrics.UpdateMemoryUsage(mem.Alloc)
		case <-stop:
			return
		}
	}
}

func domainLabel(useRaf bool) string {
	if useRaf {
		return "Reduced Affine Form"
	}
	return "Interval"
}

func showUsage() {
	fmt.Println("kNAVe Verification Server - REST API for adversarial robustness verification")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  knave-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -config PATH      Path to configuration file (JSON)")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  KNAVE_HOST               Server host")
	fmt.Println("  KNAVE_PORT               Server port")
	fmt.Println("  KNAVE_ENABLE_TLS         Mark TLS enabled (true/false); only checked for cert/key, the listener serves plain HTTP")
	fmt.Println("  KNAVE_TLS_CERT           TLS certificate file")
	fmt.Println("  KNAVE_TLS_KEY            TLS key file")
	fmt.Println("  KNAVE_AUTH_ENABLED       Enable JWT auth (true/false)")
	fmt.Println("  KNAVE_AUTH_SECRET        JWT signing secret")
	fmt.Println("  KNAVE_RATE_LIMIT_ENABLED Enable rate limiting (true/false)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  knave-server")
	fmt.Println("  knave-server -port 8080")
	fmt.Println("  KNAVE_PORT=9000 knave-server")
	fmt.Println("  knave-server -config knave.json")
	fmt.Println()
}
