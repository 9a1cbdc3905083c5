package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abstract-ml/knave/pkg/abstract"
	"github.com/abstract-ml/knave/pkg/config"
	"github.com/abstract-ml/knave/pkg/dataset"
	"github.com/abstract-ml/knave/pkg/distance"
	"github.com/abstract-ml/knave/pkg/observability"
	"github.com/abstract-ml/knave/pkg/perturbation"
	"github.com/abstract-ml/knave/pkg/verify"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		handleRun(os.Args[2:])
	case "validate":
		handleValidate(os.Args[2:])
	case "version":
		fmt.Printf("knave-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

// loadConfig builds a config.Config from a -config file, falling back
// to environment variables and defaults, then lets command-line flags
// on top of that override individual fields.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	var (
		configPath     = fs.String("config", "", "path to a JSON config file")
		trainingPath   = fs.String("training", "", "path to the training dataset")
		testPath       = fs.String("test", "", "path to the test dataset")
		datasetFormat  = fs.String("format", "", "dataset format (csv or libsvm)")
		perturbKind    = fs.String("perturbation", "", "perturbation kind (l_inf, hyper_rect, noise_cat)")
		epsilon        = fs.Float64("epsilon", -1, "perturbation epsilon")
		kList          = fs.String("k", "", "comma-separated k values")
		metric         = fs.String("metric", "", "distance metric (euclidean or manhattan)")
		skipTies       = fs.Bool("skip-ties", false, "skip test points with a concrete k-NN tie")
		useRaf         = fs.Bool("use-raf", false, "use the Reduced Affine Form domain instead of Interval")
		saveIn         = fs.String("save-in", "", "directory to write reports to")
	)
	fs.Parse(args)

	var cfg *config.Config
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		cfg = config.Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		cfg = config.LoadFromEnv()
	}

	if *trainingPath != "" {
		cfg.Dataset.TrainingPath = *trainingPath
	}
	if *testPath != "" {
		cfg.Dataset.TestPath = *testPath
	}
	if *datasetFormat != "" {
		cfg.Dataset.Format = *datasetFormat
	}
	if *perturbKind != "" {
		cfg.Perturbation.Kind = *perturbKind
	}
	if *epsilon >= 0 {
		cfg.Perturbation.Epsilon = *epsilon
	}
	if *kList != "" {
		ks, ok := parseIntCSV(*kList)
		if !ok {
			return nil, fmt.Errorf("invalid -k value %q", *kList)
		}
		cfg.Verification.K = ks
	}
	if *metric != "" {
		cfg.Verification.DistanceMetric = *metric
	}
	if *skipTies {
		cfg.Verification.SkipTies = true
	}
	if *useRaf {
		cfg.Verification.UseRaf = true
	}
	if *saveIn != "" {
		cfg.Output.SaveIn = *saveIn
	}

	return cfg, nil
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Dataset.TrainingPath == "" || cfg.Dataset.TestPath == "" {
		fmt.Println("Error: -training and -test are required")
		os.Exit(1)
	}

	loader, err := dataset.LoaderFactory(cfg.Dataset.Format)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	train, err := loader.Load(cfg.Dataset.TrainingPath)
	if err != nil {
		fmt.Printf("Error loading training set: %v\n", err)
		os.Exit(1)
	}
	testSet, err := loader.Load(cfg.Dataset.TestPath)
	if err != nil {
		fmt.Printf("Error loading test set: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(len(train.Points)); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	testPoints, testLabels := testSet.Points, testSet.Labels
	if cfg.Verification.NumTest > 0 && cfg.Verification.NumTest < len(testPoints) {
		testPoints = testPoints[:cfg.Verification.NumTest]
		testLabels = testLabels[:cfg.Verification.NumTest]
	}

	metric, ok := distance.ParseMetric(cfg.Verification.DistanceMetric)
	if !ok {
		fmt.Printf("Error: unknown distance metric %q\n", cfg.Verification.DistanceMetric)
		os.Exit(1)
	}
	kind, ok := perturbation.ParseKind(cfg.Perturbation.Kind)
	if !ok {
		fmt.Printf("Error: unknown perturbation kind %q\n", cfg.Perturbation.Kind)
		os.Exit(1)
	}
	var noiseKind perturbation.Kind
	if cfg.Perturbation.NoiseKind != "" {
		noiseKind, ok = perturbation.ParseKind(cfg.Perturbation.NoiseKind)
		if !ok {
			fmt.Printf("Error: unknown noise kind %q\n", cfg.Perturbation.NoiseKind)
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics()
	logger := observability.NewDefaultLogger()
	logger.SetLevel(observability.WARN)

	req := verify.Request{
		Train:      train,
		TestPoints: testPoints,
		TestLabels: testLabels,
		PerturbationSp: perturbation.Spec{
			Kind:      kind,
			Epsilon:   cfg.Perturbation.Epsilon,
			Epsilons:  cfg.Perturbation.Epsilons,
			CatOn:     cfg.Perturbation.CatOn,
			NoiseKind: noiseKind,
		},
		Ks:       cfg.Verification.K,
		Metric:   metric,
		SkipTies: cfg.Verification.SkipTies,
		UseRaf:   cfg.Verification.UseRaf,
		Metrics:  metrics,
		Logger:   logger,
	}

	rafFallbacksBefore := abstract.RafAbsFallbackCount()
	start := time.Now()
	result, err := verify.RunConcurrent(req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("Error running verification: %v\n", err)
		os.Exit(1)
	}

	if cfg.Output.SaveIn != "" {
		if err := verify.WriteReports(cfg.Output.SaveIn, result.Summaries, result.Details, cfg, elapsed); err != nil {
			fmt.Printf("Error writing reports: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("=== kNAVe verification summary (%.2fs) ===\n", elapsed.Seconds())
	for _, k := range cfg.Verification.K {
		s := result.Summaries[k]
		fmt.Printf("k=%d: stable=%d unstable=%d unknown_stable=%d | robust=%d non_robust=%d unknown_robust=%d | skipped=%d\n",
			k, s.Stable, s.Unstable, s.UnknownStable, s.Robust, s.NonRobust, s.UnknownRobust, s.Skipped)
	}
	if cfg.Verification.UseRaf {
		fallbacks := abstract.RafAbsFallbackCount() - rafFallbacksBefore
		fmt.Printf("raf_abs_interval_fallbacks=%d\n", fallbacks)
	}
}

func handleValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	trainingSize := 0
	if cfg.Dataset.TrainingPath != "" {
		if loader, err := dataset.LoaderFactory(cfg.Dataset.Format); err == nil {
			if train, err := loader.Load(cfg.Dataset.TrainingPath); err == nil {
				trainingSize = len(train.Points)
			}
		}
	}

	if err := cfg.Validate(trainingSize); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration is valid.")
}

func parseIntCSV(s string) ([]int, bool) {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			field := s[start:i]
			start = i + 1
			if field == "" {
				continue
			}
			v := 0
			neg := false
			for j, c := range field {
				if j == 0 && c == '-' {
					neg = true
					continue
				}
				if c < '0' || c > '9' {
					return nil, false
				}
				v = v*10 + int(c-'0')
			}
			if neg {
				v = -v
			}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func showUsage() {
	fmt.Println(`kNAVe - k-Nearest-neighbor Adversarial VErification

Usage:
  knave-cli <command> [options]

Commands:
  run        Load a dataset and configuration, run verification, write reports
  validate   Load and validate a configuration only
  version    Show version
  help       Show this help message

Run options:
  -config PATH        JSON config file (overlaid on defaults; env is not read)
  -training PATH       training dataset path
  -test PATH           test dataset path
  -format FORMAT       dataset format: csv or libsvm
  -perturbation KIND   l_inf, hyper_rect, or noise_cat
  -epsilon FLOAT       perturbation epsilon
  -k LIST              comma-separated k values, e.g. "1,3,5"
  -metric METRIC       euclidean or manhattan
  -skip-ties           skip test points with a concrete k-NN tie
  -use-raf             use the Reduced Affine Form domain
  -save-in DIR         directory to write per-k reports to

Examples:

  knave-cli run -training train.csv -test test.csv \
    -perturbation l_inf -epsilon 0.05 -k 1,3,5 -save-in ./results

  knave-cli validate -config knave.json

  knave-cli run -config knave.json -epsilon 0.1`)
}
