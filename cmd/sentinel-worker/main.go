// Package main provides the SentinelQA worker: a headless, AI-driven UI
// test runner. Given a target URL and a natural-language instruction, it
// drives a browser step by step under a vision-capable decision oracle
// and emits a structured outcome.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Prasadchowdar/SentinelQA/pkg/browser"
	"github.com/Prasadchowdar/SentinelQA/pkg/config"
	"github.com/Prasadchowdar/SentinelQA/pkg/engine"
	"github.com/Prasadchowdar/SentinelQA/pkg/oracle"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	URL         string
	Instruction string
	ConfigFile  string
	OutputFile  string
	Timeout     time.Duration
	Headed      bool
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("SentinelQA Worker v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	outcome, err := run(ctx, cliConfig)
	cancel()
	if err != nil {
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}

	if err := writeOutcome(outcome, cliConfig.OutputFile); err != nil {
		log.Printf("Failed to write outcome: %v", err)
		os.Exit(1)
	}

	if outcome.Status == engine.StatusFail {
		os.Exit(2)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.URL, "url", "", "Target URL to test (required)")
	flag.StringVar(&cliConfig.Instruction, "instruction", "", "Natural-language test instruction")
	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cliConfig.OutputFile, "output", "", "Write the outcome JSON to this file instead of stdout")
	flag.DurationVar(&cliConfig.Timeout, "timeout", 5*time.Minute, "Overall run timeout")
	flag.BoolVar(&cliConfig.Headed, "headed", false, "Run the browser with a visible window")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "SentinelQA Worker - AI-Driven UI Test Runner\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sentinel-worker [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run a test against a site\n")
		fmt.Fprintf(os.Stderr, "  sentinel-worker -url https://example.com -instruction \"Search for laptops and verify results appear\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Navigate only (no oracle)\n")
		fmt.Fprintf(os.Stderr, "  sentinel-worker -url https://example.com\n\n")
		fmt.Fprintf(os.Stderr, "  # Run with a config file and save the outcome\n")
		fmt.Fprintf(os.Stderr, "  sentinel-worker -config sentinel.yaml -url https://example.com -instruction \"Log in as demo\" -output outcome.json\n\n")
	}

	flag.Parse()
	return cliConfig
}

// run wires the worker together and executes one test.
func run(ctx context.Context, cliConfig *CLIConfig) (*engine.TestOutcome, error) {
	if cliConfig.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	cfg, err := config.Load(cliConfig.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cliConfig.Headed {
		cfg.Browser.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := browser.EnsureDirs(cfg.Artifacts.VideoDir, cfg.Artifacts.ScreenshotDir); err != nil {
		return nil, err
	}

	launcher := browser.NewLauncher()
	if err := launcher.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser runtime: %w", err)
	}
	defer func() {
		if err := launcher.Shutdown(); err != nil {
			log.Printf("Browser shutdown: %v", err)
		}
	}()

	decisionOracle, err := buildOracle(cfg)
	if err != nil {
		return nil, err
	}

	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	log.Printf("Starting test run...")
	log.Printf("URL: %s", cliConfig.URL)
	if cliConfig.Instruction != "" {
		log.Printf("Instruction: %s", cliConfig.Instruction)
	}

	worker := engine.NewWorker(launcher, decisionOracle, cfg)
	outcome, err := worker.RunTest(ctx, cliConfig.URL, cliConfig.Instruction)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}

	log.Printf("Run finished: %s (%dms)", outcome.Status, outcome.DurationMs)
	return outcome, nil
}

// buildOracle creates the decision oracle. A missing API key is not an
// error: the worker still navigates and reports inconclusive, it just
// takes no AI-driven steps.
func buildOracle(cfg *config.Config) (engine.DecisionOracle, error) {
	if cfg.Oracle.APIKey == "" {
		log.Printf("No oracle API key configured; runs will only navigate")
		return nil, nil
	}

	opts := []oracle.ClientOption{oracle.WithModel(cfg.Oracle.Model)}
	if cfg.Oracle.BaseURL != "" {
		opts = append(opts, oracle.WithBaseURL(cfg.Oracle.BaseURL))
	}

	client, err := oracle.NewClient(cfg.Oracle.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}
	return client, nil
}

// writeOutcome renders the outcome as JSON to the output file, or stdout
// when no file is given.
func writeOutcome(outcome *engine.TestOutcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0600)
}
