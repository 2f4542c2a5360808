package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"nds-bmd-codec/internal/batch"
	"nds-bmd-codec/internal/config"
	"nds-bmd-codec/internal/logger"
	"nds-bmd-codec/internal/profile"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	modelsDir := flag.String("models", "", "Directory holding .bmd models")
	outputDir := flag.String("output", "", "Output directory (default: <base>/renders)")
	profilePath := flag.String("profile", "", "Per-model profile YAML")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	testN := flag.Int("test", 0, "Render only first N models for testing")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Also write logs to this file")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg.Resolve(config.Flags{
		ModelsDir: *modelsDir,
		OutputDir: *outputDir,
		Profile:   *profilePath,
		Workers:   *workers,
		LogLevel:  *logLevel,
		LogFile:   *logFile,
	})

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		logger.Fatal("profile load failed", zap.Error(err))
	}

	files, err := batch.Discover(cfg.ModelsDir)
	if err != nil {
		logger.Fatal("model scan failed", zap.Error(err))
	}
	if *testN > 0 && *testN < len(files) {
		files = files[:*testN]
	}
	if len(files) == 0 {
		logger.Warn("no models found", zap.String("dir", cfg.ModelsDir))
		return
	}

	logger.Info("rendering models",
		zap.Int("models", len(files)),
		zap.Int("workers", cfg.Workers),
		zap.Int("size", cfg.RenderSize),
		zap.String("output", cfg.OutputDir))

	start := time.Now()
	results := batch.Run(batch.Config{
		ModelsDir:   cfg.ModelsDir,
		OutputDir:   cfg.OutputDir,
		Profile:     prof,
		RenderSize:  cfg.RenderSize,
		Supersample: cfg.Supersample,
		Workers:     cfg.Workers,
		Yaw:         cfg.Yaw,
		Pitch:       cfg.Pitch,
		FOV:         cfg.FOV,
		FillRatio:   cfg.FillRatio,
	}, files)

	rendered, failed := 0, 0
	for _, r := range results {
		if r.Success {
			rendered++
			continue
		}
		failed++
		logger.Error("render failed",
			zap.String("model", r.Model),
			zap.String("error", r.Error))
	}

	logger.Info("done",
		zap.Int("rendered", rendered),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0o755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		logger.Error("manifest write failed", zap.Error(err))
	} else {
		logger.Info("manifest written", zap.String("path", manifestPath))
	}

	if failed > 0 {
		os.Exit(1)
	}
}
