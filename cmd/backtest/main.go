// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddsmith/internal/backtest"
	"github.com/yourusername/oddsmith/internal/calibration"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/database"
	applogger "github.com/yourusername/oddsmith/internal/logger"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/repository"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		dataPath   = flag.String("data", "", "Load contests from a JSON file instead of the database")
		startDate  = flag.String("start-date", "", "Override start date (YYYY-MM-DD)")
		endDate    = flag.String("end-date", "", "Override end date (YYYY-MM-DD)")
		folds      = flag.Int("folds", 0, "Override fold count")
		output     = flag.String("output", "", "Override output path for results")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := loadConfig(*configPath)
	logger := applogger.NewLogger(cfg.App.LogLevel)
	metrics.InitRegistry()

	applyOverrides(cfg, *startDate, *endDate, *folds, *output)

	history, err := loadHistory(ctx, cfg, *dataPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load contest history: %v", err)
	}
	logger.WithField("contests", len(history)).Info("Contest history loaded")

	harness, err := backtest.NewHarness(backtest.Config{
		InitialBankroll: cfg.Backtest.InitialBankroll,
		CommissionRate:  cfg.Backtest.CommissionRate,
		Staking:         cfg.Staking,
		Risk:            cfg.Risk,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to build harness: %v", err)
	}

	calibrator := calibration.NewCalibrator(logger,
		calibration.WithMinSamples(cfg.ModelAPI.MinCalibrationN),
		calibration.WithBins(cfg.ModelAPI.CalibrationBins))
	policy := backtest.CalibratedScorePolicy(calibrator, logger)

	results, err := harness.Run(ctx, policy, history, cfg.Backtest.Folds)
	if err != nil {
		logger.Fatalf("Backtest failed: %v", err)
	}

	summary := backtest.Summarize(results)
	if err := writeResults(cfg.Backtest.OutputPath, summary); err != nil {
		logger.Fatalf("Failed to write results: %v", err)
	}

	for _, fold := range results {
		fmt.Println(fold.ToJSON())
	}
	logger.WithFields(logrus.Fields{
		"folds":       len(results),
		"mean_roi":    summary.MeanROI,
		"mean_sharpe": summary.MeanSharpe,
		"total_bets":  summary.TotalBets,
		"output":      cfg.Backtest.OutputPath,
	}).Info("Backtest completed")
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			fmt.Fprintln(os.Stderr, "AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
			os.Exit(1)
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
			os.Exit(1)
		}
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func applyOverrides(cfg *config.Config, startDate, endDate string, folds int, output string) {
	if startDate != "" {
		cfg.Backtest.StartDate = startDate
	}
	if endDate != "" {
		cfg.Backtest.EndDate = endDate
	}
	if folds > 0 {
		cfg.Backtest.Folds = folds
	}
	if output != "" {
		cfg.Backtest.OutputPath = output
	}
}

// loadHistory reads settled contests from a JSON file when -data is given,
// otherwise from the database over the configured date range.
func loadHistory(ctx context.Context, cfg *config.Config, dataPath string, logger *logrus.Logger) ([]*models.Contest, error) {
	if dataPath != "" {
		data, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
		var history []*models.Contest
		if err := json.Unmarshal(data, &history); err != nil {
			return nil, fmt.Errorf("failed to parse data file: %w", err)
		}
		return history, nil
	}

	start, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := repository.NewPostgresContestRepository(db)
	return repo.GetSettled(ctx, start, end.Add(24*time.Hour))
}

func writeResults(path string, summary backtest.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
