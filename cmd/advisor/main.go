// Package main provides the entry point for the staking advisor service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/oddsmith/internal/calibration"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/database"
	"github.com/yourusername/oddsmith/internal/edge"
	"github.com/yourusername/oddsmith/internal/engine"
	"github.com/yourusername/oddsmith/internal/health"
	applogger "github.com/yourusername/oddsmith/internal/logger"
	"github.com/yourusername/oddsmith/internal/marketdata"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/probsource"
	"github.com/yourusername/oddsmith/internal/repository"
	"github.com/yourusername/oddsmith/internal/risk"
	"github.com/yourusername/oddsmith/internal/safemode"
	"github.com/yourusername/oddsmith/internal/scheduler"
	"github.com/yourusername/oddsmith/internal/staking"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLog     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Value-betting staking advisor",
	Long:  `Turns calibrated win probabilities and market quotes into risk-gated stake recommendations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
			region := os.Getenv("AWS_REGION")
			secretName := os.Getenv("AWS_SECRET_NAME")
			if region == "" || secretName == "" {
				return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
			}
			if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
				return fmt.Errorf("failed to load secrets: %w", err)
			}
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		appLog = applogger.NewLogger(cfg.App.LogLevel)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the advisor service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Refit calibration from recently settled contests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return calibrateOnce(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("advisor %s (%s)\n", Version, GitCommit)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, calibrateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Staking advisor starting")

	metrics.InitRegistry()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		return err
	}
	appLog.Info("Database connection established")

	contestRepo := repository.NewPostgresContestRepository(db)
	settlementRepo := repository.NewPostgresSettlementRepository(db)
	calibrationRepo := repository.NewPostgresCalibrationRepository(db)
	diagnosticRepo := repository.NewPostgresDiagnosticRepository(db)

	calibrator := calibration.NewCalibrator(appLog,
		calibration.WithMinSamples(cfg.ModelAPI.MinCalibrationN),
		calibration.WithBins(cfg.ModelAPI.CalibrationBins))

	params, err := calibrationRepo.Latest(ctx)
	if errors.Is(err, models.ErrNotFound) {
		appLog.Warn("No stored calibration, starting with identity")
		params = models.IdentityCalibration()
	} else if err != nil {
		return err
	}

	rawSource := probsource.NewHTTPSource(cfg.ModelAPI, appLog)
	cachedSource := probsource.NewCachedSource(rawSource, cfg.ModelAPI, appLog)
	probSource := probsource.NewCalibratedSource(cachedSource, calibrator, params, appLog)
	defer probSource.Close()

	snapshot := marketdata.NewSnapshotProvider()
	stream := marketdata.NewStreamConsumer(cfg.MarketFeed, snapshot, appLog)
	go func() {
		if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
			appLog.WithError(err).Error("Market feed consumer stopped")
		}
	}()

	audit := applogger.NewAuditLogger(appLog)
	controller := risk.NewController(cfg.Risk, appLog)

	eng, err := engine.New(engine.Options{
		Probabilities: probSource,
		Quotes:        snapshot,
		Evaluator:     edge.NewEvaluator(cfg.Staking.EdgeThreshold, appLog),
		Sizer:         staking.NewSizer(cfg.Staking, appLog),
		Controller:    controller,
		Settlements:   settlementRepo,
		Audit:         audit,
		Logger:        appLog,
	})
	if err != nil {
		return err
	}

	diagnostician := safemode.NewDiagnostician(cfg.SafeMode, appLog)
	activator := safemode.NewActivator(controller,
		time.Duration(cfg.SafeMode.CooldownHours)*time.Hour, appLog)

	refitter := probsource.NewRefitter(contestRepo, calibrationRepo, calibrator, probSource,
		time.Duration(cfg.Backtest.TrainWindowDays)*24*time.Hour, appLog)

	sched := scheduler.NewScheduler(appLog)
	if err := sched.ScheduleDayRollover(eng); err != nil {
		return err
	}
	if err := sched.ScheduleDiagnostics(cfg.SafeMode.DiagnosticSchedule, eng, diagnostician, activator, diagnosticRepo); err != nil {
		return err
	}
	if err := sched.ScheduleCalibrationRefit("0 4 * * *", refitter.Refit); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        strconv.Itoa(cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Path,
		Logger:      appLog,
		DB:          db,
		Feed:        stream,
	})
	if err := healthServer.Start(ctx); err != nil {
		return err
	}
	healthServer.SetReady(true)

	go decideLoop(ctx, eng, contestRepo)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig.String()).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()
	time.Sleep(2 * time.Second)

	appLog.Info("Staking advisor shut down")
	return nil
}

// decideLoop polls for contests starting soon and runs one decision cycle
// per contest, at most once each.
func decideLoop(ctx context.Context, eng *engine.Engine, contests repository.ContestRepository) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	decided := make(map[uuid.UUID]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now().UTC()
		upcoming, err := contests.GetByTimeRange(ctx, now, now.Add(10*time.Minute))
		if err != nil {
			appLog.WithError(err).Warn("Failed to load upcoming contests")
			continue
		}

		for _, contest := range upcoming {
			if _, done := decided[contest.ID]; done {
				continue
			}
			decided[contest.ID] = struct{}{}

			if _, err := eng.DecideContest(ctx, contest); err != nil {
				appLog.WithFields(logrus.Fields{
					"contest_id": contest.ID,
					"error":      err.Error(),
				}).Warn("Decision cycle failed")
			}
		}

		// Decided IDs for contests already started are no longer needed.
		for id := range decided {
			found := false
			for _, c := range upcoming {
				if c.ID == id {
					found = true
					break
				}
			}
			if !found {
				delete(decided, id)
			}
		}
	}
}

func calibrateOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	metrics.InitRegistry()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	contestRepo := repository.NewPostgresContestRepository(db)
	calibrationRepo := repository.NewPostgresCalibrationRepository(db)

	calibrator := calibration.NewCalibrator(appLog,
		calibration.WithMinSamples(cfg.ModelAPI.MinCalibrationN),
		calibration.WithBins(cfg.ModelAPI.CalibrationBins))

	// One-shot refits target a throwaway source; the fit itself is what we
	// want persisted.
	target := probsource.NewCalibratedSource(nil, calibrator, models.IdentityCalibration(), appLog)
	refitter := probsource.NewRefitter(contestRepo, calibrationRepo, calibrator, target,
		time.Duration(cfg.Backtest.TrainWindowDays)*24*time.Hour, appLog)

	return refitter.Refit(ctx)
}
