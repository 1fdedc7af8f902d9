// Command etl runs the job-postings ETL pipeline: extract raw batches
// for a date range, standardize them, and load the result into the
// warehouse. Exit code 0 means success or a graceful no-op; exit code
// 1 means a stage hard-failure. With --cron the process stays up and
// re-runs the pipeline on the given schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"job-etl-go/internal/config"
	"job-etl-go/internal/logger"
	"job-etl-go/internal/pipeline"
	"job-etl-go/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		startDate  string
		endDate    string
		skipDB     bool
		outputCSV  bool
		noRemote   bool
		verbose    bool
		cronSpec   string
		initConfig string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "path to config file")
	pflag.StringVar(&startDate, "start-date", "", "start date YYYYMMDD (default: today)")
	pflag.StringVar(&endDate, "end-date", "", "end date YYYYMMDD (default: today)")
	pflag.BoolVar(&skipDB, "skip-db", false, "do not load into the database")
	pflag.BoolVar(&outputCSV, "output-csv", false, "write a CSV snapshot of the standardized table")
	pflag.BoolVar(&noRemote, "no-remote", false, "ignore object storage, use local batches only")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pflag.StringVar(&cronSpec, "cron", "", "run on a cron schedule instead of once, e.g. \"0 6 * * *\"")
	pflag.StringVar(&initConfig, "init-config", "", "write a sample config file to this path and exit")
	pflag.Parse()

	if initConfig != "" {
		if err := config.CreateSampleConfig(initConfig); err != nil {
			fmt.Fprintf(os.Stderr, "init config: %v\n", err)
			return 1
		}
		fmt.Printf("sample config written to %s\n", initConfig)
		return 0
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if noRemote {
		cfg.Extractor.IncludeRemote = false
	}

	logCfg := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		Directory:    cfg.Logger.Directory,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger.Init(logCfg)
	if logger.RunLogPath != "" {
		logger.Info().Str("log_file", logger.RunLogPath).Msg("run log file opened")
	}

	if startDate != "" && !validDate(startDate) {
		logger.Error().Str("start_date", startDate).Msg("start date must be YYYYMMDD")
		return 1
	}
	if endDate != "" && !validDate(endDate) {
		logger.Error().Str("end_date", endDate).Msg("end date must be YYYYMMDD")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewStorage(ctx, cfg)
	defer store.Close()

	p := pipeline.New(cfg, store)

	opts := pipeline.Options{
		StartDate: startDate,
		EndDate:   endDate,
		SkipLoad:  skipDB,
	}
	if outputCSV {
		opts.CSVDir = "data/processed"
	}

	if cronSpec != "" {
		return runScheduled(ctx, cancel, p, opts, cronSpec)
	}

	if opts.StartDate == "" {
		opts.StartDate = time.Now().Format("20060102")
	}
	result, err := p.Run(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Str("run_id", result.RunID).Msg("pipeline failed")
		return 1
	}
	logger.Info().Int("loaded", result.Loaded).Dur("elapsed", result.Elapsed).Msg("pipeline done")
	return 0
}

// runScheduled keeps the process up and fires the pipeline on the cron
// spec. Each tick defaults to today's batches when no explicit start
// date was given; tick failures are logged and the schedule continues.
func runScheduled(ctx context.Context, cancel context.CancelFunc, p *pipeline.Pipeline, opts pipeline.Options, spec string) int {
	runOnce := func() {
		tickOpts := opts
		if tickOpts.StartDate == "" {
			tickOpts.StartDate = time.Now().Format("20060102")
		}
		result, err := p.Run(ctx, tickOpts)
		if err != nil {
			logger.Error().Err(err).Str("run_id", result.RunID).Msg("scheduled pipeline run failed")
			return
		}
		logger.Info().Int("loaded", result.Loaded).Dur("elapsed", result.Elapsed).Msg("scheduled pipeline run done")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, runOnce); err != nil {
		logger.Error().Err(err).Str("spec", spec).Msg("invalid cron spec")
		return 1
	}

	c.Start()
	logger.Info().Str("spec", spec).Msg("scheduler started")

	// One immediate run so a fresh deployment does not wait for the
	// first tick.
	go runOnce()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down scheduler")
	cancel()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return 0
}

func validDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}
