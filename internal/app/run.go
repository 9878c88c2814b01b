package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"tintero.dev/escriba/internal/cli"
	"tintero.dev/escriba/internal/config"
	"tintero.dev/escriba/internal/logging"
	"tintero.dev/escriba/internal/pipeline"
)

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Run timeout")
	dryRun := fs.Bool("dry-run", false, "Evaluate rows without publishing or writing")
	skipSemantic := fs.Bool("skip-semantic", false, "Skip the model-assisted duplicate stage")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	return executeRun(envLoader, *timeout, pipeline.RunOptions{
		DryRun:       *dryRun,
		SkipSemantic: *skipSemantic,
	})
}

// runPlan is a dry run: rows are read and duplicate decisions reported, but
// nothing is generated, published or written back. The semantic stage is off
// unless --semantic opts in.
func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Run timeout")
	semantic := fs.Bool("semantic", false, "Include the model-assisted duplicate stage while planning")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	return executeRun(envLoader, *timeout, pipeline.RunOptions{
		DryRun:       true,
		SkipSemantic: !*semantic,
	})
}

func executeRun(envLoader *cli.EnvLoader, timeout time.Duration, opts pipeline.RunOptions) int {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	service, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build pipeline")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := service.Run(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"run id=%s dry_run=%t candidates=%d published=%d duplicates=%d errors=%d duration=%s\n",
		report.RunID,
		report.DryRun,
		report.Candidates,
		report.Published,
		report.Duplicates,
		report.Errors,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)

	if report.Errors > 0 {
		return 1
	}
	return 0
}
