package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fatura/internal/domain/exchange"
	"fatura/internal/domain/usage"
	"fatura/internal/infrastructure/postgres"
	"fatura/internal/infrastructure/rates"
	"fatura/internal/interfaces/scheduler"
	"fatura/internal/shared/config"
	"fatura/internal/shared/logger"
)

const usageText = `Fatura Admin CLI - Management commands for the Fatura API

Usage:
  admin <command> [options]

Commands:
  recount-usage   Rebuild currency usage counters from the record history
  warm-rates      Fetch exchange rates for each user's currency set

Examples:
  # Rebuild counters for a specific user
  admin recount-usage --user=u-1a2b

  # Rebuild counters for multiple users
  admin recount-usage --user=u-1a2b,u-3c4d

  # Rebuild counters for all users
  admin recount-usage --all

  # Run with custom worker count for higher concurrency
  admin recount-usage --all --workers=8

  # Run with timeout
  admin recount-usage --user=u-1a2b --timeout=5m

  # Warm rates for a user
  admin warm-rates --user=u-1a2b

  # Warm rates for all users
  admin warm-rates --all --timeout=15m
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usageText + "\n")
		os.Exit(1)
	}

	log := logger.New()

	switch os.Args[1] {
	case "recount-usage":
		runRecountUsage(os.Args[2:], log)
	case "warm-rates":
		runWarmRates(os.Args[2:], log)
	case "help", "-h", "--help":
		fmt.Print(usageText + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		fmt.Print(usageText + "\n")
		os.Exit(1)
	}
}

func runRecountUsage(args []string, log zerolog.Logger) {
	fs := flag.NewFlagSet("recount-usage", flag.ExitOnError)

	userStr := fs.String("user", "", "User key(s) to recount (comma-separated for multiple)")
	allUsers := fs.Bool("all", false, "Recount every user with usage history")
	workers := fs.Int("workers", usage.DefaultRecountWorkers, "Number of concurrent workers")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin recount-usage [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin recount-usage --user=u-1a2b")
		fmt.Println("  admin recount-usage --user=u-1a2b,u-3c4d")
		fmt.Println("  admin recount-usage --all")
		fmt.Println("  admin recount-usage --all --workers=8 --timeout=1h")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *userStr == "" && !*allUsers {
		fmt.Println("Error: must specify --user or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timeout format")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	usageRepo := postgres.NewUsageRepository(db)
	txRepo := postgres.NewTransactionRepository(db)

	// One-shot run in a separate process, so there is no sorted-list cache
	// to invalidate and no tracker to pass.
	recounter := usage.NewRecountServiceWithWorkers(usageRepo, txRepo, nil, *workers, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()

	if *allUsers {
		log.Info().Int("workers", *workers).Msg("starting recount for all users")
		result, err := recounter.RecountAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("recount failed")
		}
		printRecountResult("all users", result)
	} else {
		keys := splitUserKeys(*userStr)
		if len(keys) == 0 {
			log.Info().Msg("no users to process")
			return
		}

		log.Info().Int("users", len(keys)).Msg("starting recount")
		for _, key := range keys {
			result, err := recounter.RecountUser(ctx, key)
			if err != nil {
				log.Fatal().Err(err).Str("user", key).Msg("recount failed")
			}
			printRecountResult(key, result)
		}
	}

	log.Info().Dur("elapsed", time.Since(started)).Msg("recount completed")
}

func printRecountResult(label string, result *usage.RecountResult) {
	fmt.Printf("\n=== %s ===\n", label)
	fmt.Printf("  Users processed:  %d\n", result.UsersProcessed)
	fmt.Printf("  Rows scanned:     %d\n", result.RowsScanned)
	fmt.Printf("  Counters kept:    %d\n", result.CountersKept)

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:           %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runWarmRates(args []string, log zerolog.Logger) {
	fs := flag.NewFlagSet("warm-rates", flag.ExitOnError)

	userStr := fs.String("user", "", "User key(s) to warm (comma-separated for multiple)")
	allUsers := fs.Bool("all", false, "Warm rates for every known user")
	timeoutStr := fs.String("timeout", "10m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin warm-rates [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin warm-rates --user=u-1a2b")
		fmt.Println("  admin warm-rates --user=u-1a2b,u-3c4d")
		fmt.Println("  admin warm-rates --all --timeout=15m")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *userStr == "" && !*allUsers {
		fmt.Println("Error: must specify --user or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timeout format")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	usageRepo := postgres.NewUsageRepository(db)
	prefRepo := postgres.NewPreferenceRepository(db)

	rateSource := rates.NewClient(rates.Config{
		BaseURL:  cfg.Rates.BaseURL,
		Pivot:    cfg.Rates.Pivot,
		APIToken: cfg.Rates.APIToken,
		Timeout:  cfg.Rates.Timeout,
	})
	converter := exchange.NewConverter(rateSource, cfg.Rates.CacheTTL, cfg.Rates.Timeout, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var keys []string
	if *allUsers {
		keys, err = usageRepo.ListUserKeys(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to list users")
		}
		log.Info().Int("users", len(keys)).Msg("found users with usage history")
	} else {
		keys = splitUserKeys(*userStr)
	}

	if len(keys) == 0 {
		log.Info().Msg("no users to process")
		return
	}

	started := time.Now()
	warmed, failed := 0, 0

	for _, key := range keys {
		job := scheduler.NewRateWarmJob(key, usageRepo, prefRepo, converter, log)
		if err := job.Execute(ctx); err != nil {
			log.Error().Err(err).Str("user", key).Msg("warm failed")
			failed++
			continue
		}
		warmed++
	}

	log.Info().Int("warmed", warmed).Int("failed", failed).
		Dur("elapsed", time.Since(started)).Msg("rate warm completed")

	if failed > 0 {
		os.Exit(1)
	}
}

func splitUserKeys(s string) []string {
	var keys []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
