// cmd/promoscout/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/promoscout/promoscout/internal/app"
	"github.com/promoscout/promoscout/internal/config"
	"github.com/promoscout/promoscout/internal/report"
	"github.com/promoscout/promoscout/internal/store"
	"github.com/promoscout/promoscout/internal/tracker"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: promoscout run <config.yaml> [--demo]\n")
			os.Exit(1)
		}
		runOnce(os.Args[2], hasFlag("--demo"))

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: promoscout validate <config.yaml>\n")
			os.Exit(1)
		}
		validateConfig(os.Args[2])

	case "template":
		fmt.Print(configTemplate)

	case "export":
		if len(os.Args) < 4 {
			fmt.Fprintf(os.Stderr, "Error: config file and output path required\n")
			fmt.Fprintf(os.Stderr, "Usage: promoscout export <config.yaml> <campaigns.xlsx>\n")
			os.Exit(1)
		}
		exportCampaigns(os.Args[2], os.Args[3])

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runOnce executes a single scan-and-reconcile cycle and prints the summary.
func runOnce(configFile string, useDemo bool) {
	ctx := context.Background()

	application, err := buildApp(ctx, configFile)
	if err != nil {
		fatal("%v", err)
	}
	defer application.Close()

	var summary *tracker.RunSummary
	if useDemo {
		summary, err = application.Pipeline.RunOnceWithSeed(ctx)
	} else {
		summary, err = application.Pipeline.RunOnce(ctx)
	}
	if err != nil {
		fatal("run failed: %v", err)
	}

	fmt.Printf("Scan complete for %s\n", summary.Competitor)
	fmt.Printf("  Found:       %d\n", summary.Found)
	fmt.Printf("  New:         %d\n", summary.New)
	fmt.Printf("  Updated:     %d\n", summary.Updated)
	fmt.Printf("  Skipped:     %d\n", summary.Skipped)
	fmt.Printf("  Deactivated: %d\n", summary.Deactivated)
	fmt.Printf("  Duration:    %s\n", summary.Duration)
}

func validateConfig(configFile string) {
	if _, err := config.LoadFromFile(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Configuration file '%s' is valid\n", configFile)
}

// exportCampaigns writes the current campaign set to an Excel workbook.
func exportCampaigns(configFile, outputPath string) {
	ctx := context.Background()

	application, err := buildApp(ctx, configFile)
	if err != nil {
		fatal("%v", err)
	}
	defer application.Close()

	campaigns, _, err := application.Store.ListCampaigns(ctx, store.Filter{Limit: 10000})
	if err != nil {
		fatal("failed to list campaigns: %v", err)
	}

	exporter := report.NewExcelExporter("")
	if err := exporter.Export(campaigns, outputPath); err != nil {
		fatal("export failed: %v", err)
	}
	fmt.Printf("Exported %d campaigns to %s\n", len(campaigns), outputPath)
}

func buildApp(ctx context.Context, configFile string) (*app.App, error) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.New(ctx, cfg)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println("PromoScout - Competitor Campaign Tracker")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  promoscout run <config.yaml> [--demo]        Run one scan-and-reconcile cycle")
	fmt.Println("  promoscout validate <config.yaml>            Validate configuration file")
	fmt.Println("  promoscout template                          Print a configuration template")
	fmt.Println("  promoscout export <config.yaml> <file.xlsx>  Export campaigns to Excel")
	fmt.Println("  promoscout version                           Show version information")
	fmt.Println("  promoscout help                              Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --demo    Use the built-in demonstration dataset instead of live pages")
}

func printVersion() {
	fmt.Printf("PromoScout %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}

const configTemplate = `# PromoScout configuration
competitor: "Marriott"

source_urls:
  - "https://www.marriott.com.cn/specials/"
  - "https://www.marriott.com.cn/offers/"
  - "https://www.marriott.com.cn/marriott-bonvoy/"

scrape:
  min_name_length: 3
  min_description_length: 10
  stale_after_days: 3
  concurrency: 3
  timeout: 30s
  rate_limit: 1.0
  rate_burst: 5
  use_browser: false

storage:
  backend: sqlite
  sqlite_path: data/promoscout.db
  # backend: postgres
  # dsn: "${DATABASE_URL}"
  # backend: mongodb
  # mongo_uri: "${MONGO_URI}"
  # mongo_database: promoscout

server:
  host: 0.0.0.0
  port: 8080
  enable_metrics: true

schedule:
  enabled: false
  interval: 6h
  run_on_start: true

log_level: info
`
