package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ironsheep/image-nodes/internal/config"
	"github.com/ironsheep/image-nodes/internal/imaging"
	"github.com/ironsheep/image-nodes/internal/logging"
	"github.com/ironsheep/image-nodes/internal/server"
	"github.com/ironsheep/image-nodes/internal/telemetry"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("image-nodes - MCP server running image crop, pad and PNG export nodes")
	fmt.Println()
	fmt.Println("Usage: image-nodes [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>  YAML configuration file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (override the config file):")
	fmt.Println("  IMAGE_NODES_OUTPUT_DIR=./output       Base directory for relative save paths")
	fmt.Println("  IMAGE_NODES_DISABLE_METADATA=true     Never embed PNG text metadata")
	fmt.Println("  IMAGE_NODES_COMPRESSION=best          default|none|fast|best")
	fmt.Println("  IMAGE_NODES_LOG_LEVEL=debug           Log level (or IMAGE_NODES_LOG__LEVEL)")
	fmt.Println("  IMAGE_NODES_LOG__JSON=true            JSON log output")
	fmt.Println("  IMAGE_NODES_METRICS__PORT=9464        Serve Prometheus /metrics")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-nodes %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	fs := flag.NewFlagSet("image-nodes", flag.ExitOnError)
	fs.Usage = usage
	configPath := fs.String("config", "", "YAML configuration file")
	_ = fs.Parse(os.Args[1:])

	// stdout is for MCP protocol
	logging.InitFromEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.L().Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	logging.L().Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit, "output_dir", cfg.OutputDir)

	level, _ := cfg.CompressionLevel()
	metrics := telemetry.New()
	if cfg.Metrics.Port > 0 {
		if _, err := metrics.Expose(cfg.Metrics.Port); err != nil {
			logging.L().Error("metrics disabled", "err", err)
		}
	}

	server.Version = Version
	srv := server.New(server.Options{
		Saver: &imaging.Saver{
			OutputDir:       cfg.OutputDir,
			DisableMetadata: cfg.DisableMetadata,
			Compression:     level,
		},
		Metrics: metrics,
	})
	if err := srv.Run(); err != nil {
		logging.L().Error("server error", "err", err)
		os.Exit(1)
	}
}
