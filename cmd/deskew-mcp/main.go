package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/deskew-mcp/internal/config"
	"github.com/ironsheep/deskew-mcp/internal/deskew"
	"github.com/ironsheep/deskew-mcp/internal/imaging"
	"github.com/ironsheep/deskew-mcp/internal/logging"
	"github.com/ironsheep/deskew-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("deskew-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "deskew-mcp: %v\n", err)
		os.Exit(2)
	}

	// Logs go to stderr (stdout is for MCP protocol)
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, log, os.Args[1:]); err != nil {
			log.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
			os.Exit(1)
		}
		return
	}

	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("strategy", cfg.Deskew.Strategy.String()).
		Str("policy", cfg.Deskew.Policy.String()).
		Msg("starting MCP server")

	srv := server.New(cfg.Deskew, log)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func printUsage() {
	fmt.Println("deskew-mcp - MCP server for scanned page skew estimation")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  deskew-mcp                    Serve MCP over stdin/stdout")
	fmt.Println("  deskew-mcp estimate <path>    Print the skew estimate of a page as JSON")
	fmt.Println("  deskew-mcp deskew <in> <out>  Level a page and write it to <out>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug          Log level (default info)\n", config.EnvLogLevel)
	fmt.Printf("  %s=console       Human-readable logs (default json)\n", config.EnvLogFormat)
	fmt.Printf("  %s=segments        Line source: hough or segments\n", config.EnvStrategy)
	fmt.Printf("  %s=mean              Reduction policy: mode or mean\n", config.EnvPolicy)
	fmt.Printf("  %s=4                Accumulator workers (0 = all CPUs)\n", config.EnvWorkers)
	fmt.Printf("  %s=20                 Lines aggregated per estimate\n", config.EnvTopK)
	fmt.Printf("  %s=140   Ink threshold\n", config.EnvLuminanceCutoff)
	fmt.Printf("  %s=true             Binarise before estimating\n", config.EnvBinarize)
	fmt.Printf("  %s=128       Global cut instead of Sauvola (0 = Sauvola)\n", config.EnvThresholdLevel)
	fmt.Printf("  %s=1.5          Blur before segment edge detection\n", config.EnvBlurRadius)
	fmt.Println()
	fmt.Println("Configure the server in your MCP client (e.g., Claude Desktop).")
}

// runCommand executes a one-shot subcommand.
func runCommand(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	est, err := deskew.NewEstimator(cfg.Deskew, log)
	if err != nil {
		return err
	}
	cache := imaging.NewImageCache()

	switch args[0] {
	case "estimate":
		if len(args) != 2 {
			return fmt.Errorf("usage: deskew-mcp estimate <path>")
		}
		img, err := cache.Load(args[1])
		if err != nil {
			return err
		}
		res, err := est.Estimate(ctx, img)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)

	case "deskew":
		if len(args) != 3 {
			return fmt.Errorf("usage: deskew-mcp deskew <in> <out>")
		}
		img, err := cache.Load(args[1])
		if err != nil {
			return err
		}
		out, res, err := est.Deskew(ctx, img)
		if err != nil {
			return err
		}
		if err := imaging.SaveImage(out, args[2]); err != nil {
			return err
		}
		fmt.Printf("%s: rotated by %.2f degrees\n", args[2], res.Angle)
		return nil

	default:
		return fmt.Errorf("unknown command %q (see --help)", args[0])
	}
}
