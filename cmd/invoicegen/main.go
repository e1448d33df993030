package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/invoicegen/internal/config"
	"github.com/a3tai/invoicegen/internal/invoice"
	"github.com/a3tai/invoicegen/internal/logging"
	invoicemcp "github.com/a3tai/invoicegen/internal/mcp"
	"github.com/a3tai/invoicegen/internal/prompt"
	"github.com/a3tai/invoicegen/internal/sequence"
	"github.com/a3tai/invoicegen/internal/web"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// setupLogging builds the logger for the configured mode. Outside server
// mode logs go to stderr, and only warnings and errors are shown unless
// debug is enabled, so MCP framing and the prompt stay readable.
func setupLogging(cfg *config.Config) (*zap.Logger, error) {
	opts := logging.Options{
		Level:   cfg.LogLevel,
		Service: cfg.ServerName,
		Stderr:  !cfg.IsServerMode(),
	}
	if !cfg.IsServerMode() && !cfg.IsDebug() && cfg.LogLevel == config.DefaultLogLevel {
		opts.Level = "warn"
	}
	return logging.New(opts)
}

func newService(cfg *config.Config, seq sequence.Sequence, logger *zap.Logger) (*invoice.Service, error) {
	generator, err := invoice.NewGenerator(cfg.Directory, seq,
		invoice.WithParties(cfg.Parties()),
		invoice.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return invoice.NewService(generator, cfg.MaxFileSize)
}

// run executes the configured mode, or the subcommand named by cfg.Args.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) error {
	if len(cfg.Args) > 0 {
		return runCommand(cfg, logger, cfg.Args, out)
	}

	seq, err := sequence.New(ctx, cfg.SequenceOptions())
	if err != nil {
		return fmt.Errorf("failed to open invoice sequence: %w", err)
	}
	defer func() {
		if err := seq.Close(); err != nil {
			logger.Warn("failed to close invoice sequence", zap.Error(err))
		}
	}()

	service, err := newService(cfg, seq, logger)
	if err != nil {
		return err
	}

	switch {
	case cfg.IsServerMode():
		return runServerMode(ctx, cfg, service, logger)
	case cfg.IsStdioMode():
		return runStdioMode(ctx, cfg, service, logger, in, out)
	default:
		_, err := prompt.New(service, in, out).Run(ctx)
		return err
	}
}

// runServerMode serves the web UI and JSON API until interrupted
func runServerMode(ctx context.Context, cfg *config.Config, service *invoice.Service, logger *zap.Logger) error {
	logger.Info("starting invoicegen",
		zap.String("address", cfg.Address()),
		zap.String("directory", service.Directory()),
		zap.String("sequence", cfg.Sequence),
	)

	router := web.NewRouter(service, web.WithLogger(logger))
	server := web.NewServer(logger, cfg.Address(), router)

	if err := server.Run(ctx, shutdownTimeout); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped successfully")
	return nil
}

// runStdioMode serves MCP until the parent process closes stdin
func runStdioMode(
	ctx context.Context,
	cfg *config.Config,
	service *invoice.Service,
	logger *zap.Logger,
	in io.Reader,
	out io.Writer,
) error {
	server, err := invoicemcp.NewServer(cfg, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Serve(ctx, in, out)
}

// runCommand handles positional subcommands. Only inspect is supported.
func runCommand(cfg *config.Config, logger *zap.Logger, args []string, out io.Writer) error {
	if args[0] != "inspect" {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if len(args) != 2 {
		return errors.New("usage: invoicegen inspect <Invoice_N.pdf>")
	}

	// Inspecting never issues numbers, so the configured sequence is not opened.
	service, err := newService(cfg, sequence.NewMemory(1), logger)
	if err != nil {
		return err
	}

	inspection, err := service.Inspect(args[1])
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(out, invoicemcp.FormatInspection(inspection))
	return err
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("starting with configuration", zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger, os.Stdin, os.Stdout)
	stop()
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "invoicegen\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
