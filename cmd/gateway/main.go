package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
	"github.com/AumkarMali/backendVibeVideo/internal/config"
	"github.com/AumkarMali/backendVibeVideo/internal/connectors"
	"github.com/AumkarMali/backendVibeVideo/internal/dlp"
	"github.com/AumkarMali/backendVibeVideo/internal/engine"
	"github.com/AumkarMali/backendVibeVideo/internal/ledger"
	"github.com/AumkarMali/backendVibeVideo/internal/locate"
	"github.com/AumkarMali/backendVibeVideo/internal/merge"
	"github.com/AumkarMali/backendVibeVideo/internal/metrics"
	"github.com/AumkarMali/backendVibeVideo/internal/server"
	"github.com/AumkarMali/backendVibeVideo/internal/staging"
)

const shutdownGrace = 30 * time.Second

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("gateway exited")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gateway",
		Short:         "VibeVideo media gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "resolve <message>",
		Short: "Print the operation a chat message maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := command.Interpret("", strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})
	return root
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg)

	stager, err := staging.NewStager(cfg.StagingDir, cfg.MaxUploadBytes, logger)
	if err != nil {
		return err
	}

	m := metrics.Default()
	processor, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	locator := locate.New(cfg.StagingDir, cfg.WorkDir)
	dispatcher := engine.NewDispatcher(processor, locator, cfg.EngineTimeout, m, logger)
	merger := merge.NewService(engine.NewFFmpegMerger(cfg.FFmpegBin), cfg.EngineTimeout, m, logger)

	connectorSet := connectors.LoadFromEnv(ctx, logger)
	if len(connectorSet) > 0 {
		log.Info().Int("count", len(connectorSet)).Msg("external connectors enabled")
	}

	book, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer book.Close()

	srv := server.New(server.Deps{
		Stager:         stager,
		Dispatcher:     dispatcher,
		Merger:         merger,
		Scanner:        dlp.NewRuleScannerFromEnv(),
		Archiver:       connectors.NewArchiver(connectorSet, cfg.ConnectorStrict, logger),
		Ledger:         book,
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxMergeFiles:  cfg.MaxMergeFiles,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("engine", processor.Name()).
			Str("staging", cfg.StagingDir).
			Msg("gateway HTTP listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer = grpc.NewServer()
		hs := health.NewServer()
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, hs)
		reflection.Register(grpcServer)
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("gateway gRPC health listening")
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down gateway")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return httpServer.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return log.Logger
}

func buildEngine(cfg config.Config) (engine.ProcessingEngine, error) {
	switch cfg.Engine {
	case config.EngineCommand:
		e, err := engine.NewCommandEngine(cfg.EngineCommand, cfg.EngineOperations)
		if err != nil {
			return nil, fmt.Errorf("build command engine: %w", err)
		}
		return e, nil
	default:
		presets := engine.DefaultPresetLibrary()
		if cfg.PresetFile != "" {
			loaded, err := engine.LoadPresetFile(cfg.PresetFile)
			if err != nil {
				return nil, fmt.Errorf("load presets: %w", err)
			}
			presets = loaded
		}
		return engine.NewFFmpegEngine(cfg.FFmpegBin, presets), nil
	}
}

func openLedger(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*ledger.Ledger, error) {
	registry, err := ledger.NewRegistry(cfg.RegistrySize)
	if err != nil {
		return nil, err
	}
	if cfg.PostgresDSN == "" {
		return ledger.New(registry, nil, nil, logger), nil
	}
	pg, openErr := ledger.OpenPG(ctx, cfg.PostgresDSN)
	if openErr != nil {
		// the gateway still serves media without the request table
		log.Warn().Err(openErr).Msg("postgres unavailable; request history is in-memory only")
	}
	return ledger.New(registry, pg, openErr, logger), nil
}
