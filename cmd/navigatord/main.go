// Navigatord is the developer-memory retrieval daemon: it ingests a
// repository into a vector store, serves hybrid search and session
// orientation, and exposes every operation over both MCP (stdio) and plain
// JSON-over-HTTP.
//
// Configuration is loaded from environment variables, optionally layered
// over a YAML file. See internal/config for details.
//
// Usage:
//
//	# Start the HTTP + MCP-over-stdio daemon with defaults
//	navigatord
//
//	# MCP-over-stdio only, no HTTP listener
//	navigatord -stdio-only
//
//	# Configure via environment
//	SERVER_HTTP_PORT=9191 STORE_PROVIDER=qdrant navigatord
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/capture"
	"github.com/devmemory/navigator/internal/config"
	"github.com/devmemory/navigator/internal/httpapi"
	"github.com/devmemory/navigator/internal/ingest"
	"github.com/devmemory/navigator/internal/initiative"
	"github.com/devmemory/navigator/internal/llm"
	"github.com/devmemory/navigator/internal/logging"
	"github.com/devmemory/navigator/internal/mcp"
	"github.com/devmemory/navigator/internal/memory"
	"github.com/devmemory/navigator/internal/migrate"
	"github.com/devmemory/navigator/internal/orient"
	"github.com/devmemory/navigator/internal/qstore"
	"github.com/devmemory/navigator/internal/runtimeconfig"
	"github.com/devmemory/navigator/internal/search"
	"github.com/devmemory/navigator/internal/store"
	"github.com/devmemory/navigator/internal/telemetry"
	"github.com/devmemory/navigator/internal/tools"
	"github.com/devmemory/navigator/pkg/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	stdioOnly := flag.Bool("stdio-only", false, "run the MCP stdio transport only, without the HTTP listener")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  navigatord           Start the navigatord daemon\n")
			fmt.Fprintf(os.Stderr, "  navigatord version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *stdioOnly); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("navigatord\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the navigatord server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes logger and telemetry
//  3. Builds the vector store + embedder pair (embedded or remote)
//  4. Builds the retrieval, ingest, memory, initiative, orient and capture
//     services on top of the store
//  5. Runs pending schema migrations
//  6. Wires the operation dispatcher and both transports (MCP, HTTP)
//  7. Starts the HTTP server
//  8. Performs graceful shutdown on context cancellation
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, stdioOnly bool) error {
	cfg, err := config.LoadWithFile("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	zl := logger.Underlying()
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "Starting navigatord",
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("store_provider", cfg.Store.Provider),
		zap.Bool("stdio_only", stdioOnly),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	svc, err := buildServices(cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	logger.Info(ctx, "Services initialized",
		zap.String("data_dir", cfg.DataDir))

	if _, err := svc.migrations.Run(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	go svc.captureWorker.Run(ctx, 5*time.Second)

	for _, watchPath := range cfg.Ingest.WatchPaths {
		watchPath := watchPath
		go func() {
			opts := ingest.Options{Path: watchPath, UseIgnoreFiles: true}
			err := svc.ingest.Watch(ctx, opts, func(stats ingest.Stats, err error) {
				if err != nil {
					logger.Error(ctx, "watch: re-ingest failed", zap.String("path", watchPath), zap.Error(err))
					return
				}
				logger.Info(ctx, "watch: re-ingested", zap.String("path", watchPath),
					zap.Int("files_processed", stats.FilesProcessed))
			})
			if err != nil && ctx.Err() == nil {
				logger.Error(ctx, "watch: stopped", zap.String("path", watchPath), zap.Error(err))
			}
		}()
	}

	dispatcher := tools.New(tools.Deps{
		Store:         svc.store,
		Search:        svc.search,
		Ingest:        svc.ingest,
		Tasks:         svc.tasks,
		Memory:        svc.memory,
		Initiatives:   svc.initiatives,
		Orient:        svc.orient,
		Migrations:    svc.migrations,
		Capture:       svc.captureQueue,
		CaptureWorker: svc.captureWorker,
		RuntimeCfg:    svc.runtimeCfg,
		Logger:        zl,
	})

	mcpServer, err := mcp.NewServer(&mcp.Config{Name: "navigator", Version: version, Logger: zl}, dispatcher)
	if err != nil {
		return fmt.Errorf("building MCP server: %w", err)
	}

	if stdioOnly {
		return mcpServer.Run(ctx)
	}

	go func() {
		if err := mcpServer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "mcp server exited", zap.Error(err))
		}
	}()

	srv := server.NewServer(cfg)
	httpapi.Register(srv.Echo(), dispatcher, zl)
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info(ctx, "Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("tools_endpoint", "/v1/tools"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Observability.EnableTelemetry {
		logCfg.Output.OTEL = true
	}
	return logging.NewLogger(logCfg, nil)
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Observability.EnableTelemetry
	tc.Endpoint = cfg.Observability.OTLPEndpoint
	tc.ServiceName = cfg.Observability.ServiceName
	tc.Insecure = cfg.Observability.OTLPInsecure
	return tc
}

// gitBranchDetector adapts the free-function ingest.DetectBranch to the
// single-method BranchDetector interface internal/search and internal/orient
// each declare independently.
type gitBranchDetector struct{}

func (gitBranchDetector) DetectBranch(repository string) string {
	return ingest.DetectBranch(repository)
}

// services holds every constructed component, for a single defer-able Close
// and a single struct to thread into tools.Deps.
type services struct {
	store         *store.Instrumented
	search        *search.Engine
	ingest        *ingest.Pipeline
	tasks         *ingest.TaskTable
	memory        *memory.Service
	initiatives   *initiative.Service
	orient        *orient.Service
	migrations    *migrate.Runner
	captureQueue  *capture.Queue
	captureWorker *capture.Worker
	runtimeCfg    *runtimeconfig.Store

	closers []func() error
}

// Close releases all infrastructure resources.
func (s *services) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// buildServices constructs the store backend (embedded chromem-go or remote
// qdrant, per cfg.Store.Provider), the retrieval/ingest/memory/initiative/
// orient/capture services layered on top of it, and the migration runner
// guarding its schema version.
func buildServices(cfg *config.Config, logger *zap.Logger) (*services, error) {
	dataDir, err := expandPath(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	rawStore, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	instrumented := store.NewInstrumented(rawStore)

	lexical := search.NewLexicalIndex(instrumented)
	branches := gitBranchDetector{}
	engine := search.NewEngine(instrumented, lexical, search.NewSimpleReranker(), branches)

	pipeline := ingest.NewPipeline(instrumented, lexical, dataDir, logger)
	tasks := ingest.NewTaskTable()

	memSvc := memory.NewService(instrumented)
	initSvc := initiative.NewService(instrumented)
	orientSvc := orient.NewService(instrumented, initSvc, branches)

	runner := migrate.NewRunner(dataDir, migrate.Builtin(instrumented), logger)

	captureQueue := capture.NewQueue(dataDir)

	provider, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey.Value(),
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("building LLM provider: %w", err)
	}

	worker := capture.NewWorker(captureQueue, provider, memSvc, initSvc, logger)

	runtimeCfg := runtimeconfig.NewStore()

	return &services{
		store:         instrumented,
		search:        engine,
		ingest:        pipeline,
		tasks:         tasks,
		memory:        memSvc,
		initiatives:   initSvc,
		orient:        orientSvc,
		migrations:    runner,
		captureQueue:  captureQueue,
		captureWorker: worker,
		runtimeCfg:    runtimeCfg,
		closers:       []func() error{rawStore.Close},
	}, nil
}

// buildStore constructs the Store named by cfg.Store.Provider: the embedded
// chromem-go default, or a remote Qdrant collection. Both are paired with
// the Embedder named by cfg.Embeddings.Provider.
func buildStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	switch cfg.Store.Provider {
	case "qdrant":
		s, err := qstore.NewQdrantStore(qstore.Config{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		}, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		return s, nil
	default:
		chromemPath, err := expandPath(cfg.Store.Chromem.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving chromem path: %w", err)
		}
		s, err := store.NewChromemStore(store.ChromemConfig{
			Path:       chromemPath,
			Compress:   cfg.Store.Chromem.Compress,
			Collection: cfg.Store.Chromem.DefaultCollection,
		}, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("opening chromem store: %w", err)
		}
		return s, nil
	}
}

// buildEmbedder constructs the Embedder named by cfg.Embeddings.Provider:
// the local, zero-network fastembed default, or a remote OpenAI-compatible
// endpoint.
func buildEmbedder(cfg *config.Config) (store.Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "remote":
		return store.NewRemoteEmbedder(store.RemoteEmbedderConfig{
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
			APIKey:  cfg.Embeddings.APIKey.Value(),
		})
	default:
		return store.NewFastEmbedEmbedder(store.FastEmbedConfig{
			Model:    cfg.Embeddings.Model,
			CacheDir: cfg.Embeddings.CacheDir,
		})
	}
}

// expandPath resolves a leading "~" against the user's home directory, for
// the data-dir and chromem-path config fields that default to "~/..." paths.
func expandPath(dir string) (string, error) {
	if dir == "" || dir[0] != '~' {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return home + dir[1:], nil
}
