package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nickdesi/FFBB-MCP-Server/configs"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/inbound/mcphttp"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/inbound/mcptools"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/ffbbapi"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/httpcache"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/memrepo"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/tokens"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	// === Command Line Flags ===
	var transport string
	flag.StringVar(&transport, "transport", "stdio", "Transport mode: stdio or sse")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	logger, closeLog := newLogger(cfg, transport)
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()), slog.String("transport", transport))

	if err := run(ctx, cfg, transport, logger); err != nil {
		logger.Error("Server stopped with error", slog.Any("error", err))
		closeLog()
		os.Exit(1)
	}
}

// newLogger logs to stderr, or to cfg.LogFile in stdio mode where stdout is
// the MCP channel.
func newLogger(cfg *configs.Config, transport string) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}
	if transport != "stdio" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	return slog.New(slog.NewTextHandler(logFile, opts)), func() { _ = logFile.Close() }
}

func run(ctx context.Context, cfg *configs.Config, transport string, logger *slog.Logger) error {
	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	logger.Info("Initializing dependencies...")

	var backend httpcache.Backend
	if cfg.HTTPCacheEnabled {
		backend, err = httpcache.OpenBackend(cfg.CacheBackend, cfg.ResolvedCachePath(), usecase.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed to open HTTP cache: %w", err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Warn("Failed to close HTTP cache", slog.Any("error", err))
			}
		}()
		logger.Info("HTTP cache ready.", slog.String("backend", cfg.CacheBackend))
	}

	tokenClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	credentials := tokens.NewSource(tokenClient, cfg.APIBaseURL, cfg.UserAgent, cfg.TokenCacheTTL, logger)
	transports := httpcache.NewFactory(backend, http.DefaultTransport, cfg.HTTPCacheEnabled, logger)
	clients := ffbbapi.NewFactory(ffbbapi.FactoryConfig{
		APIBaseURL:    cfg.APIBaseURL,
		SearchBaseURL: cfg.SearchBaseURL,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.HTTPClientTimeout,
		SearchLimit:   cfg.SearchLimit,
	}, logger)

	manager := usecase.NewClientManager(credentials, clients, transports, logger)
	queries := usecase.NewQueryUseCase(manager, logger)

	catalogRepo := memrepo.NewInMemoryCatalogRepository(logger)
	catalog := usecase.NewServeCatalogUseCase(catalogRepo, logger)

	// === MCP Server (mark3labs/mcp-go) ===
	mcpSrv := mcptools.NewServer(version)
	registrar := mcptools.NewRegistrar(mcpSrv, queries, catalogRepo, catalog, version, logger)
	if err := registrar.Register(ctx); err != nil {
		return err
	}
	logger.Info("MCP server initialized.")

	// === Transport Mode Selection ===
	switch transport {
	case "stdio":
		logger.Info("Starting in STDIO mode")
		if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("STDIO server error: %w", err)
		}
		return nil
	case "sse":
		return serveSSE(ctx, cfg, mcpSrv, manager, credentials, catalog, logger)
	default:
		return fmt.Errorf("invalid transport mode %q", transport)
	}
}

func serveSSE(
	ctx context.Context,
	cfg *configs.Config,
	mcpSrv *server.MCPServer,
	manager *usecase.ClientManager,
	credentials *tokens.Source,
	catalog *usecase.ServeCatalogUseCase,
	logger *slog.Logger,
) error {
	logger.Info("Starting in SSE mode")
	sseServer := server.NewSSEServer(mcpSrv, server.WithBaseURL("http://"+cfg.ListenAddr))

	adminMux := http.NewServeMux()
	mcphttp.NewHandlers(manager, credentials, catalog, logger).RegisterAdminRoutes(adminMux)
	adminServer := &http.Server{Addr: cfg.AdminListenAddr, Handler: adminMux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("MCP SSE server starting.", slog.String("address", cfg.ListenAddr))
		if err := sseServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("MCP SSE server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Admin HTTP server starting.", slog.String("address", adminServer.Addr))
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			adminServer.Shutdown(shutdownCtx),
			sseServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Servers shut down gracefully.")
	return nil
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP trace exporter.
// It returns a shutdown function to be called on application exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("FFBB_OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("ffbb-mcp"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	slog.Info("OpenTelemetry TracerProvider configured.")

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
