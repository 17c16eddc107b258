package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/graph"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/oracle"
	"github.com/goodnatureofminers/txancestry-backend/internal/dotenv"
	"github.com/goodnatureofminers/txancestry-backend/internal/metrics"
	"github.com/goodnatureofminers/txancestry-backend/internal/transport"
	grpcMiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpcRecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcCtxTags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	grpcPrometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type config struct {
	Addr                string        `long:"addr" env:"API_GATEWAY_ADDR" description:"gRPC addr" default:":8000"`
	RestAddr            string        `long:"rest-addr" env:"API_GATEWAY_REST_ADDR" description:"rest addr" default:":5555"`
	DefaultDepth        int           `long:"default-depth" env:"ANCESTRY_DEFAULT_DEPTH" description:"depth used when the request has none" default:"3"`
	MaxDepth            int           `long:"max-depth" env:"ANCESTRY_MAX_DEPTH" description:"largest depth a client may request" default:"5"`
	MaxNodes            int           `long:"max-nodes" env:"ANCESTRY_MAX_NODES" description:"abort graphs with more nodes, 0 disables" default:"2000"`
	Workers             int           `long:"workers" env:"ANCESTRY_WORKERS" description:"concurrent oracle calls per request" default:"8"`
	RequestTimeout      time.Duration `long:"request-timeout" env:"ANCESTRY_REQUEST_TIMEOUT" description:"time budget for building one graph" default:"60s"`
	AllowMissingAddress bool          `long:"allow-missing-address" env:"ANCESTRY_ALLOW_MISSING_ADDRESS" description:"keep edges whose spent output has no address"`
	HealthInterval      time.Duration `long:"health-interval" env:"ANCESTRY_HEALTH_INTERVAL" description:"interval between node health checks" default:"15s"`
	LogJSON             bool          `long:"log-json" env:"ANCESTRY_LOG_JSON" description:"production JSON logging"`

	Oracle oracle.Config `group:"Bitcoin node"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config{}
	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogJSON)
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	grpcZap.ReplaceGrpcLoggerV2(logger)

	if cfg.DefaultDepth < 0 || cfg.DefaultDepth > cfg.MaxDepth {
		logger.Fatal("default depth must be between 0 and max depth",
			zap.Int("default_depth", cfg.DefaultDepth), zap.Int("max_depth", cfg.MaxDepth))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api gateway failed", zap.Error(err))
	}
}

func newLogger(json bool) (*zap.Logger, error) {
	if json {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	client, err := oracle.New(cfg.Oracle, metrics.NewRPCClient(cfg.Oracle.Network), logger.Named("oracle"))
	if err != nil {
		return fmt.Errorf("init oracle: %w", err)
	}
	defer client.Close()

	builder := graph.NewBuilder(client, logger.Named("graph"),
		graph.WithWorkerCount(cfg.Workers),
		graph.WithMaxNodes(cfg.MaxNodes),
		graph.WithRequireAddress(!cfg.AllowMissingAddress),
		graph.WithMetrics(metrics.NewTraversal()),
	)

	chain := []grpc.UnaryServerInterceptor{
		grpcRecovery.UnaryServerInterceptor(),
		grpcCtxTags.UnaryServerInterceptor(),
		grpcPrometheus.UnaryServerInterceptor,
		grpcZap.UnaryServerInterceptor(logger),
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMiddleware.ChainUnaryServer(chain...)),
	)
	grpcPrometheus.EnableHandlingTimeHistogram()
	grpcPrometheus.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go transport.NewHealthChecker(client, healthServer, cfg.HealthInterval, logger.Named("health")).Run(ctx)

	socket, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	go func() {
		if serveErr := grpcServer.Serve(socket); serveErr != nil {
			logger.Error("gRPC server stopped", zap.Error(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gRPC server")
		grpcServer.GracefulStop()
	}()

	conn, err := grpc.NewClient(dialTarget(socket.Addr()), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial gRPC server: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	gw := gwruntime.NewServeMux(gwruntime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	graphHandler := transport.NewGraphHandler(builder, transport.GraphConfig{
		DefaultDepth:   cfg.DefaultDepth,
		MaxDepth:       cfg.MaxDepth,
		RequestTimeout: cfg.RequestTimeout,
	}, metrics.NewHTTP(), logger.Named("http"))
	if err := graphHandler.Register(gw); err != nil {
		return fmt.Errorf("register graph handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", gw)
	mux.Handle("/metrics", promhttp.Handler())

	s := &http.Server{
		Addr:              cfg.RestAddr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("Starting HTTP server", zap.String("addr", cfg.RestAddr))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// dialTarget turns a listener address such as [::]:8000 into one the
// gateway can dial.
func dialTarget(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP == nil || tcp.IP.IsUnspecified() {
		_, port, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}
		return net.JoinHostPort("localhost", port)
	}
	return addr.String()
}
