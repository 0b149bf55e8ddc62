package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"github.com/tejusbharadwaj/smardexporter/internal/api"
	"github.com/tejusbharadwaj/smardexporter/internal/cache"
	"github.com/tejusbharadwaj/smardexporter/internal/classifier"
	"github.com/tejusbharadwaj/smardexporter/internal/config"
	"github.com/tejusbharadwaj/smardexporter/internal/database"
	"github.com/tejusbharadwaj/smardexporter/internal/exporter"
	server "github.com/tejusbharadwaj/smardexporter/internal/grpc"
	"github.com/tejusbharadwaj/smardexporter/internal/logging"
	"github.com/tejusbharadwaj/smardexporter/internal/parser"
	"github.com/tejusbharadwaj/smardexporter/internal/publish"
	"github.com/tejusbharadwaj/smardexporter/internal/scheduler"
	"github.com/tejusbharadwaj/smardexporter/internal/snapshot"
	"github.com/tejusbharadwaj/smardexporter/internal/window"
)

// Command smardexporter polls the SMARD market-data feed and exposes the
// latest energy production and consumption figures as Prometheus metrics.
//
// Usage:
//
//	smardexporter [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml", skipped if missing)
//	-api, -a string
//	      feed endpoint URL
//	-storage, -s string
//	      cache directory for the file backend
//	-port, -p int
//	      HTTP metrics port
//	-modules, -m string
//	      "all" or comma separated module ids
//	-dryrun, -d
//	      run one cycle, print the snapshot as YAML and exit
func main() {
	flags := parseFlags()

	// .env is optional
	_ = godotenv.Load()

	appConfig, err := loadConfig(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if flags.DryRun && (appConfig.Logging.Output == "" || appConfig.Logging.Output == "stdout") {
		appConfig.Logging.Output = "stderr"
	}
	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	key, err := appConfig.RequestKey()
	if err != nil {
		logger.Fatalf("Invalid module selector: %v", err)
	}
	if err := api.ValidateRequest(key, window.Calculate(key.ModuleIDs, time.Now())); err != nil {
		logger.Fatalf("Invalid feed request: %v", err)
	}
	numberFormat, err := parser.FormatByName(appConfig.Feed.NumberFormat)
	if err != nil {
		logger.Fatalf("Invalid number format: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := exporter.NewMetrics(registry)
	if err != nil {
		logger.Fatalf("Failed to register metrics: %v", err)
	}

	store, closeStore, err := createStore(ctx, appConfig.Cache)
	if err != nil {
		logger.Fatalf("Failed to create cache store: %v", err)
	}
	defer closeStore()

	feedCache, err := cache.New(store, cache.Options{
		TTL:      appConfig.Cache.TTL,
		LRUSize:  appConfig.Cache.LRUSize,
		Observer: metrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create feed cache: %v", err)
	}

	feedClient := api.NewFeedClient(appConfig.Feed.URL, &http.Client{}, api.Options{
		Language:          appConfig.Feed.Language,
		Timeout:           appConfig.Feed.Timeout,
		RequestsPerSecond: appConfig.Feed.RequestsPerSecond,
		Burst:             appConfig.Feed.Burst,
		Logger:            logger,
	})

	state := &snapshot.State{}
	health := server.NewHealthChecker()

	opts := scheduler.Options{
		Health:            health,
		Metrics:           metrics,
		ObservationOffset: appConfig.Poll.ObservationOffset,
		Logger:            logger,
	}

	var publisher *publish.KafkaPublisher
	if len(appConfig.Kafka.Brokers) > 0 && !flags.DryRun {
		publisher, err = publish.NewKafkaPublisher(appConfig.Kafka.Brokers, appConfig.Kafka.Topic, logger)
		if err != nil {
			logger.Fatalf("Failed to create kafka publisher: %v", err)
		}
		defer publisher.Close()
		opts.Publisher = publisher
	}

	pipeline := scheduler.NewPipeline(
		key,
		feedCache,
		feedClient,
		parser.New(numberFormat),
		snapshot.NewBuilder(classifier.New(nil)),
		state,
		opts,
	)

	if flags.DryRun {
		if err := runDry(ctx, pipeline, os.Stdout); err != nil {
			logger.Fatalf("Dry run failed: %v", err)
		}
		return
	}

	registry.MustRegister(exporter.NewCollector(state))

	logger.WithFields(logrus.Fields{
		"port":    appConfig.Server.Port,
		"slot":    key.Slot(),
		"backend": appConfig.Cache.Backend,
	}).Info("Starting exporter")

	errChan := make(chan error, 2)

	httpSrv := exporter.NewServer(
		fmt.Sprintf("0.0.0.0:%d", appConfig.Server.Port),
		exporter.NewRouter(registry, state, logger),
	)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if appConfig.Server.GRPCPort > 0 {
		grpcSrv, err = server.SetupServer(health, server.ServerConfig{
			RateLimit:      appConfig.Server.RateLimit,
			RateLimitBurst: appConfig.Server.RateLimitBurst,
		}, logger, &server.RequestMetrics{
			Requests: metrics.GRPCRequests,
			Latency:  metrics.GRPCLatency,
		})
		if err != nil {
			logger.Fatalf("Failed to setup gRPC server: %v", err)
		}

		lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", appConfig.Server.GRPCPort))
		if err != nil {
			logger.Fatalf("Failed to listen: %v", err)
		}
		logger.WithField("port", appConfig.Server.GRPCPort).Info("Starting gRPC health server")
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				errChan <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	sched := scheduler.NewScheduler(ctx, pipeline, appConfig.Poll.Interval, logger)
	sched.SetCycleTimeout(appConfig.Poll.CycleTimeout)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	select {
	case <-ctx.Done():
		logger.Println("Received shutdown signal, initiating shutdown")
	case err := <-errChan:
		logger.WithError(err).Error("Service error, shutting down")
	}

	shutdown(sched, httpSrv, grpcSrv, logger)
}

type Flags struct {
	ConfigPath string
	API        string
	Storage    string
	Port       int
	Modules    string
	DryRun     bool
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&f.API, "api", "", "Feed endpoint URL")
	flag.StringVar(&f.API, "a", "", "Feed endpoint URL (shorthand)")
	flag.StringVar(&f.Storage, "storage", "", "Cache directory for the file backend")
	flag.StringVar(&f.Storage, "s", "", "Cache directory (shorthand)")
	flag.IntVar(&f.Port, "port", 0, "HTTP metrics port")
	flag.IntVar(&f.Port, "p", 0, "HTTP metrics port (shorthand)")
	flag.StringVar(&f.Modules, "modules", "", `"all" or comma separated module ids`)
	flag.StringVar(&f.Modules, "m", "", "Module selector (shorthand)")
	flag.BoolVar(&f.DryRun, "dryrun", false, "Run one cycle, print the snapshot and exit")
	flag.BoolVar(&f.DryRun, "d", false, "Dry run (shorthand)")

	flag.Parse()

	return f
}

// loadConfig loads the config file, applies flag overrides and validates
// the result. A missing default config file is not an error.
func loadConfig(f *Flags) (*config.Config, error) {
	path := f.ConfigPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !flagSet("config") {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if f.API != "" {
		cfg.Feed.URL = f.API
	}
	if f.Storage != "" {
		cfg.Cache.Dir = f.Storage
	}
	if f.Port != 0 {
		cfg.Server.Port = f.Port
	}
	if f.Modules != "" {
		cfg.Feed.Modules = f.Modules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// createStore builds the configured cache backend and its cleanup func.
func createStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := database.NewPostgresStore(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendS3:
		store, err := cache.NewS3StoreFromEnv(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return cache.NewFileStore(cfg.Dir), func() {}, nil
	}
}

func runDry(ctx context.Context, pipeline *scheduler.Pipeline, out io.Writer) error {
	snap, err := pipeline.RunCycle(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(snap)
}

// Handle graceful shutdown
func shutdown(sched *scheduler.Scheduler, httpSrv *http.Server, grpcSrv *grpc.Server, logger *logrus.Logger) {
	logger.Println("Stopping scheduler...")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown")
	}

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	logger.Println("Exporter stopped")
}
