package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	grpcapi "bikeshare-backend/internal/api/grpc"
	"bikeshare-backend/internal/api/grpc/interceptor"
	httpapi "bikeshare-backend/internal/api/http"
	"bikeshare-backend/internal/app"
	"bikeshare-backend/internal/config"
	"bikeshare-backend/internal/jobs"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/scheduler"
	"bikeshare-backend/internal/security"
	"bikeshare-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("with-scheduler", false, "Run the cron jobs inside the server process")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Bikeshare Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.HTTPAddress(), "grpc", cfg.GRPCAddress(), "metrics", cfg.MetricsAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := app.OpenStorage(ctx, cfg, true)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()
	store := storage.Store

	// Initialize ports
	converter := app.NewConverter(cfg)
	gateway := app.NewGateway(cfg)
	policy, err := service.LookupEligibilityPolicy(cfg.Sale.EligibilityPolicy)
	if err != nil {
		log.Fatalf("Invalid sale configuration: %v", err)
	}

	// Initialize Services
	rentalSvc := service.NewRentalService(store, converter, gateway, cfg.Rental.HandoffDays)
	saleSvc := service.NewSaleService(store, converter, gateway, policy)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           httpapi.NewRouter(rentalSvc, saleSvc, tokenManager, store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewAuthInterceptor(tokenManager).Unary()),
	)
	healthChecker := grpcapi.NewHealthChecker(store, 10*time.Second)
	healthpb.RegisterHealthServer(grpcServer, healthChecker.Server())
	grpcapi.NewCustomerHandler(rentalSvc).Register(grpcServer)
	// Register reflection service for grpcurl
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Metrics server listening", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC server listening", "address", cfg.GRPCAddress())
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		return healthChecker.Run(gctx)
	})

	if *withScheduler {
		dispatcher, closeChannels, err := app.NewDispatcher(gctx, cfg, store)
		if err != nil {
			log.Fatalf("Failed to initialize notification channels: %v", err)
		}
		defer closeChannels()

		var d jobs.NotificationDispatcher
		if dispatcher != nil {
			d = dispatcher
		}
		cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(d, converter, cfg))
		if err != nil {
			log.Fatalf("Failed to register cron jobs: %v", err)
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		httpErr := httpServer.Shutdown(shutdownCtx)
		metricsErr := metricsServer.Shutdown(shutdownCtx)
		return errors.Join(httpErr, metricsErr)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}
