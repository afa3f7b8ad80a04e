package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"dispatch-service/internal/api"
	"dispatch-service/internal/config"
	"dispatch-service/internal/db"
	"dispatch-service/internal/directory"
	"dispatch-service/internal/kafka"
	"dispatch-service/internal/logging"
	"dispatch-service/internal/metrics"
	"dispatch-service/internal/providers"
	"dispatch-service/internal/registry"
	"dispatch-service/internal/services"
	"dispatch-service/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dispatch server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// store is what the server needs from a directory backend.
type store interface {
	directory.Directory
	api.ResponseLister
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	backend, closeBackend, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("Failed to open directory: %v", err)
		return err
	}
	defer closeBackend()
	dir := directory.NewCached(backend, cfg.Directory.CacheTTL)

	push, err := newPushGateway(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("Failed to init push providers: %v", err)
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize dispatch service
	svc := services.New(registry.New(cfg.Dispatch.RegistryShards), dir, push, logger, m, cfg)
	hub := websocket.NewHub(svc, logger, websocket.Config{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	})
	svc.SetTransport(hub)

	var wg sync.WaitGroup
	svc.Start(&wg)

	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(strings.Split(cfg.Kafka.Broker, ","), cfg.Kafka.Topic, cfg.Kafka.GroupID, svc, logger)
		consumer.Start(ctx, &wg)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	// Start API server
	handler := api.NewHandler(svc.Registry(), backend, logger)
	srv := &http.Server{
		Addr:    cfg.API.Port,
		Handler: api.NewRouter(logger, handler, hub, reg),
	}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown failed: %v", err)
	}
	hub.Close()
	svc.Stop()
	wg.Wait()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Kafka consumer close failed: %v", err)
		}
	}
	logger.Infof("Service stopped")
	return nil
}

func openDirectory(ctx context.Context, cfg config.Config, logger *logging.Logger) (store, func(), error) {
	switch cfg.Directory.Driver {
	case config.DriverMemory:
		logger.Warnf("Using in-memory directory; parties and history are lost on restart")
		return directory.NewMemory(), func() {}, nil
	default:
		conn, err := db.New(ctx, cfg.DB.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return conn, conn.Close, nil
	}
}

func newPushGateway(ctx context.Context, cfg config.Config, logger *logging.Logger) (*providers.Router, error) {
	router := providers.NewRouter()
	if cfg.Push.FirebaseCredentials != "" {
		fcm, err := providers.NewFCM(ctx, cfg.Push.FirebaseCredentials, cfg.Push.AndroidChannelID)
		if err != nil {
			return nil, err
		}
		router.SetDefault(fcm)
		logger.Infof("FCM push provider enabled")
	} else {
		logger.Warnf("FIREBASE_CREDENTIALS_FILE not set; device push disabled")
	}
	if cfg.Push.TelegramBotToken != "" {
		tg, err := providers.NewTelegram(cfg.Push.TelegramBotToken, cfg.Push.TelegramRateLimit)
		if err != nil {
			return nil, err
		}
		router.Register(providers.TelegramScheme, tg)
		logger.Infof("Telegram push provider enabled")
	}
	return router, nil
}
