package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/api"
	"github.com/Aidin1998/pincex_gateway/internal/config"
	"github.com/Aidin1998/pincex_gateway/internal/gateway"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/bridge"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/events"
	"github.com/Aidin1998/pincex_gateway/internal/gateway/store"
	"github.com/Aidin1998/pincex_gateway/pkg/logger"
)

func main() {
	configPath := pflag.String("config", "", "path to the gateway configuration file")
	pflag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	bootLogger, err := logger.NewLogger(os.Getenv("GATEWAY_LOG_LEVEL"), "json")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	cfg, err := config.Load(*configPath, bootLogger)
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		bootLogger.Fatal("Failed to create logger", zap.Error(err))
	}
	defer zapLogger.Sync()

	var bus events.Bus
	switch cfg.EventBus.Kind {
	case config.EventBusKafka:
		bus = events.NewKafkaBus(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.WriteTimeout), zapLogger)
	default:
		bus = events.NewInMemoryBus(zapLogger)
	}

	producer := bridge.NewProducer(bridge.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.OutboundTopic, cfg.Kafka.WriteTimeout), zapLogger)
	gw := gateway.New(zapLogger, store.New(zapLogger), producer, bus, cfg.Fields)

	reader := bridge.NewReader(cfg.Kafka.Brokers, cfg.Kafka.InboundTopic, cfg.Kafka.GroupID, zapLogger)
	consumer := bridge.NewConsumer(reader, gw.Adapter(), zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			zapLogger.Error("Inbound consumer failed", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           api.NewServer(zapLogger, gw).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", cfg.Admin.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to stop API server", zap.Error(err))
	}

	<-consumerDone
	if err := consumer.Close(); err != nil {
		zapLogger.Error("Failed to close inbound reader", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		zapLogger.Error("Failed to close outbound writer", zap.Error(err))
	}
	if err := bus.Close(); err != nil {
		zapLogger.Error("Failed to close event bus", zap.Error(err))
	}

	zapLogger.Info("Gateway exited properly")
}
