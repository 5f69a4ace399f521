package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kafka-relay/src/broker"
	"kafka-relay/src/codec"
	"kafka-relay/src/config"
	"kafka-relay/src/consume"
	"kafka-relay/src/logger"
	"kafka-relay/src/process"
	"kafka-relay/src/store"
)

const shutdownTimeout = 5 * time.Second

// newClient connects to Kafka with the configured driver.
func newClient(cfg *config.Config) (broker.Client, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS environment variable is required (example: localhost:9092)")
	}

	if cfg.BrokerDriver == config.DriverKafkaGo {
		brk, err := broker.NewKafkaGoBroker(cfg.KafkaBrokers, cfg.PollTimeout, cfg.PublishTimeout)
		if err != nil {
			return nil, err
		}
		return brk, nil
	}

	brk, err := broker.NewRedpandaBroker(cfg.KafkaBrokers, cfg.PollTimeout, cfg.PublishTimeout)
	if err != nil {
		return nil, err
	}
	return brk, nil
}

// newStore opens the Postgres outcome store when POSTGRES_DSN is set and
// returns nil otherwise.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.PostgresDSN == "" {
		return nil, nil
	}
	st, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open outcome store: %w", err)
	}
	return st, nil
}

func newProcessor(log logger.Logger, st store.Store) *process.Processor {
	return process.NewProcessor(codec.JSON{}, log, st)
}

func consumerOptions(cfg *config.Config, topic string) consume.Options {
	return consume.Options{
		Topic:           topic,
		GroupID:         cfg.ConsumerGroup,
		MaxBatchSize:    cfg.MaxBatchSize,
		RetryBackoffMin: cfg.RetryBackoffMin,
		RetryBackoffMax: cfg.RetryBackoffMax,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(log logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			log.Info("Shutdown signal received, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("[Gateway] Listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	log.Info("[Gateway] Stopped")
	return nil
}

func closeStore(st store.Store, log logger.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		log.Error("Failed to close outcome store: %v", err)
	}
}
