package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka/consumer"
)

// RunConsumer processes batch requests published by upstream schedulers.
func RunConsumer() error {
	logger := zap.L().Named("app.consumer")

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in, err := connectInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close()

	modules, err := registerModules(cfg, in.db, in.gormDB, in.rdb, in.store, zap.L())
	if err != nil {
		return err
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          events.PayrollBatchRequestedTopic,
		GroupID:        cfg.Kafka.GroupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Consume(
			ctx,
			reader,
			"payroll_batch",
			consumer.PayrollBatchRequested(modules.Batches, modules.Runs, zap.L()),
			zap.L(),
		)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()
	<-done

	return nil
}
