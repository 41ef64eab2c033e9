package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"go-payroll/internal/batch"
	"go-payroll/internal/messaging/kafka/producer"
	"go-payroll/internal/shared/connection"
)

// RunWorker relays the outbox to Kafka and expires batch rollback windows.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

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

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Brokers[0], cfg.MaxRetries)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		producer.ProcessOutboxEvents(ctx, modules.Outbox, kafkaWriter, logger, cfg.OutboxPoll)
	}()
	go func() {
		defer wg.Done()
		sweepExpiredBatches(ctx, modules.Batches, cfg.ExpirySweep, logger)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()
	wg.Wait()

	return nil
}

func sweepExpiredBatches(ctx context.Context, batches batch.Service, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := batches.ExpireRecords(ctx)
			if err != nil {
				logger.Error("expire batch records failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("batch rollback windows expired", zap.Int64("count", n))
			}
		}
	}
}
