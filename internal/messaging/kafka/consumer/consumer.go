package consumer

import (
	"context"
	"errors"
	"net/http"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
)

// MessageReader is the part of *kafkago.Reader a consumer loop uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type HandlerFunc func(ctx context.Context, msg kafkago.Message) error

// errUndecodable marks payloads that will never parse.
var errUndecodable = errors.New("undecodable message")

const retryDelay = time.Second

// Consume feeds messages to handle until ctx ends. Messages are committed
// after success or a permanent failure; anything else stays uncommitted so
// the group redelivers it.
func Consume(ctx context.Context, reader MessageReader, name string, handle HandlerFunc, logger *zap.Logger) {
	log := logger.Named("kafka.consumer." + name)
	log.Info("consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer stopped")
				return
			}
			log.Error("fetch message failed", zap.Error(err))
			continue
		}

		rid := requestID(msg)
		mlog := log.With(zap.String("request_id", rid), zap.Int64("offset", msg.Offset))
		mctx := contextutil.WithLogger(contextutil.WithRequestID(ctx, rid), mlog)
		err = handle(mctx, msg)
		switch {
		case err == nil:
		case isPermanent(err):
			mlog.Warn("message rejected, skipping", zap.Error(err))
		default:
			mlog.Error("handle message failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message failed", zap.Error(err))
		}
	}
}

func isPermanent(err error) bool {
	if errors.Is(err, errUndecodable) {
		return true
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus < http.StatusInternalServerError
	}
	return false
}

func requestID(msg kafkago.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "request_id" {
			return string(h.Value)
		}
	}
	return ""
}
