package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-payroll/internal/batch"
	"go-payroll/internal/events"
	"go-payroll/internal/payroll"
	"go-payroll/internal/shared/contextutil"
)

// PayrollBatchRequested processes batch.requested events. Events naming a
// payroll run go through the run so its status and totals follow; the rest
// run as ad-hoc batches.
func PayrollBatchRequested(batches batch.Service, runs payroll.Service, logger *zap.Logger) HandlerFunc {
	log := logger.Named("kafka.consumer.payroll_batch")
	return func(ctx context.Context, msg kafkago.Message) error {
		log := contextutil.GetLogger(ctx, log)
		var event events.PayrollBatchRequestedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("%w: %v", errUndecodable, err)
		}
		inputs := map[string]batch.EmployeeInput{}
		if len(event.Inputs) > 0 {
			if err := json.Unmarshal(event.Inputs, &inputs); err != nil {
				return fmt.Errorf("%w: inputs: %v", errUndecodable, err)
			}
		}

		if event.PayrollRunID != "" {
			resp, err := runs.Process(ctx, event.CompanyID, event.RequestedBy, event.PayrollRunID, payroll.ProcessRequest{
				EmployeeIDs: event.EmployeeIDs,
				Inputs:      inputs,
			})
			if err != nil {
				return err
			}
			log.Info("payroll run processed from event",
				zap.String("company_id", event.CompanyID),
				zap.String("payroll_run_id", event.PayrollRunID),
				zap.String("batch_id", resp.Batch.BatchID),
				zap.String("run_status", resp.Run.Status),
			)
			return nil
		}

		result, err := batches.Process(ctx, event.CompanyID, event.RequestedBy, batch.Request{
			EmployeeIDs: event.EmployeeIDs,
			PeriodStart: event.PeriodStart,
			PeriodEnd:   event.PeriodEnd,
			PayDate:     event.PayDate,
			Inputs:      inputs,
		})
		if err != nil {
			return err
		}
		log.Info("payroll batch processed from event",
			zap.String("company_id", event.CompanyID),
			zap.String("batch_id", result.BatchID),
			zap.String("status", result.Status),
			zap.Int("success", result.SuccessCount),
			zap.Int("failed", result.FailureCount),
		)
		return nil
	}
}
