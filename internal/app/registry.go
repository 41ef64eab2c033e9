package app

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-payroll/internal/bankfile"
	"go-payroll/internal/batch"
	"go-payroll/internal/directory"
	"go-payroll/internal/ledger"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payroll"
	"go-payroll/internal/payslip"
	"go-payroll/internal/shared/counter"
	"go-payroll/internal/shared/storage"
	"go-payroll/internal/tax"
)

// Modules holds the wired services shared by the API, consumer and worker.
type Modules struct {
	Outbox    kafka.OutboxRepository
	Payslips  payslip.Service
	Batches   batch.Service
	BankFiles bankfile.Service
	Ledger    ledger.Service
	Runs      payroll.Service
}

func registerModules(
	cfg Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	store storage.Storage,
	logger *zap.Logger,
) (*Modules, error) {
	// --- Repositories ---
	directoryRepo := directory.NewRepository(gormDB)
	payslipRepo := payslip.NewRepository(gormDB)
	batchRepo := batch.NewRepository(gormDB)
	bankFileRepo := bankfile.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	payrollRepo := payroll.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Calculation core ---
	signer, err := payslip.NewSigner([]byte(cfg.SigningKey))
	if err != nil {
		return nil, err
	}
	dispatcher := tax.NewDefaultDispatcher(cfg.GenericRates)
	pipeline := payslip.NewPipeline(dispatcher, signer)

	// --- Services ---
	payslipService := payslip.NewService(db, payslipRepo, directoryRepo, pipeline, outboxRepo, logger)
	batchService := batch.NewService(
		db, batchRepo, payslipRepo, directoryRepo, pipeline, outboxRepo,
		batch.NewRedisLocker(rdb), cfg.Batch, logger,
	)
	bankFileService := bankfile.NewService(db, bankFileRepo, payslipRepo, directoryRepo, counterRepo, store, outboxRepo, time.Now, logger)
	ledgerService := ledger.NewService(db, ledgerRepo, payslipRepo, counterRepo, store, time.Now, logger)
	payrollService := payroll.NewService(
		db, payrollRepo, payslipRepo, payslipService,
		batchService, bankFileService, ledgerService, time.Now, logger,
	)

	return &Modules{
		Outbox:    outboxRepo,
		Payslips:  payslipService,
		Batches:   batchService,
		BankFiles: bankFileService,
		Ledger:    ledgerService,
		Runs:      payrollService,
	}, nil
}

func registerRoutes(router *gin.Engine, m *Modules, rdb *redis.Client) {
	// --- Handlers ---
	payslipHandler := payslip.NewHandler(m.Payslips)
	batchHandler := batch.NewHandlerWithRedis(m.Batches, rdb)
	payrollHandler := payroll.NewHandlerWithRedis(m.Runs, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		payslip.RegisterRoutes(api, payslipHandler)
		batch.RegisterRoutes(api, batchHandler, rdb)
		payroll.RegisterRoutes(api, payrollHandler, rdb)
	}
}
