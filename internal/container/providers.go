package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/dispatcher"
	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/application/service"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
	"github.com/garyjia/rental-billing/internal/infrastructure/document"
	"github.com/garyjia/rental-billing/internal/infrastructure/export"
	infraLark "github.com/garyjia/rental-billing/internal/infrastructure/external/lark"
	"github.com/garyjia/rental-billing/internal/infrastructure/external/openai"
	"github.com/garyjia/rental-billing/internal/infrastructure/metrics"
	"github.com/garyjia/rental-billing/internal/infrastructure/persistence/repository"
	"github.com/garyjia/rental-billing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/rental-billing/internal/infrastructure/storage"
	"github.com/garyjia/rental-billing/internal/infrastructure/worker"
	"github.com/garyjia/rental-billing/migrations"
	"github.com/garyjia/rental-billing/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// StorageBundle holds evidence storage components.
type StorageBundle struct {
	FileStorage port.FileStorage
	Inspector   port.DocumentInspector
}

// ProvideDatabase opens the SQLite database, applies the embedded
// migrations and wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Bills:   repository.NewBillRepository(sqlDB, logger),
		Claims:  repository.NewClaimRepository(sqlDB, logger),
		Reviews: repository.NewEvidenceReviewRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates evidence storage and the PDF inspector.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &StorageBundle{
		FileStorage: storage.NewLocalFileStorage(cfg.EvidenceDir, cfg.URLPrefix, logger),
		Inspector:   document.NewPDFInspector(cfg.RenderQuality, logger),
	}, nil
}

// ProvideNotifier returns the Lark messenger when Lark is enabled and a
// logging notifier otherwise.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		logger.Info("Lark disabled, notifications are only logged")
		return infraLark.NewLogNotifier(logger), nil
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)

	parties := make(map[entity.Party]string, len(cfg.PartyReceivers))
	for party, openID := range cfg.PartyReceivers {
		p := entity.Party(party)
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown lark receiver party %q", party)
		}
		parties[p] = openID
	}

	return infraLark.NewMessenger(client, infraLark.Recipients{
		Parties: parties,
		Users:   cfg.UserReceivers,
	}, logger), nil
}

// ProvideReceiptReader creates the advisory receipt reader.
// Returns nil when OpenAI is disabled.
func ProvideReceiptReader(cfg *OpenAIConfig, currency string, logger *zap.Logger) (port.ReceiptReader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("openai config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		return nil, nil
	}

	prompts := openai.DefaultPrompts()
	if cfg.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		prompts = loaded
	}

	return openai.NewReceiptReader(openai.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Currency: currency,
		Prompts:  prompts,
		Timeout:  cfg.Timeout,
	}, logger), nil
}

// ProvideMetrics creates the prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.NewRecorder()
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create dispatcher logger adapter
	dispatcherLogger := &dispatcherLoggerAdapter{logger: logger}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(dispatcherLogger),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Storage    *StorageBundle
	Notifier   port.Notifier
	Reader     port.ReceiptReader
	Metrics    port.MetricsRecorder
	Billing    *BillingConfig
	Evidence   *StorageConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage bundle is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Billing == nil || deps.Evidence == nil {
		return nil, fmt.Errorf("billing and storage config are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	billing := service.NewBillingService(
		deps.Repos.Bills,
		deps.Repos.Claims,
		deps.TxManager,
		deps.Dispatcher,
		deps.Metrics,
		service.BillingOptions{DefaultDueDays: deps.Billing.DefaultDueDays},
		serviceLogger,
	)
	evidence := service.NewEvidenceService(
		deps.Repos.Bills,
		deps.Storage.FileStorage,
		deps.Storage.Inspector,
		deps.Dispatcher,
		deps.Metrics,
		deps.Evidence.MaxEvidenceBytes,
		serviceLogger,
	)

	return &ServiceBundle{
		Billing: billing,
		Ledger: service.NewLedgerService(
			deps.Repos.Bills,
			deps.Repos.Claims,
			deps.TxManager,
			deps.Dispatcher,
			deps.Metrics,
			serviceLogger,
		),
		Evidence: evidence,
		Statement: service.NewStatementService(
			billing,
			export.NewXLSXStatementWriter(deps.Billing.Currency, deps.Logger),
			serviceLogger,
		),
		Review: service.NewReviewService(
			deps.Repos.Bills,
			deps.Repos.Claims,
			deps.Repos.Reviews,
			evidence,
			deps.Storage.Inspector,
			deps.Reader,
			serviceLogger,
		),
		Notification: service.NewNotificationService(
			deps.Notifier,
			deps.Billing.Currency,
			serviceLogger,
		),
	}, nil
}

// RegisterEventHandlers subscribes the services to the dispatcher.
// Receipt review only runs when a reader is configured.
func RegisterEventHandlers(d dispatcher.Dispatcher, services *ServiceBundle, reviewEnabled bool, logger *zap.Logger) error {
	if d == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if services == nil {
		return fmt.Errorf("services are required")
	}
	if logger == nil {
		return fmt.Errorf("logger is required")
	}

	service.RegisterNotificationHandlers(d, services.Notification)

	if reviewEnabled {
		d.SubscribeNamed(event.TypeClaimSubmitted, "review.claim_submitted", services.Review.HandleClaimSubmitted)
	}

	d.SubscribeAll("audit.log", func(ctx context.Context, evt *event.Event) error {
		logger.Info("Event dispatched",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("bill_id", evt.BillID))
		return nil
	})

	return nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Bills     worker.OverdueMarker
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns *worker.WorkerManager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Bills == nil {
		return nil, fmt.Errorf("billing service is required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	manager.Register(worker.NewOverdueWorker(worker.OverdueWorkerConfig{
		Interval:   deps.WorkerCfg.OverdueInterval,
		BatchSize:  deps.WorkerCfg.OverdueBatchSize,
		MaxBatches: deps.WorkerCfg.OverdueMaxBatches,
	}, deps.Bills, deps.Logger))

	return manager, nil
}
