package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/personal-ledger/internal/application/dispatcher"
	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/application/service"
	"github.com/garyjia/personal-ledger/internal/config"
	"github.com/garyjia/personal-ledger/internal/infrastructure/directory"
	infraLark "github.com/garyjia/personal-ledger/internal/infrastructure/external/lark"
	"github.com/garyjia/personal-ledger/internal/infrastructure/messaging"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/repository"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/personal-ledger/migrations"
	"github.com/garyjia/personal-ledger/pkg/database"
	"github.com/garyjia/personal-ledger/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Request    port.RequestRepository
	Decision   port.DecisionRepository
	Ledger     port.LedgerRepository
	Income     port.IncomeRepository
	Audit      port.AuditRepository
	Categories *repository.CategoryRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Consensus    service.ConsensusService
	Ledger       service.LedgerService
	Aggregation  service.AggregationService
	Notification service.NotificationService
}

// ServiceDeps holds the dependencies of the application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Approvers  port.ApproverDirectory
	Notifier   port.Notifier
	Audit      service.AuditRecorder
	Dispatcher dispatcher.Dispatcher
	Config     *config.Config
	Logger     *utils.KVLogger
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
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
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Request:    repository.NewRequestRepository(db.DB, logger),
		Decision:   repository.NewDecisionRepository(db.DB, logger),
		Ledger:     repository.NewLedgerRepository(db.DB, logger),
		Income:     repository.NewIncomeRepository(db.DB, logger),
		Audit:      repository.NewAuditRepository(db.DB, logger),
		Categories: repository.NewCategoryRepository(db.DB, logger),
	}, nil
}

// ProvideNotifier returns the Lark messenger, or a log-only notifier when
// Lark delivery is disabled.
func ProvideNotifier(cfg *config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled {
		logger.Info("Lark delivery disabled, notifications are logged only")
		return infraLark.NewLogNotifier(logger)
	}

	sdk := infraLark.NewSDKClient(infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
	}, logger)
	return infraLark.NewMessenger(sdk, logger)
}

// ProvideApprovers builds the approver directory from the configured admins.
func ProvideApprovers(cfg *config.ApprovalConfig, logger *zap.Logger) port.ApproverDirectory {
	return directory.NewStaticDirectory(cfg.Admins, logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *utils.KVLogger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(logger))
}

// ProvideKafkaPublisher returns nil when publishing is disabled.
func ProvideKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) *messaging.KafkaPublisher {
	if !cfg.Enabled {
		return nil
	}
	writer := messaging.NewKafkaWriter(messaging.KafkaConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})
	return messaging.NewKafkaPublisher(writer, logger)
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	materializer := service.NewMaterializer(deps.Repos.Ledger, deps.Logger)

	consensus := service.NewConsensusService(
		deps.Repos.Request,
		deps.Repos.Decision,
		deps.TxManager,
		materializer,
		deps.Approvers,
		deps.Repos.Categories,
		deps.Dispatcher,
		service.ConsensusConfig{RequiredApprovers: deps.Config.Approval.RequiredApprovers},
		deps.Logger,
	)

	return &ServiceBundle{
		Consensus: consensus,
		Ledger: service.NewLedgerService(
			deps.Repos.Ledger,
			deps.Repos.Income,
			deps.Repos.Categories,
			deps.Audit,
			deps.Config.Report.Currency,
			deps.Logger,
		),
		Aggregation: service.NewAggregationService(
			deps.Repos.Income,
			deps.Repos.Ledger,
			deps.Repos.Request,
			deps.Logger,
		),
		Notification: service.NewNotificationService(
			deps.Notifier,
			deps.Approvers,
			deps.Audit,
			deps.Config.Approval.LinkBase,
			deps.Logger,
		),
	}, nil
}
