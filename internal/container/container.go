// Package container provides dependency injection and lifecycle management
// for the personal ledger service.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/personal-ledger/internal/application/dispatcher"
	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/application/service"
	"github.com/garyjia/personal-ledger/internal/config"
	"github.com/garyjia/personal-ledger/internal/infrastructure/messaging"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/personal-ledger/internal/infrastructure/report"
	"github.com/garyjia/personal-ledger/internal/infrastructure/worker"
	httpapi "github.com/garyjia/personal-ledger/internal/interfaces/http"
	"github.com/garyjia/personal-ledger/pkg/database"
	"github.com/garyjia/personal-ledger/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger
	kv     *utils.KVLogger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	approvers port.ApproverDirectory
	notifier  port.Notifier
	publisher *messaging.KafkaPublisher

	// Application
	dispatcher dispatcher.Dispatcher
	recorder   *service.AsyncAuditRecorder
	services   *ServiceBundle

	// Workers
	workers *worker.Manager

	// Interface
	server *httpapi.Server

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
		kv:     utils.NewKVLogger(logger),
	}, nil
}

// Start initializes all components:
// 1. Database and repositories
// 2. External adapters (approver directory, notifier, kafka)
// 3. Event dispatcher, audit recorder and subscribers
// 4. Application services
// 5. Workers
// 6. HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	c.initExternal()
	c.logger.Info("External adapters initialized")

	c.initDispatcher()
	c.logger.Info("Dispatcher initialized")

	if err := c.initServices(); err != nil {
		c.db.Close()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(ctx); err != nil {
		c.db.Close()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers started")

	c.initServer()

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
// Pending event handlers finish before the audit writer is flushed.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.workers != nil {
		c.workers.StopAll()
		c.logger.Info("Workers stopped")
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.db.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initExternal() {
	c.approvers = ProvideApprovers(&c.config.Approval, c.logger)
	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)
	c.publisher = ProvideKafkaPublisher(&c.config.Kafka, c.logger)
}

func (c *Container) initDispatcher() {
	c.dispatcher = ProvideDispatcher(c.kv)
	c.recorder = service.NewAsyncAuditRecorder(c.repositories.Audit, c.config.Audit.BufferSize, c.kv)
	service.RegisterAuditHandlers(c.dispatcher, c.recorder)

	if c.publisher != nil {
		c.publisher.Subscribe(c.dispatcher)
	}
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Approvers:  c.approvers,
		Notifier:   c.notifier,
		Audit:      c.recorder,
		Dispatcher: c.dispatcher,
		Config:     c.config,
		Logger:     c.kv,
	})
	if err != nil {
		return err
	}
	c.services = services

	service.RegisterNotificationHandlers(c.dispatcher, services.Notification)
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	c.workers = worker.NewManager(c.logger)
	c.workers.Register(c.recorder)
	if c.publisher != nil {
		c.workers.Register(c.publisher)
	}
	return c.workers.StartAll(ctx)
}

func (c *Container) initServer() {
	c.server = httpapi.NewServer(
		httpapi.ServerConfig{
			Host:            c.config.Server.Host,
			Port:            c.config.Server.Port,
			ReadTimeout:     c.config.Server.ReadTimeout,
			WriteTimeout:    c.config.Server.WriteTimeout,
			ShutdownTimeout: c.config.Server.ShutdownTimeout,
		},
		httpapi.Services{
			Consensus:   c.services.Consensus,
			Ledger:      c.services.Ledger,
			Aggregation: c.services.Aggregation,
		},
		c.approvers,
		report.NewXLSXExporter(c.config.Report.Currency, c.logger),
		c.kv,
	)
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}
