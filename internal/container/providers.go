package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/application/dispatcher"
	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/application/service"
	"github.com/medialert/reportflow/internal/application/workflow"
	"github.com/medialert/reportflow/internal/domain/assignment"
	"github.com/medialert/reportflow/internal/domain/event"
	"github.com/medialert/reportflow/internal/infrastructure/persistence/repository"
	"github.com/medialert/reportflow/internal/infrastructure/persistence/sqlite"
	"github.com/medialert/reportflow/internal/infrastructure/worker"
	httpapi "github.com/medialert/reportflow/internal/interfaces/http"
	"github.com/medialert/reportflow/migrations"
	"github.com/medialert/reportflow/pkg/database"
	"github.com/medialert/reportflow/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Report  port.ReportRepository
	History port.HistoryRepository
	User    port.UserRepository
	Alert   port.AlertRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Report       service.ReportService
	Notification service.NotificationService
	User         service.UserService
}

// ProvideDatabase opens the database and, when enabled, applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Path != database.MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if _, err := RunMigrations(conn, logger); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// RunMigrations applies the embedded schema migrations and returns how many ran.
func RunMigrations(conn *database.DB, logger *zap.Logger) (int, error) {
	applied, err := database.NewMigrator(conn, logger).Run(migrations.FS)
	if err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	return applied, nil
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
		Report:  repository.NewReportRepository(sqlDB, logger),
		History: repository.NewHistoryRepository(sqlDB, logger),
		User:    repository.NewUserRepository(sqlDB, logger),
		Alert:   repository.NewAlertRepository(sqlDB, logger),
	}, nil
}

// ProvideDispatcher creates the in-process event dispatcher.
func ProvideDispatcher(cfg *EventsConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(utils.NewKeyValueLogger(logger.Named("dispatcher"))),
	}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}

	return dispatcher.NewDispatcher(opts...), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the alert handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("repositories, transaction manager and dispatcher are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := utils.NewKeyValueLogger(deps.Logger.Named("service"))

	notifications := service.NewNotificationService(
		deps.Repos.Alert,
		deps.Repos.User,
		deps.Dispatcher,
		serviceLogger,
	)
	notifications.RegisterHandlers()

	scope := assignmentScope(deps.Config)
	reports := service.NewReportService(
		deps.Repos.Report,
		deps.Repos.History,
		deps.Repos.User,
		deps.TxManager,
		workflow.NewEngine(),
		serviceLogger,
		service.WithAssignmentScope(scope),
		service.WithNotifier(notifications),
	)

	return &ServiceBundle{
		Report:       reports,
		Notification: notifications,
		User:         service.NewUserService(deps.Repos.User, serviceLogger),
	}, nil
}

// ProvideHTTPServer creates the API server over the given services.
func ProvideHTTPServer(cfg *Config, services *ServiceBundle, sqlDB *sql.DB, disp dispatcher.Dispatcher, logger *zap.Logger) (*httpapi.Server, error) {
	if cfg == nil || services == nil {
		return nil, fmt.Errorf("config and services are required")
	}

	serverCfg := httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Mode:            cfg.Server.Mode,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	var opts []httpapi.Option
	if sqlDB != nil {
		opts = append(opts, httpapi.WithHealthCheck("database", sqlDB.PingContext))
	}
	if disp != nil {
		opts = append(opts, httpapi.WithHealthCheck("dispatcher", func(ctx context.Context) error {
			if _, missing := handlerCoverage(disp); len(missing) > 0 {
				return fmt.Errorf("no handlers for %s", strings.Join(missing, ", "))
			}
			return nil
		}))
	}

	return httpapi.NewServer(
		serverCfg,
		httpapi.Services{
			Reports:       services.Report,
			Notifications: services.Notification,
			Users:         services.User,
		},
		httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		utils.NewKeyValueLogger(logger.Named("http")),
		opts...,
	), nil
}

// ProvideWorkers registers the background workers. They are started by Container.Serve.
func ProvideWorkers(cfg *WorkerConfig, services *ServiceBundle, logger *zap.Logger) (*worker.Manager, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	manager := worker.NewManager(logger.Named("worker"))
	if cfg != nil && cfg.AssignmentSweepInterval > 0 {
		manager.Register(worker.NewAssignmentSweeper(
			services.Report,
			logger.Named("assignment-sweeper"),
			worker.WithSweepInterval(cfg.AssignmentSweepInterval),
			worker.WithSweepBatchSize(cfg.AssignmentSweepBatch),
		))
	}
	return manager, nil
}

func assignmentScope(cfg *Config) assignment.Scope {
	if cfg == nil || cfg.Assignment == "" {
		return assignment.ScopeGlobal
	}
	return cfg.Assignment
}

// handlerCoverage returns the registered handler names and the event types nobody listens to.
func handlerCoverage(disp dispatcher.Dispatcher) (registered, missing []string) {
	for _, t := range event.AllTypes() {
		handlers := disp.ListHandlers(t)
		if len(handlers) == 0 {
			missing = append(missing, t.String())
			continue
		}
		for _, h := range handlers {
			registered = append(registered, h.Name)
		}
	}
	return registered, missing
}
