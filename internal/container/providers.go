package container

import (
	"database/sql"
	"fmt"

	"github.com/founderstab/founders-tab/internal/application/dispatcher"
	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/application/service"
	"github.com/founderstab/founders-tab/internal/infrastructure/external/mail"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/repository"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/sqlite"
	"github.com/founderstab/founders-tab/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, runs the embedded migrations and
// applies the member seed.
func ProvideDatabase(cfg *database.Config, seed []database.MemberRow, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(*cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).Run(database.Migrations()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := conn.SeedMembers(seed); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to seed members: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		SqlDB:          conn.DB,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
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
		Expense:      repository.NewExpenseRepository(sqlDB, logger),
		Approval:     repository.NewApprovalRepository(sqlDB, logger),
		Member:       repository.NewMemberRepository(sqlDB, logger),
		Settings:     repository.NewCompanySettingsRepository(sqlDB, logger),
		Nudge:        repository.NewNudgeRepository(sqlDB, logger),
		History:      repository.NewHistoryRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideMailer returns an SMTP mailer, or a logging mailer when e-mail is off.
func ProvideMailer(cfg *EmailConfig, logger *zap.Logger) (port.Mailer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("email config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		logger.Info("Email delivery disabled, messages will only be logged")
		return mail.NewLogMailer(logger), nil
	}

	return mail.NewMailer(mail.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	}, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *EventsConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("events config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
		dispatcher.WithHandlerTimeout(cfg.HandlerTimeout),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Mailer     port.Mailer
	Metrics    port.Metrics
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification service to the dispatcher.
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
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	notifications := service.NewNotificationService(
		repos.Expense,
		repos.Member,
		repos.Notification,
		deps.Mailer,
		deps.Metrics,
		serviceLogger,
	)
	if deps.Dispatcher != nil {
		notifications.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Expense: service.NewExpenseService(
			repos.Expense,
			repos.Approval,
			repos.Member,
			repos.History,
			deps.TxManager,
			deps.Dispatcher,
			deps.Metrics,
			serviceLogger,
		),
		Workflow: service.NewWorkflowService(
			repos.Expense,
			repos.Approval,
			repos.Member,
			repos.History,
			deps.TxManager,
			deps.Dispatcher,
			deps.Metrics,
			serviceLogger,
		),
		Notification: notifications,
		Nudge: service.NewNudgeService(service.NudgeDeps{
			Expenses:      repos.Expense,
			Approvals:     repos.Approval,
			Members:       repos.Member,
			Settings:      repos.Settings,
			Nudges:        repos.Nudge,
			History:       repos.History,
			Notifications: repos.Notification,
			Mailer:        deps.Mailer,
			Dispatcher:    deps.Dispatcher,
			Metrics:       deps.Metrics,
			Logger:        serviceLogger,
		}),
		Settings: service.NewSettingsService(repos.Settings, repos.Member, serviceLogger),
		Report:   service.NewReportService(repos.Expense, repos.Approval, repos.Member, serviceLogger),
	}, nil
}
