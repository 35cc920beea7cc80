// Package container provides dependency injection and lifecycle management
// for the business trip workflow.
package container

import (
	"context"
	"fmt"

	"github.com/garyjia/business-trip/internal/application/dispatcher"
	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/application/service"
	"github.com/garyjia/business-trip/internal/application/workflow"
	"github.com/garyjia/business-trip/internal/config"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/event"
	"github.com/garyjia/business-trip/internal/infrastructure/export"
	infraLark "github.com/garyjia/business-trip/internal/infrastructure/external/lark"
	"github.com/garyjia/business-trip/internal/infrastructure/persistence/repository"
	"github.com/garyjia/business-trip/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/business-trip/internal/infrastructure/storage"
	"github.com/garyjia/business-trip/internal/submission"
	"github.com/garyjia/business-trip/migrations"
	"github.com/garyjia/business-trip/pkg/database"
	"github.com/garyjia/business-trip/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Trips       port.TripRepository
	TripData    port.TripDataRepository
	Persons     port.AccompanyingPersonRepository
	Forms       port.FormRepository
	History     port.HistoryRepository
	Messages    port.MessageRepository
	Users       *repository.UserRepository
	Projects    port.ProjectRepository
	Attachments port.AttachmentRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Notification service.NotificationService
	Trip         service.TripService
	Submission   service.SubmissionService
	Ledger       service.LedgerService
}

// ServiceDeps lists what the application services are built from.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     workflow.WorkflowEngine
	Dispatcher dispatcher.Dispatcher
	Storage    port.FileStorage
	Notifier   port.Notifier
	Workflow   config.WorkflowConfig
	Logger     *zap.Logger
}

// ProvideLogger builds the application logger from configuration.
func ProvideLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	return utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Level,
		OutputPath: cfg.OutputPath,
		Format:     cfg.Format,
	})
}

// ProvideDatabase opens the database, applies the embedded migrations and
// wraps the connection in a transaction manager.
func ProvideDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
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

	if err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	sqlDB := db.DB
	return &RepositoryBundle{
		Trips:       repository.NewTripRepository(sqlDB, logger),
		TripData:    repository.NewTripDataRepository(sqlDB, logger),
		Persons:     repository.NewAccompanyingPersonRepository(sqlDB, logger),
		Forms:       repository.NewFormRepository(sqlDB, logger),
		History:     repository.NewHistoryRepository(sqlDB, logger),
		Messages:    repository.NewMessageRepository(sqlDB, logger),
		Users:       repository.NewUserRepository(sqlDB, logger),
		Projects:    repository.NewProjectRepository(sqlDB, logger),
		Attachments: repository.NewAttachmentRepository(sqlDB, logger),
	}, nil
}

// SeedUsers writes the configured users into the identity store.
func SeedUsers(ctx context.Context, users *repository.UserRepository, seeds []config.UserConfig, logger *zap.Logger) error {
	for _, u := range seeds {
		user := &entity.User{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			LarkOpenID: u.LarkOpenID,
			ManagerID:  u.ManagerID,
			Groups:     u.Groups,
		}
		if err := users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %d: %w", u.ID, err)
		}
	}
	logger.Info("Users seeded", zap.Int("count", len(seeds)))
	return nil
}

// ProvideStorage creates the document storage.
func ProvideStorage(cfg config.StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("storage base directory is required")
	}
	return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil
}

// ProvideNotifier returns the Lark notifier when credentials are configured.
// Otherwise chatter is only written to the log.
func ProvideNotifier(cfg config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled() {
		logger.Warn("Lark credentials not configured, chatter will only be logged")
		return &logNotifier{logger: logger}
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}, logger)
	return infraLark.NewNotifier(infraLark.NewMessageAPI(client, logger), logger)
}

// ProvideDispatcher creates the event dispatcher and subscribes the audit log.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
	d.SubscribeAll("audit-log", auditLogHandler(logger))
	return d
}

// ProvideWorkflowEngine creates the trip workflow engine.
func ProvideWorkflowEngine(repos *RepositoryBundle, txManager port.TransactionManager, d dispatcher.Dispatcher, logger *zap.Logger) workflow.WorkflowEngine {
	return workflow.NewEngine(
		repos.Trips,
		repos.History,
		txManager,
		workflow.WithDispatcher(d),
		workflow.WithLogger(&zapLoggerAdapter{logger: logger}),
	)
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	repos := deps.Repos
	svcLogger := &zapLoggerAdapter{logger: deps.Logger}

	notifications := service.NewNotificationService(
		repos.Messages,
		repos.Users,
		deps.Notifier,
		deps.Workflow.ConfidentialDedupeWindow,
		svcLogger,
	)

	trips := service.NewTripService(
		service.TripRepositories{
			Trips:    repos.Trips,
			Data:     repos.TripData,
			Persons:  repos.Persons,
			Forms:    repos.Forms,
			History:  repos.History,
			Users:    repos.Users,
			Projects: repos.Projects,
		},
		deps.Engine,
		notifications,
		deps.Dispatcher,
		deps.TxManager,
		service.WorkflowSettings{
			AdminUserID:                  deps.Workflow.AdminUserID,
			UndoExpenseApprovalDaysLimit: deps.Workflow.UndoExpenseApprovalDaysLimit,
			CompanyCurrency:              deps.Workflow.CompanyCurrency,
			DefaultProjectName:           deps.Workflow.ProjectName,
		},
		svcLogger,
	)

	extractor := submission.NewExtractor(deps.Logger, submission.Options{
		DefaultCurrency: deps.Workflow.CompanyCurrency,
		Currencies:      deps.Workflow.Currencies,
	})
	submissions := service.NewSubmissionService(
		service.SubmissionRepositories{
			Trips:       repos.Trips,
			Forms:       repos.Forms,
			Data:        repos.TripData,
			Persons:     repos.Persons,
			Attachments: repos.Attachments,
		},
		extractor,
		deps.Storage,
		deps.TxManager,
		deps.Dispatcher,
		svcLogger,
	)

	ledger := service.NewLedgerService(
		repos.Trips,
		repos.TripData,
		repos.Users,
		export.NewLedgerWriter(deps.Logger),
		svcLogger,
	)

	return &ServiceBundle{
		Notification: notifications,
		Trip:         trips,
		Submission:   submissions,
		Ledger:       ledger,
	}, nil
}

// auditLogHandler writes every trip event to the log.
func auditLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Trip event",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.Int64("trip_id", evt.TripID),
			zap.Int64("actor_id", evt.ActorID),
			zap.String("correlation_id", evt.CorrelationID),
			zap.Any("payload", evt.Payload),
		)
		return nil
	}
}

// logNotifier stands in for Lark when no credentials are configured.
type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Notify(ctx context.Context, recipient *entity.User, msg *entity.Message) error {
	n.logger.Info("Chatter message",
		zap.Int64("trip_id", msg.TripID),
		zap.Int64("recipient_id", recipient.ID),
		zap.String("visibility", string(msg.Visibility)),
		zap.String("subject", msg.Subject),
		zap.String("body", utils.StripHTML(msg.Body)),
	)
	return nil
}

var _ port.Notifier = (*logNotifier)(nil)
