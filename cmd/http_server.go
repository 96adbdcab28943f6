package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/attachment"
	attachmentdb "github.com/satriajat/helpdesk-management/internal/attachment/postgres"
	"github.com/satriajat/helpdesk-management/internal/audit"
	auditdb "github.com/satriajat/helpdesk-management/internal/audit/postgres"
	"github.com/satriajat/helpdesk-management/internal/auth"
	authdb "github.com/satriajat/helpdesk-management/internal/auth/postgres"
	"github.com/satriajat/helpdesk-management/internal/classify"
	"github.com/satriajat/helpdesk-management/internal/core/events"
	"github.com/satriajat/helpdesk-management/internal/guard"
	"github.com/satriajat/helpdesk-management/internal/orgunit"
	orgunitdb "github.com/satriajat/helpdesk-management/internal/orgunit/postgres"
	"github.com/satriajat/helpdesk-management/internal/storage"
	teamdb "github.com/satriajat/helpdesk-management/internal/team/postgres"
	"github.com/satriajat/helpdesk-management/internal/ticket"
	ticketdb "github.com/satriajat/helpdesk-management/internal/ticket/postgres"
	"github.com/satriajat/helpdesk-management/internal/transport/rest"
	"github.com/satriajat/helpdesk-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

// ticketSourceAdapter lets the attachment service resolve the owning ticket
// without importing the ticket package from there.
type ticketSourceAdapter struct {
	tickets ticket.Repository
}

func (a *ticketSourceAdapter) TicketRef(ctx context.Context, id int64) (*guard.TicketRef, error) {
	t, err := a.tickets.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return &guard.TicketRef{
		ID:             t.ID,
		OwnerOrgUnitID: t.OwnerOrgUnitID,
		CurrentTeamID:  t.CurrentTeamID,
		Sensitivity:    t.SensitivityLevel,
	}, nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitWithOptions(config.Observability.Logging.Level, config.Observability.Logging.Format)
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm rides on the same pgx connection pool as sqlx
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	// repositories
	orgUnitRepo := orgunitdb.NewRepository(gormDB)
	auditRepo := auditdb.NewRepository(gormDB)
	teamRepo := teamdb.NewRepository(gormDB)
	authRepo := authdb.NewRepository(gormDB)
	ticketRepo := ticketdb.NewRepository(gormDB)
	attachmentRepo := attachmentdb.NewRepository(gormDB)

	// cross-cutting services
	auditService := audit.NewService(auditRepo, appLogger)
	orgUnitService := orgunit.NewService(orgUnitRepo, appLogger)
	orgUnitHandler := orgunit.NewHandler(orgUnitService)
	scopeResolver := orgunit.NewResolver(orgUnitRepo)
	accessGuard := guard.New(scopeResolver, auditService, appLogger)
	eventBus := events.NewEventBus(appLogger)

	store, err := storage.NewMinioClient(config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	// auth
	tokenGenerator := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
	)
	tokenGenerator.AccessTokenTTL = config.Security.AccessTokenDuration
	tokenGenerator.RefreshTokenTTL = config.Security.RefreshTokenDuration
	authService := auth.NewService(authRepo, tokenGenerator)
	authHandler := auth.NewHandler(authService)

	// attachments
	attachmentService := attachment.NewService(
		attachmentRepo,
		&ticketSourceAdapter{tickets: ticketRepo},
		accessGuard,
		store,
		auditService,
		config.Attachments,
		appLogger,
	)
	attachmentHandler := attachment.NewHandler(attachmentService)

	// tickets
	ticketService := ticket.NewService(
		ticketRepo,
		accessGuard,
		scopeResolver,
		teamRepo,
		attachmentService,
		auditService,
		eventBus,
		appLogger,
	)
	ticketHandler := ticket.NewHandler(ticketService)

	// closing a ticket starts the attachment retention clock
	eventBus.Subscribe(events.EventTypeTicketClosed, func(ctx context.Context, event events.Event) error {
		closed, ok := event.(*events.TicketClosedEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", event.EventType())
		}
		return attachmentService.ApplyRetention(ctx, closed.TicketID)
	})

	// classification and retrieval
	classifyService := classify.NewService(
		ticketRepo,
		accessGuard,
		classify.NewKeywordRetriever(gormDB),
		auditService,
		appLogger,
	)
	classifyHandler := classify.NewHandler(classifyService)

	router := chi.NewRouter()
	router.NotFound(rest.NotFoundJSON)
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:       authHandler,
		Ticket:     ticketHandler,
		Attachment: attachmentHandler,
		Classify:   classifyHandler,
		OrgUnit:    orgUnitHandler,
	}, config.Observability.Metrics.Enabled, config.Observability.Metrics.Path, appLogger)

	return &Dependencies{
		Config: config,
		Logger: appLogger,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
