package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/safecampus/sentra/internal/api/handlers"
	"github.com/safecampus/sentra/internal/config"
	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/genai"
	"github.com/safecampus/sentra/internal/jobs"
	"github.com/safecampus/sentra/internal/openai"
	"github.com/safecampus/sentra/internal/repository"
	"github.com/safecampus/sentra/internal/server"
	"github.com/safecampus/sentra/internal/service"
	"github.com/safecampus/sentra/internal/storage"
	"github.com/safecampus/sentra/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the sentra API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewAccessTokenRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, tokenRepo, uuidGen)

	if cfg.InitUserName != "" {
		if err := bootstrapInitialUser(ctx, cfg, userRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
	}

	var objectStore *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		objectStore, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var embedder service.EmbeddingClient
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openaiapi.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Timeout:             cfg.EmbedTimeout,
		})
		repairSvc := service.NewEmbeddingRepairService(docRepo, embedder)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, repairSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	} else {
		embedder = &unavailableEmbedder{}
		log.Println("OPENAI_API_KEY not set: retrieval will use keyword search only")
	}

	var generator service.GenerationClient
	if cfg.HasGemini() {
		generator, err = genai.NewClient(ctx, genai.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GenerationModel,
			Timeout: cfg.GenerateTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create generation client: %w", err)
		}
	} else {
		generator = &unavailableGenerator{}
		log.Println("GEMINI_API_KEY not set: answers will be degraded")
	}

	retriever := service.NewRetriever(searchRepo)
	ragSvc := service.NewRAGService(embedder, generator, retriever, convRepo, msgRepo, uuidGen, service.RAGConfig{
		RetrieveLimit:    cfg.RetrieveLimit,
		MaxQuestionChars: cfg.MaxQuestionChars,
	})
	ingestSvc := service.NewIngestionService(txRunner, embedder, uuidGen, service.IngestConfig{
		ChunkThreshold: cfg.ChunkThreshold,
		Chunk: service.ChunkConfig{
			Size:    cfg.ChunkSize,
			Overlap: cfg.ChunkOverlap,
		},
		Workers:   cfg.IngestWorkers,
		EmbedRate: cfg.EmbedRatePerSec,
	})

	var docStore service.ObjectStore
	var archive handlers.SourceArchive
	if objectStore != nil {
		docStore = objectStore
		archive = objectStore
	}
	docSvc := service.NewDocumentService(docRepo, docStore)
	convSvc := service.NewConversationService(convRepo, msgRepo)

	routerCfg := server.RouterConfig{
		AuthValidator:       authSvc,
		AskHandler:          handlers.NewAskHandler(ragSvc),
		DocumentHandler:     handlers.NewDocumentHandler(ingestSvc, docSvc, archive),
		ConversationHandler: handlers.NewConversationHandler(convSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// unavailableEmbedder stands in when no embedding provider is configured.
// The ask pipeline falls back to keyword retrieval and ingestion indexes
// documents without vectors.
type unavailableEmbedder struct{}

func (e *unavailableEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.NewDomainError(domain.ErrCodeProviderUnavailable, "embedding provider not configured: OPENAI_API_KEY required")
}

// unavailableGenerator stands in when no generation provider is configured.
// The ask pipeline degrades to its stock fallback answer.
type unavailableGenerator struct{}

func (g *unavailableGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeProviderUnavailable, "generation provider not configured: GEMINI_API_KEY required")
}

func bootstrapInitialUser(ctx context.Context, cfg *config.Config, userRepo *repository.UserRepository, authSvc *service.AuthService) error {
	user, err := userRepo.GetByName(ctx, cfg.InitUserName)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if user == nil {
		user, err = authSvc.CreateUser(ctx, cfg.InitUserName)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("bootstrap: created user '%s' (id: %s)", user.Name, user.ID)
	} else {
		log.Printf("bootstrap: user '%s' already exists (id: %s)", user.Name, user.ID)
	}

	if cfg.InitToken != "" {
		if !service.IsValidToken(cfg.InitToken) {
			return fmt.Errorf("invalid SENTRA_INIT_TOKEN format (expected 'sct_<64 hex chars>')")
		}

		if _, err := authSvc.ValidateToken(ctx, cfg.InitToken); err == nil {
			log.Println("bootstrap: access token already exists")
			return nil
		}

		if err := authSvc.CreateTokenWithValue(ctx, user.ID, "bootstrap", cfg.InitToken); err != nil {
			return fmt.Errorf("failed to create access token: %w", err)
		}
		log.Println("bootstrap: created access token")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database is at version %d", version)
	}

	return nil
}
