package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/agentchat/internal/api/handlers"
	"github.com/cloo-solutions/agentchat/internal/config"
	"github.com/cloo-solutions/agentchat/internal/database"
	"github.com/cloo-solutions/agentchat/internal/jobs"
	"github.com/cloo-solutions/agentchat/internal/openai"
	"github.com/cloo-solutions/agentchat/internal/repository"
	"github.com/cloo-solutions/agentchat/internal/server"
	"github.com/cloo-solutions/agentchat/internal/service"
	"github.com/cloo-solutions/agentchat/internal/storage"
	"github.com/cloo-solutions/agentchat/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	sdkopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the agentchat API server on the specified port",
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

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	agentRepo := repository.NewAgentRepository(pool)
	sourceRepo := repository.NewKnowledgeSourceRepository(pool)
	chunkRepo := repository.NewSourceChunkRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)

	var s3Client *storage.S3Client
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err = storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	var (
		ingestor        handlers.Ingestor
		chatSvc         handlers.ChatService
		ingestionWorker *jobs.Worker
	)

	if cfg.HasOpenAI() {
		aiClient := openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: sdkopenai.EmbeddingModel(cfg.EmbeddingModel),
			ChatModel:      cfg.ChatModel,
		})

		ingestionSvc := service.NewIngestionService(sourceRepo, chunkRepo, aiClient)
		if s3Client != nil {
			ingestionSvc = ingestionSvc.WithArchiver(s3Client)
		}
		ingestor = ingestionSvc

		retrieverCfg := service.DefaultRetrieverConfig()
		retrieverCfg.SimilarityThreshold = cfg.SimilarityThreshold
		retrieverCfg.VectorLimit = cfg.RetrievalLimit
		retriever := service.NewRetrieverWithConfig(sourceRepo, chunkRepo, aiClient, retrieverCfg)

		chatSvc = service.NewConversationService(agentRepo, convRepo, msgRepo, retriever, &completionAdapter{client: aiClient}).
			WithHistoryWindow(cfg.HistoryWindow)

		ingestionProcessor := jobs.NewIngestionWorker(sourceRepo, ingestionSvc)
		ingestionWorker = jobs.NewWorker(ingestionProcessor, cfg.IngestionInterval)
		go ingestionWorker.Start(ctx)
		log.Println("ingestion worker started")
	} else {
		log.Println("OPENAI_API_KEY not set: ingestion and chat disabled")
		ingestor = &noOpIngestor{}
		chatSvc = &noOpChatService{}
	}

	agentHandler := handlers.NewAgentHandler(agentRepo, cfg.ChatModel)
	sourceHandler := handlers.NewKnowledgeSourceHandler(sourceRepo, agentRepo, ingestor)
	if s3Client != nil {
		sourceHandler = sourceHandler.WithArchiver(s3Client)
	}
	chatHandler := handlers.NewChatHandler(chatSvc)
	conversationHandler := handlers.NewConversationHandler(convRepo, msgRepo)

	router := server.NewRouter(server.RouterConfig{
		AgentHandler:        agentHandler,
		SourceHandler:       sourceHandler,
		ChatHandler:         chatHandler,
		ConversationHandler: conversationHandler,
	})

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

	if ingestionWorker != nil {
		ingestionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// completionAdapter bridges the OpenAI client to the conversation service's
// completion interface.
type completionAdapter struct {
	client *openai.Client
}

func (a *completionAdapter) CreateCompletion(ctx context.Context, req service.CompletionRequest) (*service.CompletionResult, error) {
	messages := make([]openai.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	out, err := a.client.CreateCompletion(ctx, openai.CompletionInput{
		Messages:    messages,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &service.CompletionResult{
		Content:          out.Content,
		Model:            out.Model,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		TotalTokens:      out.Usage.TotalTokens,
	}, nil
}

type noOpIngestor struct{}

func (s *noOpIngestor) Ingest(ctx context.Context, sourceID string) error {
	return fmt.Errorf("ingestion not configured: OPENAI_API_KEY required")
}

type noOpChatService struct{}

func (s *noOpChatService) HandleTurn(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error) {
	return nil, fmt.Errorf("chat not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
