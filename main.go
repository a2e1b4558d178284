package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"whisperbox/internal/handlers"
	"whisperbox/internal/middleware"
	"whisperbox/internal/models"
	"whisperbox/internal/repositories"
	"whisperbox/internal/services"
	"whisperbox/pkg/openrouter"
	"whisperbox/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	// Set up Viper to read configuration from environment variables
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "whisperbox.db")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("OPENROUTER_URL", openrouter.DefaultURL)
	viper.SetDefault("OPENROUTER_API_KEY", "")
	viper.SetDefault("OPENROUTER_MODEL", openrouter.DefaultModel)
	viper.SetDefault("OPENROUTER_REFERER", "")
	viper.SetDefault("SUGGESTION_TIMEOUT", 10*time.Second)
	viper.AutomaticEnv() // Load environment variables

	appPort := viper.GetString("APP_PORT")

	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be configured")
	}

	// The suggestion provider credential is a startup requirement, not
	// something to discover on the first page load.
	providerClient, err := openrouter.NewClient(openrouter.Config{
		URL:     viper.GetString("OPENROUTER_URL"),
		APIKey:  viper.GetString("OPENROUTER_API_KEY"),
		Model:   viper.GetString("OPENROUTER_MODEL"),
		Referer: viper.GetString("OPENROUTER_REFERER"),
		Title:   "Whisperbox Suggestions",
		Timeout: viper.GetDuration("SUGGESTION_TIMEOUT"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize suggestion provider client: %v", err)
	}

	// --- Initialize RabbitMQ Client (optional) ---
	// Without a broker the services simply skip event publication.
	var mqClient *rabbitmq.Client
	if rabbitMQURL := viper.GetString("RABBITMQ_URL"); rabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close() // Ensure the connection is closed on exit
	} else {
		log.Println("RABBITMQ_URL not set, notification events will not be published")
	}

	// --- Initialize the user directory ---
	userRepo, err := newUserRepository()
	if err != nil {
		log.Fatalf("Failed to initialize user directory: %v", err)
	}

	// --- Initialize Services ---
	suggestionService := services.NewSuggestionService(providerClient, viper.GetDuration("SUGGESTION_TIMEOUT"))
	availabilityService := services.NewAvailabilityService(userRepo)
	messageService := services.NewMessageService(userRepo, mqClient)
	authService := services.NewAuthService(userRepo, mqClient, jwtSecret)

	// --- Initialize Handlers ---
	suggestionHandler := handlers.NewSuggestionHandler(suggestionService)
	messageHandler := handlers.NewMessageHandler(messageService)
	authHandler := handlers.NewAuthHandler(authService, availabilityService)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	// Public routes: anonymous senders and the registration flow
	apiV1 := app.Group("/api/v1")
	suggestionHandler.RegisterRoutes(apiV1)
	messageHandler.RegisterRoutes(apiV1)
	authHandler.RegisterRoutes(apiV1)

	// Owner routes require a valid JWT
	protected := apiV1.Group("", middleware.AuthRequired(authService))
	messageHandler.RegisterOwnerRoutes(protected)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// newUserRepository opens the configured user directory backend: GORM over
// SQLite or PostgreSQL, or the in-memory store when DATABASE_DRIVER=memory.
func newUserRepository() (repositories.UserRepository, error) {
	driver := viper.GetString("DATABASE_DRIVER")
	if driver == "memory" {
		log.Println("Using in-memory user directory, data will not survive restarts")
		return repositories.NewMemoryUserRepository(), nil
	}

	dsn := viper.GetString("DATABASE_DSN")
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		return nil, err
	}
	return repositories.NewGORMUserRepository(db), nil
}
