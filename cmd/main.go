package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/chatflow-ai/chatflow-server/internal/infrastructure"
	"github.com/chatflow-ai/chatflow-server/internal/interfaces"
	handlers "github.com/chatflow-ai/chatflow-server/internal/interfaces/http"
	"github.com/chatflow-ai/chatflow-server/internal/repository"
	"github.com/chatflow-ai/chatflow-server/internal/usecases"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Println("DATABASE_URL is required")
		os.Exit(1)
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		fmt.Println("JWT_SECRET is required")
		os.Exit(1)
	}
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		fmt.Println("Warning: ANTHROPIC_API_KEY not set, AI responses will fail")
	}

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = "http://localhost:8080"
	}
	deviceDir := os.Getenv("WHATSAPP_DEVICE_DIR")
	if deviceDir == "" {
		deviceDir = "./whatsapp_devices"
	}

	db, err := infrastructure.NewPostgresClient(databaseURL)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db.Pool)
	businessRepo := repository.NewBusinessRepository(db.Pool)
	accountRepo := repository.NewAccountRepository(db.Pool)
	agentRepo := repository.NewAgentRepository(db.Pool)
	conversationRepo := repository.NewConversationRepository(db.Pool)
	messageRepo := repository.NewMessageRepository(db.Pool)
	usageRepo := repository.NewUsageRepository(db.Pool)

	// External clients
	anthropic := infrastructure.NewAnthropicClient(anthropicKey)
	meta := infrastructure.NewMetaClient(os.Getenv("META_APP_ID"), os.Getenv("META_APP_SECRET"))
	waManager := infrastructure.NewWhatsAppManager(deviceDir)

	// Usecases
	authUsecase := usecases.NewAuthUsecase(userRepo, jwtSecret)
	oauthUsecase := usecases.NewOAuthUsecase(os.Getenv("META_APP_ID"), appBaseURL)
	dashboard := usecases.NewDashboardUsecase(agentRepo, accountRepo, conversationRepo, usageRepo)
	responder := usecases.NewRespondService(conversationRepo, agentRepo, messageRepo, businessRepo, usageRepo, anthropic)

	pipeline := &usecases.MessagePipeline{
		Accounts:      accountRepo,
		Agents:        agentRepo,
		Conversations: conversationRepo,
		Messages:      messageRepo,
		Usage:         usageRepo,
		Responder:     responder,
		Senders: map[string]interfaces.OutboundSender{
			"instagram": meta,
			"facebook":  meta,
			"whatsapp":  waManager,
		},
		Limiter: infrastructure.NewMessageRateLimiter(0.5, 3), // ~30 replies/min per customer
	}

	// Device-linked WhatsApp events feed the same pipeline as Meta webhooks
	waManager.HandlerFactory = func(businessID string) func(interface{}) {
		return func(rawEvt interface{}) {
			evt, ok := rawEvt.(*events.Message)
			if !ok {
				return
			}
			client := waManager.GetClient(businessID)
			if client == nil {
				return
			}
			msg := client.ParseMessage(evt)
			if msg == nil {
				return
			}
			go func() {
				if _, err := pipeline.Handle(*msg); err != nil {
					fmt.Printf("[WhatsApp] pipeline error for business %s: %v\n", businessID, err)
				}
			}()
		}
	}

	handler := handlers.NewHandler(
		handlers.Config{
			AppBaseURL:         appBaseURL,
			WebhookVerifyToken: os.Getenv("WEBHOOK_VERIFY_TOKEN"),
			AdminMigrateKey:    os.Getenv("ADMIN_MIGRATE_KEY"),
		},
		authUsecase, oauthUsecase, dashboard, responder, pipeline,
		businessRepo, accountRepo, agentRepo, conversationRepo, messageRepo,
		meta, waManager, db,
	)

	mw := handlers.NewMiddleware(jwtSecret)

	r := gin.Default()
	handler.SetupRoutes(r, mw)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("ChatFlow server starting on port %s\n", port)
	defer waManager.DisconnectAll()
	if err := r.Run(":" + port); err != nil {
		fmt.Printf("Server failed: %v\n", err)
		os.Exit(1)
	}
}
