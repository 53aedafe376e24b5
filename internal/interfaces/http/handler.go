package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/infrastructure"
	"github.com/chatflow-ai/chatflow-server/internal/repository"
	"github.com/chatflow-ai/chatflow-server/internal/usecases"
)

// Config carries the environment-derived settings the handlers need.
type Config struct {
	AppBaseURL         string
	WebhookVerifyToken string
	AdminMigrateKey    string
}

// Narrow store views of the repositories, so handler behavior is testable
// with in-memory implementations.

type businessStore interface {
	Create(b *entities.Business) error
	GetByID(id string) (*entities.Business, error)
	GetPrimaryByOwner(ownerID string) (*entities.Business, error)
}

type accountStore interface {
	Upsert(a *entities.ConnectedAccount) error
	GetByID(id string) (*entities.ConnectedAccount, error)
	ListByBusiness(businessID string) ([]entities.ConnectedAccount, error)
	UpdateStatus(id, status string) error
}

type agentStore interface {
	Create(a *entities.Agent) error
	GetByID(id string) (*entities.Agent, error)
	ListByBusiness(businessID string) ([]entities.Agent, error)
	Update(a *entities.Agent) error
}

type conversationStore interface {
	GetByID(id string) (*entities.Conversation, error)
	ListByBusiness(businessID string) ([]entities.Conversation, error)
	UpdateStatus(id, status string) error
	BumpCounters(id string, messageCount int, lastMessageAt time.Time) error
}

type messageStore interface {
	Insert(msg *entities.Message) error
	ListByConversation(conversationID string, limit int) ([]entities.Message, error)
}

type Handler struct {
	cfg Config

	authUsecase  *usecases.AuthUsecase
	oauthUsecase *usecases.OAuthUsecase
	dashboard    *usecases.DashboardUsecase
	responder    *usecases.RespondService
	pipeline     *usecases.MessagePipeline

	businessRepo     businessStore
	accountRepo      accountStore
	agentRepo        agentStore
	conversationRepo conversationStore
	messageRepo      messageStore

	meta      *infrastructure.MetaClient
	waManager *infrastructure.WhatsAppManager
	db        *infrastructure.PostgresClient
}

func NewHandler(
	cfg Config,
	authUsecase *usecases.AuthUsecase,
	oauthUsecase *usecases.OAuthUsecase,
	dashboard *usecases.DashboardUsecase,
	responder *usecases.RespondService,
	pipeline *usecases.MessagePipeline,
	businessRepo *repository.BusinessRepository,
	accountRepo *repository.AccountRepository,
	agentRepo *repository.AgentRepository,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	meta *infrastructure.MetaClient,
	waManager *infrastructure.WhatsAppManager,
	db *infrastructure.PostgresClient,
) *Handler {
	return &Handler{
		cfg:              cfg,
		authUsecase:      authUsecase,
		oauthUsecase:     oauthUsecase,
		dashboard:        dashboard,
		responder:        responder,
		pipeline:         pipeline,
		businessRepo:     businessRepo,
		accountRepo:      accountRepo,
		agentRepo:        agentRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		meta:             meta,
		waManager:        waManager,
		db:               db,
	}
}

func (h *Handler) SetupRoutes(r *gin.Engine, mw *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(mw.CORSMiddleware())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Meta webhook endpoints are unauthenticated; Meta verifies via token
	r.GET("/api/webhook", h.VerifyWebhook)
	r.POST("/api/webhook", h.ReceiveWebhook)

	// OAuth callbacks arrive from the platform's redirect, not from our frontend
	r.GET("/api/connect/:platform/callback", h.OAuthCallback)

	// Admin
	r.POST("/api/admin/migrate", h.RunMigrations)

	// Auth
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	// Authenticated API
	api := r.Group("/api")
	api.Use(mw.AuthRequired())
	api.Use(mw.RateLimitPerUser(rate.Limit(10), 20))
	{
		api.POST("/onboarding/business", h.CreateBusiness)
		api.GET("/business", h.GetPrimaryBusiness)

		api.POST("/agents", h.CreateAgent)
		api.GET("/agents", h.ListAgents)
		api.GET("/agents/:id", h.GetAgent)
		api.PATCH("/agents/:id", h.UpdateAgent)
		api.POST("/agents/respond", h.GenerateResponse)

		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.PATCH("/conversations/:id", h.UpdateConversationStatus)
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/conversations/:id/messages", h.CreateMessage)

		api.GET("/platforms", h.ListPlatforms)
		api.GET("/connect/:platform", h.StartOAuth)
		api.DELETE("/platforms/:id", h.DisconnectPlatform)

		api.POST("/whatsapp/connect", h.ConnectWhatsApp)
		api.GET("/whatsapp/qr", h.WhatsAppQR)
		api.GET("/whatsapp/status", h.WhatsAppStatus)
		api.POST("/whatsapp/logout", h.LogoutWhatsApp)

		api.GET("/dashboard/stats", h.DashboardStats)
	}
}
