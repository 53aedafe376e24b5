package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/usecases"
)

func newWebhookTestRouter(verifyToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{cfg: Config{WebhookVerifyToken: verifyToken}}
	r := gin.New()
	r.GET("/api/webhook", h.VerifyWebhook)
	r.POST("/api/webhook", h.ReceiveWebhook)
	return r
}

func TestVerifyWebhookHandshake(t *testing.T) {
	r := newWebhookTestRouter("secret-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET",
		"/api/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Meta requires the raw challenge echoed back, not JSON
	assert.Equal(t, "12345", w.Body.String())
}

func TestVerifyWebhookWrongToken(t *testing.T) {
	r := newWebhookTestRouter("secret-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET",
		"/api/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyWebhookUnconfiguredTokenAlwaysFails(t *testing.T) {
	r := newWebhookTestRouter("")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET",
		"/api/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyWebhookWrongMode(t *testing.T) {
	r := newWebhookTestRouter("secret-token")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET",
		"/api/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiveWebhookRejectsInvalidPayload(t *testing.T) {
	r := newWebhookTestRouter("secret-token")

	cases := []string{
		`not json`,
		`{}`,
		`{"object":"instagram","entry":[]}`,
		`{"object":"unknown_platform","entry":[{"messaging":[{"sender":{"id":"1"},"message":{"text":"hi"}}]}]}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/webhook", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "payload: %s", body)
	}
}

func TestReceiveWebhookAcksNonTextEvents(t *testing.T) {
	r := newWebhookTestRouter("secret-token")

	// A delivery receipt: messaging entry with no message text
	body := `{"object":"instagram","entry":[{"id":"page-1","messaging":[{"sender":{"id":"cust-1"},"recipient":{"id":"page-1"},"timestamp":1700000000000}]}]}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

type stubAccountStore struct {
	account *entities.ConnectedAccount
}

func (s *stubAccountStore) GetByPlatformAccount(platform, accountID string) (*entities.ConnectedAccount, error) {
	if s.account != nil && s.account.Platform == platform && s.account.AccountID == accountID {
		return s.account, nil
	}
	return nil, nil
}

type stubAgentStore struct{}

func (stubAgentStore) GetByID(string) (*entities.Agent, error) { return nil, nil }
func (stubAgentStore) GetActiveByBusiness(string) (*entities.Agent, error) { return nil, nil }

type stubConversationStore struct{}

func (stubConversationStore) GetByID(string) (*entities.Conversation, error) { return nil, nil }
func (stubConversationStore) GetActive(string, string) (*entities.Conversation, error) { return nil, nil }
func (stubConversationStore) GetOpen(string, string) (*entities.Conversation, error) { return nil, nil }
func (stubConversationStore) CreateActive(c *entities.Conversation) (*entities.Conversation, error) {
	return c, nil
}
func (stubConversationStore) BumpCounters(string, int, time.Time) error { return nil }

type stubMessageStore struct{}

func (stubMessageStore) Insert(*entities.Message) error { return nil }
func (stubMessageStore) ListByConversation(string, int) ([]entities.Message, error) { return nil, nil }
func (stubMessageStore) PlatformMessageExists(string) (bool, error) { return false, nil }

type stubUsageStore struct{}

func (stubUsageStore) RecordInbound(string) error           { return nil }
func (stubUsageStore) RecordOutbound(string, float64) error { return nil }

func newWebhookPipelineRouter(account *entities.ConnectedAccount) *gin.Engine {
	gin.SetMode(gin.TestMode)
	pipeline := &usecases.MessagePipeline{
		Accounts:      &stubAccountStore{account: account},
		Agents:        stubAgentStore{},
		Conversations: stubConversationStore{},
		Messages:      stubMessageStore{},
		Usage:         stubUsageStore{},
	}
	h := &Handler{cfg: Config{WebhookVerifyToken: "secret-token"}, pipeline: pipeline}
	r := gin.New()
	r.POST("/api/webhook", h.ReceiveWebhook)
	return r
}

const instagramDM = `{"object":"instagram","entry":[{"id":"page-1","messaging":[{"sender":{"id":"cust-1"},"recipient":{"id":"page-1"},"timestamp":1700000000000,"message":{"mid":"mid-1","text":"hi"}}]}]}`

func TestReceiveWebhookNoActiveAgentFailsClosed(t *testing.T) {
	r := newWebhookPipelineRouter(&entities.ConnectedAccount{
		ID: "acct-1", BusinessID: "biz-1", Platform: entities.PlatformInstagram,
		AccountID: "page-1", Status: entities.AccountActive,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/webhook", strings.NewReader(instagramDM))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to create conversation")
}

func TestReceiveWebhookUnknownAccountFailsClosed(t *testing.T) {
	r := newWebhookPipelineRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/webhook", strings.NewReader(instagramDM))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to create conversation")
}

func TestPlatformFromObject(t *testing.T) {
	assert.Equal(t, "instagram", platformFromObject("instagram"))
	assert.Equal(t, "facebook", platformFromObject("page"))
	assert.Equal(t, "whatsapp", platformFromObject("whatsapp_business_account"))
	assert.Equal(t, "", platformFromObject("tiktok_unknown"))
}
