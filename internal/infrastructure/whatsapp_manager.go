package infrastructure

import (
	"fmt"
	"os"
	"sync"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

// WhatsAppManager manages per-business linked WhatsApp devices.
type WhatsAppManager struct {
	clients map[string]*WhatsAppClient
	mu      sync.RWMutex
	baseDir string

	// Callback for registering message handlers per client
	HandlerFactory func(businessID string) func(interface{})
}

// NewWhatsAppManager creates a new manager for per-business WhatsApp clients.
func NewWhatsAppManager(baseDir string) *WhatsAppManager {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		fmt.Printf("Warning: could not create devices directory: %v\n", err)
	}

	return &WhatsAppManager{
		clients: make(map[string]*WhatsAppClient),
		baseDir: baseDir,
	}
}

// GetClient returns the existing client for a business (nil if none).
func (m *WhatsAppManager) GetClient(businessID string) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[businessID]
}

// GetOrCreateClient gets the existing client or creates a new one with a
// business-specific device store.
func (m *WhatsAppManager) GetOrCreateClient(businessID string) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[businessID]; exists {
		return client, nil
	}

	dbPath := fmt.Sprintf("%s/business_%s.db", m.baseDir, businessID)
	client, err := NewWhatsAppClient(dbPath, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp client for business %s: %w", businessID, err)
	}

	if m.HandlerFactory != nil {
		client.AddHandler(m.HandlerFactory(businessID))
	}

	m.clients[businessID] = client
	return client, nil
}

// ConnectClient connects the business's WhatsApp client (creates if needed).
func (m *WhatsAppManager) ConnectClient(businessID string) (*WhatsAppClient, error) {
	client, err := m.GetOrCreateClient(businessID)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect WhatsApp for business %s: %w", businessID, err)
	}

	return client, nil
}

// LogoutClient logs out the business's device (clears session, shows new QR).
// Returns nil if no client exists or it is already logged out.
func (m *WhatsAppManager) LogoutClient(businessID string) error {
	m.mu.RLock()
	client, exists := m.clients[businessID]
	m.mu.RUnlock()

	if !exists || client == nil {
		return nil
	}

	if !client.IsLoggedIn() && !client.Client.IsConnected() {
		m.mu.Lock()
		delete(m.clients, businessID)
		m.mu.Unlock()
		return nil
	}

	err := client.Logout()

	m.mu.Lock()
	delete(m.clients, businessID)
	m.mu.Unlock()

	return err
}

// SendReply implements the outbound sender port for device-linked WhatsApp
// accounts: the reply goes out through the business's own linked device.
func (m *WhatsAppManager) SendReply(account *entities.ConnectedAccount, recipientID, text string) error {
	client := m.GetClient(account.BusinessID)
	if client == nil || !client.IsConnected() {
		return fmt.Errorf("no connected WhatsApp device for business %s", account.BusinessID)
	}
	client.SendPresence(recipientID)
	return client.SendMessage(recipientID, text)
}

// DisconnectAll disconnects all clients (for graceful shutdown).
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
}
