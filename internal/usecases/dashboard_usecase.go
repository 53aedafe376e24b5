package usecases

import (
	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/repository"
)

// DashboardUsecase aggregates per-business stats for the dashboard.
type DashboardUsecase struct {
	agentRepo        *repository.AgentRepository
	accountRepo      *repository.AccountRepository
	conversationRepo *repository.ConversationRepository
	usageRepo        *repository.UsageRepository
}

func NewDashboardUsecase(
	agentRepo *repository.AgentRepository,
	accountRepo *repository.AccountRepository,
	conversationRepo *repository.ConversationRepository,
	usageRepo *repository.UsageRepository,
) *DashboardUsecase {
	return &DashboardUsecase{
		agentRepo:        agentRepo,
		accountRepo:      accountRepo,
		conversationRepo: conversationRepo,
		usageRepo:        usageRepo,
	}
}

type DashboardStats struct {
	AgentCount        int                     `json:"agent_count"`
	ConnectedAccounts int                     `json:"connected_accounts"`
	Conversations     map[string]int          `json:"conversations"` // by status
	MonthMessagesIn   int                     `json:"month_messages_in"`
	MonthMessagesOut  int                     `json:"month_messages_out"`
	MonthCost         float64                 `json:"month_cost"`
	History           []repository.DailyUsage `json:"history"`
}

func (uc *DashboardUsecase) Stats(businessID string) (*DashboardStats, error) {
	stats := &DashboardStats{
		Conversations: map[string]int{
			entities.ConversationActive:    0,
			entities.ConversationEscalated: 0,
			entities.ConversationResolved:  0,
		},
	}

	agents, err := uc.agentRepo.ListByBusiness(businessID)
	if err != nil {
		return nil, err
	}
	stats.AgentCount = len(agents)

	accounts, err := uc.accountRepo.ListByBusiness(businessID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Status == entities.AccountActive {
			stats.ConnectedAccounts++
		}
	}

	conversations, err := uc.conversationRepo.ListByBusiness(businessID)
	if err != nil {
		return nil, err
	}
	for _, c := range conversations {
		stats.Conversations[c.Status]++
	}

	in, out, cost, err := uc.usageRepo.GetMonthTotals(businessID)
	if err != nil {
		return nil, err
	}
	stats.MonthMessagesIn = in
	stats.MonthMessagesOut = out
	stats.MonthCost = cost

	history, err := uc.usageRepo.GetHistory(businessID, 30)
	if err != nil {
		return nil, err
	}
	stats.History = history

	return stats, nil
}
