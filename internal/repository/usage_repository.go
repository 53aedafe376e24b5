package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

type DailyUsage struct {
	Date        time.Time `json:"date"`
	MessagesIn  int       `json:"messages_in"`
	MessagesOut int       `json:"messages_out"`
	Cost        float64   `json:"cost"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// RecordInbound increments today's inbound counter for a business.
func (r *UsageRepository) RecordInbound(businessID string) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO daily_usage (business_id, date, messages_in, messages_out, cost)
		VALUES ($1, $2, 1, 0, 0)
		ON CONFLICT (business_id, date)
		DO UPDATE SET messages_in = daily_usage.messages_in + 1
	`, businessID, today)
	return err
}

// RecordOutbound increments today's outbound counter and adds the model cost.
func (r *UsageRepository) RecordOutbound(businessID string, cost float64) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO daily_usage (business_id, date, messages_in, messages_out, cost)
		VALUES ($1, $2, 0, 1, $3)
		ON CONFLICT (business_id, date)
		DO UPDATE SET messages_out = daily_usage.messages_out + 1, cost = daily_usage.cost + $3
	`, businessID, today, cost)
	return err
}

// GetMonthTotals returns this month's message counts and spend.
func (r *UsageRepository) GetMonthTotals(businessID string) (in, out int, cost float64, err error) {
	firstOfMonth := time.Now().Format("2006-01") + "-01"
	err = r.db.QueryRow(context.Background(), `
		SELECT COALESCE(SUM(messages_in), 0), COALESCE(SUM(messages_out), 0), COALESCE(SUM(cost), 0)
		FROM daily_usage WHERE business_id = $1 AND date >= $2
	`, businessID, firstOfMonth).Scan(&in, &out, &cost)
	return in, out, cost, err
}

// GetHistory returns the last N days of usage for dashboard charts.
func (r *UsageRepository) GetHistory(businessID string, days int) ([]DailyUsage, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := r.db.Query(context.Background(), `
		SELECT date, messages_in, messages_out, cost
		FROM daily_usage
		WHERE business_id = $1 AND date >= $2
		ORDER BY date ASC
	`, businessID, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.MessagesIn, &u.MessagesOut, &u.Cost); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, nil
}
