package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS businesses (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT DEFAULT '',
			slug VARCHAR(100) UNIQUE NOT NULL,
			plan VARCHAR(20) DEFAULT 'free',
			is_primary BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create businesses table: %w", err)
	}

	// One default business per owner
	_, err = p.Pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS businesses_primary_per_owner
		ON businesses (owner_id) WHERE is_primary;
	`)
	if err != nil {
		return fmt.Errorf("create primary business index: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS connected_accounts (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			platform VARCHAR(20) NOT NULL,
			account_id VARCHAR(255) NOT NULL,
			account_name VARCHAR(255) DEFAULT '',
			access_token TEXT NOT NULL,
			refresh_token TEXT DEFAULT '',
			token_expires_at TIMESTAMPTZ,
			status VARCHAR(20) DEFAULT 'active',
			metadata JSONB DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (business_id, platform, account_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("create connected_accounts table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS agents (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			system_prompt TEXT DEFAULT '',
			ai_provider VARCHAR(20) DEFAULT 'anthropic',
			ai_model VARCHAR(100) DEFAULT 'claude-3-5-sonnet-20241022',
			temperature DOUBLE PRECISION DEFAULT 0.7,
			max_tokens INT DEFAULT 500,
			status VARCHAR(20) DEFAULT 'draft',
			goal TEXT DEFAULT '',
			tone VARCHAR(50) DEFAULT '',
			custom_instructions TEXT DEFAULT '',
			knowledge TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create agents table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			agent_id UUID NOT NULL REFERENCES agents(id),
			connected_account_id UUID NOT NULL REFERENCES connected_accounts(id),
			platform_conversation_id VARCHAR(255) NOT NULL,
			platform_user_id VARCHAR(255) NOT NULL,
			platform_user_name VARCHAR(255) DEFAULT '',
			status VARCHAR(20) DEFAULT 'active',
			message_count INT DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			last_message_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}

	// At most one open thread per customer per business. Concurrent webhook
	// deliveries for a brand-new customer both hit this index; the loser
	// re-selects the winner's row.
	_, err = p.Pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS conversations_one_active
		ON conversations (business_id, platform_user_id) WHERE status = 'active';
	`)
	if err != nil {
		return fmt.Errorf("create active conversation index: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			platform_message_id VARCHAR(255),
			metadata JSONB DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	// Dedup gate for provider webhook redelivery
	_, err = p.Pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS messages_platform_message_id
		ON messages (platform_message_id) WHERE platform_message_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("create message dedup index: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS daily_usage (
			business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			messages_in INT DEFAULT 0,
			messages_out INT DEFAULT 0,
			cost NUMERIC(12, 4) DEFAULT 0,
			PRIMARY KEY (business_id, date)
		);
	`)
	if err != nil {
		return fmt.Errorf("create daily_usage table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
