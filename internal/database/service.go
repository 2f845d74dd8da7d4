/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gaming-billing-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	dsn := cfg.Path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Tenants of the billing system
	CREATE TABLE IF NOT EXISTS currency_services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		permissions TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- HMAC credentials, one per service
	CREATE TABLE IF NOT EXISTS service_auth (
		id TEXT PRIMARY KEY,
		service_id TEXT NOT NULL UNIQUE REFERENCES currency_services(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		is_battlemetrics BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS holder_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS holders (
		id TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL,
		holder_type_id TEXT NOT NULL REFERENCES holder_types(id),
		enabled BOOLEAN NOT NULL DEFAULT 1,
		info TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(holder_id, holder_type_id)
	);
	CREATE INDEX IF NOT EXISTS idx_holders_holder_id ON holders(holder_id);

	CREATE TABLE IF NOT EXISTS currency_units (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		measurement TEXT NOT NULL,
		precision INTEGER NOT NULL DEFAULT 0,
		is_negative_allowed BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Amounts are stored as canonical decimal strings; all arithmetic and
	-- comparison happens in the application to avoid float loss.
	CREATE TABLE IF NOT EXISTS checking_accounts (
		id TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL REFERENCES holders(id),
		currency_unit_id TEXT NOT NULL REFERENCES currency_units(id),
		amount TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(holder_id, currency_unit_id)
	);
	CREATE INDEX IF NOT EXISTS idx_checking_accounts_holder ON checking_accounts(holder_id);

	CREATE TABLE IF NOT EXISTS transfer_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		currency_unit_id TEXT NOT NULL REFERENCES currency_units(id),
		enabled BOOLEAN NOT NULL DEFAULT 1,
		fee_percent TEXT NOT NULL DEFAULT '0',
		min_from_amount TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS exchange_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		first_unit_id TEXT NOT NULL REFERENCES currency_units(id),
		second_unit_id TEXT NOT NULL REFERENCES currency_units(id),
		forward_rate TEXT NOT NULL,
		reverse_rate TEXT NOT NULL,
		min_first_amount TEXT NOT NULL DEFAULT '0',
		min_second_amount TEXT NOT NULL DEFAULT '0',
		enabled_forward BOOLEAN NOT NULL DEFAULT 1,
		enabled_reverse BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS adjustment_transactions (
		uuid TEXT PRIMARY KEY,
		service_id TEXT NOT NULL REFERENCES currency_services(id),
		checking_account_id TEXT NOT NULL REFERENCES checking_accounts(id),
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		status_description TEXT NOT NULL DEFAULT '',
		auto_reject_after TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		closed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_adjustments_outdated ON adjustment_transactions(status, auto_reject_after);
	CREATE INDEX IF NOT EXISTS idx_adjustments_account ON adjustment_transactions(checking_account_id);
	CREATE INDEX IF NOT EXISTS idx_adjustments_created_at ON adjustment_transactions(created_at);

	CREATE TABLE IF NOT EXISTS transfer_transactions (
		uuid TEXT PRIMARY KEY,
		service_id TEXT NOT NULL REFERENCES currency_services(id),
		transfer_rule_id TEXT REFERENCES transfer_rules(id) ON DELETE SET NULL,
		from_account_id TEXT NOT NULL REFERENCES checking_accounts(id),
		to_account_id TEXT NOT NULL REFERENCES checking_accounts(id),
		from_amount TEXT NOT NULL,
		to_amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		status_description TEXT NOT NULL DEFAULT '',
		auto_reject_after TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		closed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_outdated ON transfer_transactions(status, auto_reject_after);
	CREATE INDEX IF NOT EXISTS idx_transfers_created_at ON transfer_transactions(created_at);

	CREATE TABLE IF NOT EXISTS exchange_transactions (
		uuid TEXT PRIMARY KEY,
		service_id TEXT NOT NULL REFERENCES currency_services(id),
		exchange_rule_id TEXT REFERENCES exchange_rules(id) ON DELETE SET NULL,
		from_account_id TEXT NOT NULL REFERENCES checking_accounts(id),
		to_account_id TEXT NOT NULL REFERENCES checking_accounts(id),
		from_amount TEXT NOT NULL,
		to_amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		status_description TEXT NOT NULL DEFAULT '',
		auto_reject_after TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		closed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_outdated ON exchange_transactions(status, auto_reject_after);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchange_transactions(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
