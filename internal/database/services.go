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
	"encoding/json"
	"errors"
	"fmt"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateService registers a currency service together with its HMAC
// credentials. Permissions must be a valid JSON document.
func (s *Service) CreateService(ctx context.Context, name string, enabled bool, permissions json.RawMessage, key string, isBattlemetrics bool) (*models.CurrencyService, error) {
	if name == "" {
		return nil, errs.FieldValidation("name", "Service name cannot be empty")
	}
	if len(permissions) == 0 {
		permissions = json.RawMessage(`{}`)
	}
	if !json.Valid(permissions) {
		return nil, errs.FieldValidation("permissions", "Permissions must be valid JSON")
	}

	id := uuid.New().String()
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryInsertService, id, name, enabled, string(permissions)); err != nil {
			return fmt.Errorf("unable to insert service: %w", err)
		}
		if _, err := tx.ExecContext(ctx, queryInsertServiceAuth, uuid.New().String(), id, key, isBattlemetrics); err != nil {
			return fmt.Errorf("unable to insert service auth: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Currency service created",
		zap.String("id", id),
		zap.String("name", name),
		zap.Bool("enabled", enabled))
	return s.GetServiceByName(ctx, name)
}

func (s *Service) GetServiceByName(ctx context.Context, name string) (*models.CurrencyService, error) {
	return s.scanService(s.db.QueryRowContext(ctx, queryGetServiceByName, name))
}

func (s *Service) GetServiceById(ctx context.Context, id string) (*models.CurrencyService, error) {
	return s.scanService(s.db.QueryRowContext(ctx, queryGetServiceById, id))
}

func (s *Service) scanService(row *sql.Row) (*models.CurrencyService, error) {
	var svc models.CurrencyService
	var permissions string
	err := row.Scan(&svc.Id, &svc.Name, &svc.Enabled, &permissions, &svc.CreatedAt, &svc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Service not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read service: %w", err)
	}
	svc.Permissions = json.RawMessage(permissions)
	return &svc, nil
}

// GetServiceAuth resolves the HMAC credentials of a service by service name.
func (s *Service) GetServiceAuth(ctx context.Context, serviceName string) (*models.ServiceAuth, error) {
	var auth models.ServiceAuth
	err := s.db.QueryRowContext(ctx, queryGetServiceAuth, serviceName).
		Scan(&auth.Id, &auth.ServiceId, &auth.Key, &auth.IsBattlemetrics, &auth.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Service not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read service auth: %w", err)
	}
	return &auth, nil
}
