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

package ledger

import (
	"context"
	"database/sql"
	"time"

	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	collapsedDescription       = "The amount of old collapsed transactions"
	collapsedStatusDescription = "Confirmed without real change amount in checking account"
)

// TransactionsService holds cross-engine maintenance operations.
type TransactionsService struct {
	db *database.Service
}

func NewTransactionsService(db *database.Service) *TransactionsService {
	return &TransactionsService{db: db}
}

// CollapseOldTransactions compacts the confirmed history of each named
// service: transactions older than the cutoff are replaced by one summary
// adjustment per account carrying their net amount. Account balances are
// unchanged by construction. Each service is collapsed in its own
// transaction with an extended retry budget.
func (s *TransactionsService) CollapseOldTransactions(ctx context.Context, olderThan time.Duration, serviceNames []string) error {
	now := time.Now().UTC()
	cutoff := now.Add(-olderThan)

	for _, name := range serviceNames {
		service, err := s.db.GetServiceByName(ctx, name)
		if err != nil {
			if errs.IsNotFound(err) {
				zap.L().Warn("Skipping unknown service in collapse", zap.String("service", name))
				continue
			}
			return err
		}

		err = s.db.RetryOnConflict(ctx, database.CollapseRetries, func() error {
			return s.db.WithTx(ctx, func(tx *sql.Tx) error {
				totals, err := s.db.CollectOldConfirmedTotalsTx(ctx, tx, service.Id, cutoff)
				if err != nil {
					return err
				}
				if err := s.db.DeleteOldClosedTx(ctx, tx, service.Id, cutoff); err != nil {
					return err
				}

				closedAt := now
				for accountId, total := range totals {
					summary := &models.AdjustmentTransaction{
						Uuid:              uuid.New().String(),
						ServiceId:         service.Id,
						CheckingAccountId: accountId,
						Amount:            total,
						Description:       collapsedDescription,
						Status:            models.StatusConfirmed,
						StatusDescription: collapsedStatusDescription,
						AutoRejectAfter:   now,
						CreatedAt:         cutoff,
						ClosedAt:          &closedAt,
					}
					if err := s.db.InsertAdjustmentTx(ctx, tx, summary); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if err != nil {
			return err
		}

		zap.L().Info("Collapsed old transactions",
			zap.String("service", name),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
