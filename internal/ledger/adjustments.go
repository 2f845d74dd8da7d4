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

	"gaming-billing-go/internal/common"
	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Validation messages shared by the engines.
const (
	msgInsufficientFunds = "Insufficient funds in the checking account"
	msgPrecisionExceeded = "The amount has more decimal places than the currency unit precision allows"
	msgAlreadyClosed     = "The transaction has already been closed"

	// Default status description for sweeps triggered manually.
	RejectedAsOutdated = "Rejected as outdated"
	// Status description used by the periodic sweeper.
	RejectedByCron = "Rejected by cron as outdated"
)

// AdjustmentsService credits or debits a single checking account through
// the PENDING -> CONFIRMED | REJECTED state machine. Debits reserve funds
// at create time; credits materialise at confirm time.
type AdjustmentsService struct {
	db *database.Service
}

func NewAdjustmentsService(db *database.Service) *AdjustmentsService {
	return &AdjustmentsService{db: db}
}

func (s *AdjustmentsService) Create(ctx context.Context, service *models.CurrencyService, account *models.CheckingAccount, amount decimal.Decimal, description string, autoReject time.Duration) (*models.AdjustmentTransaction, error) {
	if amount.IsZero() {
		return nil, errs.FieldValidation("amount", "The amount cannot be zero")
	}

	unit, err := s.db.GetUnitById(ctx, account.UnitId)
	if err != nil {
		return nil, err
	}
	if common.DecimalPlaces(amount) > unit.Precision {
		return nil, errs.FieldValidation("amount", msgPrecisionExceeded)
	}

	txUuid := uuid.New().String()
	err = s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			current, err := s.db.GetAccountByIdTx(ctx, tx, account.Id)
			if err != nil {
				return err
			}

			// Debits reserve funds immediately so a pending spend cannot
			// be spent twice.
			if amount.IsNegative() {
				absAmount := amount.Abs()
				if !unit.IsNegativeAllowed && current.Amount.LessThan(absAmount) {
					return errs.Validation(msgInsufficientFunds)
				}
				if err := s.db.UpdateAccountAmountTx(ctx, tx, current, current.Amount.Sub(absAmount)); err != nil {
					return err
				}
			}

			now := time.Now().UTC()
			return s.db.InsertAdjustmentTx(ctx, tx, &models.AdjustmentTransaction{
				Uuid:              txUuid,
				ServiceId:         service.Id,
				CheckingAccountId: account.Id,
				Amount:            amount,
				Description:       description,
				Status:            models.StatusPending,
				AutoRejectAfter:   now.Add(autoReject),
				CreatedAt:         now,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Adjustment transaction created",
		zap.String("uuid", txUuid),
		zap.String("service", service.Name),
		zap.String("account_id", account.Id),
		zap.String("amount", amount.String()))
	return s.db.GetAdjustment(ctx, txUuid)
}

func (s *AdjustmentsService) Confirm(ctx context.Context, txUuid, statusDescription string) (*models.AdjustmentTransaction, error) {
	err := s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			adj, err := s.db.GetAdjustmentTx(ctx, tx, txUuid)
			if err != nil {
				return err
			}
			if adj.Status != models.StatusPending {
				return errs.Validation(msgAlreadyClosed)
			}
			if err := s.db.CloseAdjustmentTx(ctx, tx, txUuid, models.StatusConfirmed, statusDescription, time.Now().UTC()); err != nil {
				return err
			}

			// Credits land only on confirm.
			if adj.Amount.IsPositive() {
				account, err := s.db.GetAccountByIdTx(ctx, tx, adj.CheckingAccountId)
				if err != nil {
					return err
				}
				if err := s.db.UpdateAccountAmountTx(ctx, tx, account, account.Amount.Add(adj.Amount)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Adjustment transaction confirmed", zap.String("uuid", txUuid))
	return s.db.GetAdjustment(ctx, txUuid)
}

func (s *AdjustmentsService) Reject(ctx context.Context, txUuid, statusDescription string) (*models.AdjustmentTransaction, error) {
	err := s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			adj, err := s.db.GetAdjustmentTx(ctx, tx, txUuid)
			if err != nil {
				return err
			}
			if adj.Status != models.StatusPending {
				return errs.Validation(msgAlreadyClosed)
			}
			if err := s.db.CloseAdjustmentTx(ctx, tx, txUuid, models.StatusRejected, statusDescription, time.Now().UTC()); err != nil {
				return err
			}

			// Return the funds reserved at create time.
			if adj.Amount.IsNegative() {
				account, err := s.db.GetAccountByIdTx(ctx, tx, adj.CheckingAccountId)
				if err != nil {
					return err
				}
				if err := s.db.UpdateAccountAmountTx(ctx, tx, account, account.Amount.Add(adj.Amount.Abs())); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Adjustment transaction rejected", zap.String("uuid", txUuid))
	return s.db.GetAdjustment(ctx, txUuid)
}

// RejectAllOutdated rejects every PENDING adjustment past its deadline.
// Per-row validation failures (e.g. a race against a concurrent confirm)
// are logged and skipped. Returns the UUIDs actually rejected.
func (s *AdjustmentsService) RejectAllOutdated(ctx context.Context, statusDescription string) ([]string, error) {
	if statusDescription == "" {
		statusDescription = RejectedAsOutdated
	}

	uuids, err := s.db.ListOutdatedAdjustments(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var rejected []string
	for _, txUuid := range uuids {
		if _, err := s.Reject(ctx, txUuid, statusDescription); err != nil {
			if errs.IsValidation(err) || errs.IsNotFound(err) {
				zap.L().Info("Skipping outdated adjustment transaction",
					zap.String("uuid", txUuid),
					zap.Error(err))
				continue
			}
			return rejected, err
		}
		rejected = append(rejected, txUuid)
	}
	return rejected, nil
}
