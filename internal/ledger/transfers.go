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

var oneHundred = decimal.NewFromInt(100)

// TransfersService moves funds between two accounts of the same currency
// unit under a transfer rule. The rule's fee is retained by the system:
// toAmount = floor(fromAmount * (100 - feePercent) / 100, precision).
type TransfersService struct {
	db *database.Service
}

func NewTransfersService(db *database.Service) *TransfersService {
	return &TransfersService{db: db}
}

func (s *TransfersService) Create(ctx context.Context, service *models.CurrencyService, rule *models.TransferRule, fromAccount, toAccount *models.CheckingAccount, fromAmount decimal.Decimal, description string, autoReject time.Duration) (*models.TransferTransaction, error) {
	if !rule.Enabled {
		return nil, errs.Validation("Transfer rule is disabled")
	}
	if rule.UnitId != fromAccount.UnitId || rule.UnitId != toAccount.UnitId {
		return nil, errs.Validation("Transfer with different currency units")
	}
	if fromAccount.Id == toAccount.Id {
		return nil, errs.Validation("Transfer to between the same account")
	}
	if fromAmount.LessThan(rule.MinFromAmount) {
		return nil, errs.FieldValidation("amount", "The amount is less than the minimum transfer amount")
	}

	unit, err := s.db.GetUnitById(ctx, rule.UnitId)
	if err != nil {
		return nil, err
	}
	if common.DecimalPlaces(fromAmount) > unit.Precision {
		return nil, errs.FieldValidation("amount", msgPrecisionExceeded)
	}

	toAmount := fromAmount.Mul(oneHundred.Sub(rule.FeePercent)).
		Div(oneHundred).
		RoundDown(int32(unit.Precision))
	if !toAmount.IsPositive() {
		return nil, errs.FieldValidation("amount", "The amount after the fee must be positive")
	}

	txUuid := uuid.New().String()
	err = s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			source, err := s.db.GetAccountByIdTx(ctx, tx, fromAccount.Id)
			if err != nil {
				return err
			}
			if !unit.IsNegativeAllowed && source.Amount.LessThan(fromAmount) {
				return errs.Validation(msgInsufficientFunds)
			}
			if err := s.db.UpdateAccountAmountTx(ctx, tx, source, source.Amount.Sub(fromAmount)); err != nil {
				return err
			}

			now := time.Now().UTC()
			return s.db.InsertTransferTx(ctx, tx, &models.TransferTransaction{
				Uuid:            txUuid,
				ServiceId:       service.Id,
				TransferRuleId:  rule.Id,
				FromAccountId:   fromAccount.Id,
				ToAccountId:     toAccount.Id,
				FromAmount:      fromAmount,
				ToAmount:        toAmount,
				Description:     description,
				Status:          models.StatusPending,
				AutoRejectAfter: now.Add(autoReject),
				CreatedAt:       now,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transfer transaction created",
		zap.String("uuid", txUuid),
		zap.String("service", service.Name),
		zap.String("rule", rule.Name),
		zap.String("from_amount", fromAmount.String()),
		zap.String("to_amount", toAmount.String()))
	return s.db.GetTransfer(ctx, txUuid)
}

func (s *TransfersService) Confirm(ctx context.Context, txUuid, statusDescription string) (*models.TransferTransaction, error) {
	err := s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			transfer, err := s.db.GetTransferTx(ctx, tx, txUuid)
			if err != nil {
				return err
			}
			if transfer.Status != models.StatusPending {
				return errs.Validation(msgAlreadyClosed)
			}
			if err := s.db.CloseTransferTx(ctx, tx, txUuid, models.StatusConfirmed, statusDescription, time.Now().UTC()); err != nil {
				return err
			}

			destination, err := s.db.GetAccountByIdTx(ctx, tx, transfer.ToAccountId)
			if err != nil {
				return err
			}
			return s.db.UpdateAccountAmountTx(ctx, tx, destination, destination.Amount.Add(transfer.ToAmount))
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transfer transaction confirmed", zap.String("uuid", txUuid))
	return s.db.GetTransfer(ctx, txUuid)
}

func (s *TransfersService) Reject(ctx context.Context, txUuid, statusDescription string) (*models.TransferTransaction, error) {
	err := s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			transfer, err := s.db.GetTransferTx(ctx, tx, txUuid)
			if err != nil {
				return err
			}
			if transfer.Status != models.StatusPending {
				return errs.Validation(msgAlreadyClosed)
			}
			if err := s.db.CloseTransferTx(ctx, tx, txUuid, models.StatusRejected, statusDescription, time.Now().UTC()); err != nil {
				return err
			}

			source, err := s.db.GetAccountByIdTx(ctx, tx, transfer.FromAccountId)
			if err != nil {
				return err
			}
			return s.db.UpdateAccountAmountTx(ctx, tx, source, source.Amount.Add(transfer.FromAmount))
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transfer transaction rejected", zap.String("uuid", txUuid))
	return s.db.GetTransfer(ctx, txUuid)
}

func (s *TransfersService) RejectAllOutdated(ctx context.Context, statusDescription string) ([]string, error) {
	if statusDescription == "" {
		statusDescription = RejectedAsOutdated
	}

	uuids, err := s.db.ListOutdatedTransfers(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var rejected []string
	for _, txUuid := range uuids {
		if _, err := s.Reject(ctx, txUuid, statusDescription); err != nil {
			if errs.IsValidation(err) || errs.IsNotFound(err) {
				zap.L().Info("Skipping outdated transfer transaction",
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
