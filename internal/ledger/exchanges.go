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

// ExchangesService converts funds between two accounts of one holder in
// different currency units under an exchange rule. The forward direction
// (first unit -> second unit) divides by the forward rate; the reverse
// direction multiplies by the reverse rate. An exchange whose result does
// not fit the destination unit's precision is rejected, never rounded.
type ExchangesService struct {
	db *database.Service
}

func NewExchangesService(db *database.Service) *ExchangesService {
	return &ExchangesService{db: db}
}

func (s *ExchangesService) Create(ctx context.Context, service *models.CurrencyService, holder *models.Holder, rule *models.ExchangeRule, fromUnit, toUnit *models.CurrencyUnit, fromAmount decimal.Decimal, description string, autoReject time.Duration) (*models.ExchangeTransaction, error) {
	if fromUnit.Id != rule.FirstUnitId && fromUnit.Id != rule.SecondUnitId {
		return nil, errs.FieldValidation("from_unit", "from_unit is not in units")
	}
	if toUnit.Id != rule.FirstUnitId && toUnit.Id != rule.SecondUnitId {
		return nil, errs.FieldValidation("to_unit", "to_unit is not in units")
	}
	if fromUnit.Id == toUnit.Id {
		return nil, errs.Validation("from_unit and to_unit must be different")
	}

	forward := fromUnit.Id == rule.FirstUnitId
	if forward && !rule.EnabledForward {
		return nil, errs.Validation("Forward exchange is disabled")
	}
	if !forward && !rule.EnabledReverse {
		return nil, errs.Validation("Reverse exchange is disabled")
	}

	if common.DecimalPlaces(fromAmount) > fromUnit.Precision {
		return nil, errs.FieldValidation("from_amount", msgPrecisionExceeded)
	}

	minAmount := rule.MinFirstAmount
	if !forward {
		minAmount = rule.MinSecondAmount
	}
	if fromAmount.LessThan(minAmount) {
		return nil, errs.FieldValidation("from_amount", "The amount is less than the minimum exchange amount")
	}

	var toAmount decimal.Decimal
	if forward {
		// Division must be exact at the destination precision; a remainder
		// means the amount cannot be represented and the exchange fails.
		toAmount = fromAmount.DivRound(rule.ForwardRate, int32(toUnit.Precision))
		if !toAmount.Mul(rule.ForwardRate).Equal(fromAmount) {
			return nil, errs.FieldValidation("from_amount", "The exchanged amount does not fit the currency unit precision")
		}
	} else {
		toAmount = fromAmount.Mul(rule.ReverseRate)
		if common.DecimalPlaces(toAmount) > toUnit.Precision {
			return nil, errs.FieldValidation("from_amount", "The exchanged amount does not fit the currency unit precision")
		}
	}
	if !toAmount.IsPositive() {
		return nil, errs.FieldValidation("from_amount", "The exchanged amount must be positive")
	}

	fromAccount, err := s.db.GetAccount(ctx, holder.Id, fromUnit.Id)
	if err != nil {
		return nil, err
	}
	toAccount, err := s.db.GetAccount(ctx, holder.Id, toUnit.Id)
	if err != nil {
		return nil, err
	}

	txUuid := uuid.New().String()
	err = s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			source, err := s.db.GetAccountByIdTx(ctx, tx, fromAccount.Id)
			if err != nil {
				return err
			}
			if !fromUnit.IsNegativeAllowed && source.Amount.LessThan(fromAmount) {
				return errs.Validation("Insufficient funds in the 'from' checking account")
			}
			if err := s.db.UpdateAccountAmountTx(ctx, tx, source, source.Amount.Sub(fromAmount)); err != nil {
				return err
			}

			now := time.Now().UTC()
			return s.db.InsertExchangeTx(ctx, tx, &models.ExchangeTransaction{
				Uuid:            txUuid,
				ServiceId:       service.Id,
				ExchangeRuleId:  rule.Id,
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

	zap.L().Info("Exchange transaction created",
		zap.String("uuid", txUuid),
		zap.String("service", service.Name),
		zap.String("rule", rule.Name),
		zap.Bool("forward", forward),
		zap.String("from_amount", fromAmount.String()),
		zap.String("to_amount", toAmount.String()))
	return s.db.GetExchange(ctx, txUuid)
}

func (s *ExchangesService) Confirm(ctx context.Context, txUuid, statusDescription string) (*models.ExchangeTransaction, error) {
	err := s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			exchange, err := s.db.GetExchangeTx(ctx, tx, txUuid)
			if err != nil {
				return err
			}
			if exchange.Status != models.StatusPending {
				return errs.Validation(msgAlreadyClosed)
			}
			if err := s.db.CloseExchangeTx(ctx, tx, txUuid, models.StatusConfirmed, statusDescription, time.Now().UTC()); err != nil {
				return err
			}

			destination, err := s.db.GetAccountByIdTx(ctx, tx, exchange.ToAccountId)
			if err != nil {
				return err
			}
			return s.db.UpdateAccountAmountTx(ctx, tx, destination, destination.Amount.Add(exchange.ToAmount))
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Exchange transaction confirmed", zap.String("uuid", txUuid))
	return s.db.GetExchange(ctx, txUuid)
}

func (s *ExchangesService) Reject(ctx context.Context, txUuid, statusDescription string) (*models.ExchangeTransaction, error) {
	err := s.db.RetryOnConflict(ctx, database.DefaultRetries, func() error {
		return s.db.WithTx(ctx, func(tx *sql.Tx) error {
			exchange, err := s.db.GetExchangeTx(ctx, tx, txUuid)
			if err != nil {
				return err
			}
			if exchange.Status != models.StatusPending {
				return errs.Validation(msgAlreadyClosed)
			}
			if err := s.db.CloseExchangeTx(ctx, tx, txUuid, models.StatusRejected, statusDescription, time.Now().UTC()); err != nil {
				return err
			}

			source, err := s.db.GetAccountByIdTx(ctx, tx, exchange.FromAccountId)
			if err != nil {
				return err
			}
			return s.db.UpdateAccountAmountTx(ctx, tx, source, source.Amount.Add(exchange.FromAmount))
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Exchange transaction rejected", zap.String("uuid", txUuid))
	return s.db.GetExchange(ctx, txUuid)
}

func (s *ExchangesService) RejectAllOutdated(ctx context.Context, statusDescription string) ([]string, error) {
	if statusDescription == "" {
		statusDescription = RejectedAsOutdated
	}

	uuids, err := s.db.ListOutdatedExchanges(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var rejected []string
	for _, txUuid := range uuids {
		if _, err := s.Reject(ctx, txUuid, statusDescription); err != nil {
			if errs.IsValidation(err) || errs.IsNotFound(err) {
				zap.L().Info("Skipping outdated exchange transaction",
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
