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
	"errors"
	"fmt"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Service) CreateTransferRule(ctx context.Context, name, unitId string, enabled bool, feePercent, minFromAmount decimal.Decimal) (*models.TransferRule, error) {
	if feePercent.IsNegative() || feePercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errs.FieldValidation("fee_percent", "Fee percent must be between 0 and 100")
	}
	_, err := s.db.ExecContext(ctx, queryInsertTransferRule,
		uuid.New().String(), name, unitId, enabled, feePercent.String(), minFromAmount.String())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.FieldValidation("name", "Transfer rule already exists")
		}
		return nil, fmt.Errorf("unable to insert transfer rule: %w", err)
	}
	return s.GetTransferRuleByName(ctx, name)
}

func (s *Service) GetTransferRuleByName(ctx context.Context, name string) (*models.TransferRule, error) {
	var rule models.TransferRule
	var feePercent, minFromAmount string
	err := s.db.QueryRowContext(ctx, queryGetTransferRuleByName, name).
		Scan(&rule.Id, &rule.Name, &rule.UnitId, &rule.Enabled,
			&feePercent, &minFromAmount, &rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Transfer rule not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read transfer rule: %w", err)
	}
	if rule.FeePercent, err = scanDecimal(feePercent); err != nil {
		return nil, err
	}
	if rule.MinFromAmount, err = scanDecimal(minFromAmount); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Service) CreateExchangeRule(ctx context.Context, rule *models.ExchangeRule) (*models.ExchangeRule, error) {
	if !rule.ForwardRate.IsPositive() || !rule.ReverseRate.IsPositive() {
		return nil, errs.FieldValidation("rate", "Exchange rates must be positive")
	}
	if rule.FirstUnitId == rule.SecondUnitId {
		return nil, errs.FieldValidation("units", "Exchange rule units must differ")
	}
	_, err := s.db.ExecContext(ctx, queryInsertExchangeRule,
		uuid.New().String(), rule.Name, rule.FirstUnitId, rule.SecondUnitId,
		rule.ForwardRate.String(), rule.ReverseRate.String(),
		rule.MinFirstAmount.String(), rule.MinSecondAmount.String(),
		rule.EnabledForward, rule.EnabledReverse)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.FieldValidation("name", "Exchange rule already exists")
		}
		return nil, fmt.Errorf("unable to insert exchange rule: %w", err)
	}
	return s.GetExchangeRuleByName(ctx, rule.Name)
}

func (s *Service) GetExchangeRuleByName(ctx context.Context, name string) (*models.ExchangeRule, error) {
	var rule models.ExchangeRule
	var forwardRate, reverseRate, minFirst, minSecond string
	err := s.db.QueryRowContext(ctx, queryGetExchangeRuleByName, name).
		Scan(&rule.Id, &rule.Name, &rule.FirstUnitId, &rule.SecondUnitId,
			&forwardRate, &reverseRate, &minFirst, &minSecond,
			&rule.EnabledForward, &rule.EnabledReverse, &rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Exchange rule not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read exchange rule: %w", err)
	}
	if rule.ForwardRate, err = scanDecimal(forwardRate); err != nil {
		return nil, err
	}
	if rule.ReverseRate, err = scanDecimal(reverseRate); err != nil {
		return nil, err
	}
	if rule.MinFirstAmount, err = scanDecimal(minFirst); err != nil {
		return nil, err
	}
	if rule.MinSecondAmount, err = scanDecimal(minSecond); err != nil {
		return nil, err
	}
	return &rule, nil
}
