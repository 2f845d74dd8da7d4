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
)

// Unit precision is capped at 4 fractional digits system-wide.
const MaxUnitPrecision = 4

func (s *Service) CreateCurrencyUnit(ctx context.Context, symbol, measurement string, precision int, isNegativeAllowed bool) (*models.CurrencyUnit, error) {
	if symbol == "" {
		return nil, errs.FieldValidation("symbol", "Symbol cannot be empty")
	}
	if precision < 0 || precision > MaxUnitPrecision {
		return nil, errs.FieldValidation("precision",
			fmt.Sprintf("Precision must be between 0 and %d", MaxUnitPrecision))
	}

	_, err := s.db.ExecContext(ctx, queryInsertUnit,
		uuid.New().String(), symbol, measurement, precision, isNegativeAllowed)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.FieldValidation("symbol", "Currency unit already exists")
		}
		return nil, fmt.Errorf("unable to insert currency unit: %w", err)
	}
	return s.GetUnitBySymbol(ctx, symbol)
}

func (s *Service) GetUnitBySymbol(ctx context.Context, symbol string) (*models.CurrencyUnit, error) {
	return scanUnit(s.db.QueryRowContext(ctx, queryGetUnitBySymbol, symbol))
}

func (s *Service) GetUnitById(ctx context.Context, id string) (*models.CurrencyUnit, error) {
	return scanUnit(s.db.QueryRowContext(ctx, queryGetUnitById, id))
}

func scanUnit(row *sql.Row) (*models.CurrencyUnit, error) {
	var unit models.CurrencyUnit
	err := row.Scan(&unit.Id, &unit.Symbol, &unit.Measurement, &unit.Precision,
		&unit.IsNegativeAllowed, &unit.CreatedAt, &unit.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Currency unit not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read currency unit: %w", err)
	}
	return &unit, nil
}

func (s *Service) ListUnits(ctx context.Context) ([]models.CurrencyUnit, error) {
	rows, err := s.db.QueryContext(ctx, queryListUnits)
	if err != nil {
		return nil, fmt.Errorf("unable to list currency units: %w", err)
	}
	defer rows.Close()

	var units []models.CurrencyUnit
	for rows.Next() {
		var unit models.CurrencyUnit
		if err := rows.Scan(&unit.Id, &unit.Symbol, &unit.Measurement, &unit.Precision,
			&unit.IsNegativeAllowed, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan currency unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}
