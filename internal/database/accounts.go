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
	"time"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func scanDecimal(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal value %q: %w", text, err)
	}
	return d, nil
}

// GetOrCreateAccount returns the checking account of (holder, unit),
// creating a zero-balance row when missing. Creation races resolve by
// re-reading the now-existing row.
func (s *Service) GetOrCreateAccount(ctx context.Context, holderPk, unitId string) (*models.CheckingAccount, error) {
	account, err := s.GetAccount(ctx, holderPk, unitId)
	if err == nil {
		return account, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, queryInsertAccount,
		uuid.New().String(), holderPk, unitId, "0", 1)
	if err != nil && !isUniqueViolation(err) {
		return nil, fmt.Errorf("unable to insert checking account: %w", err)
	}
	return s.GetAccount(ctx, holderPk, unitId)
}

func (s *Service) GetAccount(ctx context.Context, holderPk, unitId string) (*models.CheckingAccount, error) {
	return scanAccount(s.db.QueryRowContext(ctx, queryGetAccountByHolderUnit, holderPk, unitId))
}

func (s *Service) GetAccountById(ctx context.Context, id string) (*models.CheckingAccount, error) {
	return scanAccount(s.db.QueryRowContext(ctx, queryGetAccountById, id))
}

// GetAccountByIdTx reads an account inside an open transaction. Engines use
// this to re-read the authoritative balance before changing it.
func (s *Service) GetAccountByIdTx(ctx context.Context, tx *sql.Tx, id string) (*models.CheckingAccount, error) {
	return scanAccount(tx.QueryRowContext(ctx, queryGetAccountById, id))
}

func scanAccount(row *sql.Row) (*models.CheckingAccount, error) {
	var account models.CheckingAccount
	var amount string
	err := row.Scan(&account.Id, &account.HolderId, &account.UnitId,
		&amount, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read checking account: %w", err)
	}
	if account.Amount, err = scanDecimal(amount); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccountAmountTx writes a new balance guarded by the version the
// account was read at. A missed guard means another writer got there first;
// the caller retries the whole transaction.
func (s *Service) UpdateAccountAmountTx(ctx context.Context, tx *sql.Tx, account *models.CheckingAccount, newAmount decimal.Decimal) error {
	result, err := tx.ExecContext(ctx, queryUpdateAccountAmount,
		newAmount.String(), time.Now().UTC(), account.Id, account.Version)
	if err != nil {
		return fmt.Errorf("unable to update checking account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check update result: %w", err)
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	account.Amount = newAmount
	account.Version++
	return nil
}

// AccountFilters narrows ListAccounts. Zero values mean "no filter".
type AccountFilters struct {
	HolderId   string
	HolderType string
	UnitSymbol string
	Limit      int
	Offset     int
}

func (s *Service) ListAccounts(ctx context.Context, f AccountFilters) ([]models.AccountDetail, int, error) {
	where := newFilterBuilder()
	where.add("h.holder_id = ?", f.HolderId != "", f.HolderId)
	where.add("t.name = ?", f.HolderType != "", f.HolderType)
	where.add("u.symbol = ?", f.UnitSymbol != "", f.UnitSymbol)

	base := `
		FROM checking_accounts a
		JOIN holders h ON h.id = a.holder_id
		JOIN holder_types t ON t.id = h.holder_type_id
		JOIN currency_units u ON u.id = a.currency_unit_id` + where.clause()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+base, where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("unable to count accounts: %w", err)
	}

	query := `
		SELECT h.holder_id, t.name, u.symbol, a.amount, a.created_at` +
		base + `
		ORDER BY a.created_at DESC` + limitOffset(f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list accounts: %w", err)
	}
	defer rows.Close()

	var details []models.AccountDetail
	for rows.Next() {
		var detail models.AccountDetail
		var amount string
		if err := rows.Scan(&detail.HolderId, &detail.HolderType, &detail.UnitSymbol,
			&amount, &detail.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("unable to scan account: %w", err)
		}
		if detail.Amount, err = scanDecimal(amount); err != nil {
			return nil, 0, err
		}
		details = append(details, detail)
	}
	return details, count, rows.Err()
}

// GetAccountDetail is the single-account variant of ListAccounts.
func (s *Service) GetAccountDetail(ctx context.Context, holderId, holderType, unitSymbol string) (*models.AccountDetail, error) {
	details, _, err := s.ListAccounts(ctx, AccountFilters{
		HolderId:   holderId,
		HolderType: holderType,
		UnitSymbol: unitSymbol,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, errs.NotFound("Account not found")
	}
	return &details[0], nil
}
