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

	"github.com/shopspring/decimal"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// TransactionFilters narrows transaction listings. Zero values mean
// "no filter". Amount comparisons and ordering use numeric affinity;
// stored values stay exact decimal text.
type TransactionFilters struct {
	Service         string
	Status          string
	HolderId        string
	UnitSymbol      string
	AmountMin       *decimal.Decimal
	AmountMax       *decimal.Decimal
	CreatedAtAfter  *time.Time
	CreatedAtBefore *time.Time
	ClosedAtAfter   *time.Time
	ClosedAtBefore  *time.Time
	Ordering        string
	Limit           int
	Offset          int
}

func (f TransactionFilters) applyCommon(where *filterBuilder) {
	where.add("s.name = ?", f.Service != "", f.Service)
	where.add("t.status = ?", f.Status != "", f.Status)
	if f.CreatedAtAfter != nil {
		where.add("t.created_at >= ?", true, *f.CreatedAtAfter)
	}
	if f.CreatedAtBefore != nil {
		where.add("t.created_at <= ?", true, *f.CreatedAtBefore)
	}
	if f.ClosedAtAfter != nil {
		where.add("t.closed_at >= ?", true, *f.ClosedAtAfter)
	}
	if f.ClosedAtBefore != nil {
		where.add("t.closed_at <= ?", true, *f.ClosedAtBefore)
	}
}

func orderClause(ordering string, columns map[string]string, fallback string) string {
	direction := "ASC"
	key := ordering
	if len(key) > 0 && key[0] == '-' {
		direction = "DESC"
		key = key[1:]
	}
	column, ok := columns[key]
	if !ok {
		return fallback
	}
	return "\n\t\tORDER BY " + column + " " + direction
}

// Adjustments

func (s *Service) InsertAdjustmentTx(ctx context.Context, tx *sql.Tx, adj *models.AdjustmentTransaction) error {
	var closedAt any
	if adj.ClosedAt != nil {
		closedAt = *adj.ClosedAt
	}
	_, err := tx.ExecContext(ctx, queryInsertAdjustment,
		adj.Uuid, adj.ServiceId, adj.CheckingAccountId, adj.Amount.String(), adj.Description,
		adj.Status, adj.StatusDescription, adj.AutoRejectAfter, adj.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("unable to insert adjustment transaction: %w", err)
	}
	return nil
}

func (s *Service) GetAdjustment(ctx context.Context, uuid string) (*models.AdjustmentTransaction, error) {
	return scanAdjustment(s.db.QueryRowContext(ctx, queryGetAdjustment, uuid))
}

func (s *Service) GetAdjustmentTx(ctx context.Context, tx *sql.Tx, uuid string) (*models.AdjustmentTransaction, error) {
	return scanAdjustment(tx.QueryRowContext(ctx, queryGetAdjustment, uuid))
}

func scanAdjustment(row rowScanner) (*models.AdjustmentTransaction, error) {
	var adj models.AdjustmentTransaction
	var amount string
	var closedAt sql.NullTime
	err := row.Scan(&adj.Uuid, &adj.ServiceId, &adj.ServiceName, &adj.CheckingAccountId,
		&adj.HolderId, &adj.UnitSymbol, &amount, &adj.Description, &adj.Status,
		&adj.StatusDescription, &adj.AutoRejectAfter, &adj.CreatedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read adjustment transaction: %w", err)
	}
	if adj.Amount, err = scanDecimal(amount); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		adj.ClosedAt = &closedAt.Time
	}
	return &adj, nil
}

// CloseAdjustmentTx moves a PENDING adjustment into a terminal status. The
// PENDING gate in the statement means a second close sees zero affected rows.
func (s *Service) CloseAdjustmentTx(ctx context.Context, tx *sql.Tx, uuid, status, statusDescription string, closedAt time.Time) error {
	return closeTransaction(ctx, tx, queryCloseAdjustment, uuid, status, statusDescription, closedAt)
}

func (s *Service) ListOutdatedAdjustments(ctx context.Context, now time.Time) ([]string, error) {
	return s.listUuids(ctx, queryListOutdatedAdjustments, now)
}

func (s *Service) ListAdjustments(ctx context.Context, f TransactionFilters) ([]models.AdjustmentTransaction, int, error) {
	where := newFilterBuilder()
	f.applyCommon(where)
	where.add("h.holder_id = ?", f.HolderId != "", f.HolderId)
	where.add("u.symbol = ?", f.UnitSymbol != "", f.UnitSymbol)
	if f.AmountMin != nil {
		where.add("CAST(t.amount AS REAL) >= ?", true, f.AmountMin.InexactFloat64())
	}
	if f.AmountMax != nil {
		where.add("CAST(t.amount AS REAL) <= ?", true, f.AmountMax.InexactFloat64())
	}

	base := `
		FROM adjustment_transactions t
		JOIN currency_services s ON s.id = t.service_id
		JOIN checking_accounts a ON a.id = t.checking_account_id
		JOIN holders h ON h.id = a.holder_id
		JOIN currency_units u ON u.id = a.currency_unit_id` + where.clause()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+base, where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("unable to count adjustment transactions: %w", err)
	}

	order := orderClause(f.Ordering, map[string]string{
		"created_at": "t.created_at",
		"closed_at":  "t.closed_at",
		"amount":     "CAST(t.amount AS REAL)",
	}, "\n\t\tORDER BY t.created_at DESC")

	query := `
		SELECT t.uuid, t.service_id, s.name, t.checking_account_id, h.holder_id, u.symbol,
		       t.amount, t.description, t.status, t.status_description,
		       t.auto_reject_after, t.created_at, t.closed_at` +
		base + order + limitOffset(f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list adjustment transactions: %w", err)
	}
	defer rows.Close()

	var adjustments []models.AdjustmentTransaction
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, 0, err
		}
		adjustments = append(adjustments, *adj)
	}
	return adjustments, count, rows.Err()
}

// Transfers

func (s *Service) InsertTransferTx(ctx context.Context, tx *sql.Tx, transfer *models.TransferTransaction) error {
	var closedAt any
	if transfer.ClosedAt != nil {
		closedAt = *transfer.ClosedAt
	}
	_, err := tx.ExecContext(ctx, queryInsertTransfer,
		transfer.Uuid, transfer.ServiceId, transfer.TransferRuleId,
		transfer.FromAccountId, transfer.ToAccountId,
		transfer.FromAmount.String(), transfer.ToAmount.String(), transfer.Description,
		transfer.Status, transfer.StatusDesc, transfer.AutoRejectAfter, transfer.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("unable to insert transfer transaction: %w", err)
	}
	return nil
}

func (s *Service) GetTransfer(ctx context.Context, uuid string) (*models.TransferTransaction, error) {
	return scanTransfer(s.db.QueryRowContext(ctx, queryGetTransfer, uuid))
}

func (s *Service) GetTransferTx(ctx context.Context, tx *sql.Tx, uuid string) (*models.TransferTransaction, error) {
	return scanTransfer(tx.QueryRowContext(ctx, queryGetTransfer, uuid))
}

func scanTransfer(row rowScanner) (*models.TransferTransaction, error) {
	var transfer models.TransferTransaction
	var fromAmount, toAmount string
	var ruleId, ruleName sql.NullString
	var closedAt sql.NullTime
	err := row.Scan(&transfer.Uuid, &transfer.ServiceId, &transfer.ServiceName, &ruleId, &ruleName,
		&transfer.FromAccountId, &transfer.ToAccountId,
		&transfer.FromHolderId, &transfer.ToHolderId, &transfer.UnitSymbol,
		&fromAmount, &toAmount, &transfer.Description, &transfer.Status, &transfer.StatusDesc,
		&transfer.AutoRejectAfter, &transfer.CreatedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read transfer transaction: %w", err)
	}
	transfer.TransferRuleId = ruleId.String
	if ruleName.Valid {
		transfer.TransferRuleName = &ruleName.String
	}
	if transfer.FromAmount, err = scanDecimal(fromAmount); err != nil {
		return nil, err
	}
	if transfer.ToAmount, err = scanDecimal(toAmount); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		transfer.ClosedAt = &closedAt.Time
	}
	return &transfer, nil
}

func (s *Service) CloseTransferTx(ctx context.Context, tx *sql.Tx, uuid, status, statusDescription string, closedAt time.Time) error {
	return closeTransaction(ctx, tx, queryCloseTransfer, uuid, status, statusDescription, closedAt)
}

func (s *Service) ListOutdatedTransfers(ctx context.Context, now time.Time) ([]string, error) {
	return s.listUuids(ctx, queryListOutdatedTransfers, now)
}

func (s *Service) ListTransfers(ctx context.Context, f TransactionFilters) ([]models.TransferTransaction, int, error) {
	where := newFilterBuilder()
	f.applyCommon(where)
	if f.HolderId != "" {
		where.addCond("(fh.holder_id = ? OR th.holder_id = ?)", f.HolderId, f.HolderId)
	}
	where.add("u.symbol = ?", f.UnitSymbol != "", f.UnitSymbol)
	if f.AmountMin != nil {
		where.add("CAST(t.from_amount AS REAL) >= ?", true, f.AmountMin.InexactFloat64())
	}
	if f.AmountMax != nil {
		where.add("CAST(t.from_amount AS REAL) <= ?", true, f.AmountMax.InexactFloat64())
	}

	base := `
		FROM transfer_transactions t
		JOIN currency_services s ON s.id = t.service_id
		LEFT JOIN transfer_rules r ON r.id = t.transfer_rule_id
		JOIN checking_accounts fa ON fa.id = t.from_account_id
		JOIN checking_accounts ta ON ta.id = t.to_account_id
		JOIN currency_units u ON u.id = fa.currency_unit_id
		JOIN holders fh ON fh.id = fa.holder_id
		JOIN holders th ON th.id = ta.holder_id` + where.clause()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+base, where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("unable to count transfer transactions: %w", err)
	}

	order := orderClause(f.Ordering, map[string]string{
		"created_at": "t.created_at",
		"closed_at":  "t.closed_at",
		"amount":     "CAST(t.from_amount AS REAL)",
	}, "\n\t\tORDER BY t.created_at DESC")

	query := `
		SELECT t.uuid, t.service_id, s.name, t.transfer_rule_id, r.name,
		       t.from_account_id, t.to_account_id, fh.holder_id, th.holder_id, u.symbol,
		       t.from_amount, t.to_amount, t.description, t.status, t.status_description,
		       t.auto_reject_after, t.created_at, t.closed_at` +
		base + order + limitOffset(f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list transfer transactions: %w", err)
	}
	defer rows.Close()

	var transfers []models.TransferTransaction
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		transfers = append(transfers, *transfer)
	}
	return transfers, count, rows.Err()
}

// Exchanges

func (s *Service) InsertExchangeTx(ctx context.Context, tx *sql.Tx, exchange *models.ExchangeTransaction) error {
	var closedAt any
	if exchange.ClosedAt != nil {
		closedAt = *exchange.ClosedAt
	}
	_, err := tx.ExecContext(ctx, queryInsertExchange,
		exchange.Uuid, exchange.ServiceId, exchange.ExchangeRuleId,
		exchange.FromAccountId, exchange.ToAccountId,
		exchange.FromAmount.String(), exchange.ToAmount.String(), exchange.Description,
		exchange.Status, exchange.StatusDesc, exchange.AutoRejectAfter, exchange.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("unable to insert exchange transaction: %w", err)
	}
	return nil
}

func (s *Service) GetExchange(ctx context.Context, uuid string) (*models.ExchangeTransaction, error) {
	return scanExchange(s.db.QueryRowContext(ctx, queryGetExchange, uuid))
}

func (s *Service) GetExchangeTx(ctx context.Context, tx *sql.Tx, uuid string) (*models.ExchangeTransaction, error) {
	return scanExchange(tx.QueryRowContext(ctx, queryGetExchange, uuid))
}

func scanExchange(row rowScanner) (*models.ExchangeTransaction, error) {
	var exchange models.ExchangeTransaction
	var fromAmount, toAmount string
	var ruleId, ruleName sql.NullString
	var closedAt sql.NullTime
	err := row.Scan(&exchange.Uuid, &exchange.ServiceId, &exchange.ServiceName, &ruleId, &ruleName,
		&exchange.FromAccountId, &exchange.ToAccountId, &exchange.HolderId,
		&exchange.FromUnitSymbol, &exchange.ToUnitSymbol,
		&fromAmount, &toAmount, &exchange.Description, &exchange.Status, &exchange.StatusDesc,
		&exchange.AutoRejectAfter, &exchange.CreatedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read exchange transaction: %w", err)
	}
	exchange.ExchangeRuleId = ruleId.String
	if ruleName.Valid {
		exchange.ExchangeRuleName = &ruleName.String
	}
	if exchange.FromAmount, err = scanDecimal(fromAmount); err != nil {
		return nil, err
	}
	if exchange.ToAmount, err = scanDecimal(toAmount); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		exchange.ClosedAt = &closedAt.Time
	}
	return &exchange, nil
}

func (s *Service) CloseExchangeTx(ctx context.Context, tx *sql.Tx, uuid, status, statusDescription string, closedAt time.Time) error {
	return closeTransaction(ctx, tx, queryCloseExchange, uuid, status, statusDescription, closedAt)
}

func (s *Service) ListOutdatedExchanges(ctx context.Context, now time.Time) ([]string, error) {
	return s.listUuids(ctx, queryListOutdatedExchanges, now)
}

func (s *Service) ListExchanges(ctx context.Context, f TransactionFilters) ([]models.ExchangeTransaction, int, error) {
	where := newFilterBuilder()
	f.applyCommon(where)
	where.add("h.holder_id = ?", f.HolderId != "", f.HolderId)
	if f.UnitSymbol != "" {
		where.addCond("(fu.symbol = ? OR tu.symbol = ?)", f.UnitSymbol, f.UnitSymbol)
	}
	if f.AmountMin != nil {
		where.add("CAST(t.from_amount AS REAL) >= ?", true, f.AmountMin.InexactFloat64())
	}
	if f.AmountMax != nil {
		where.add("CAST(t.from_amount AS REAL) <= ?", true, f.AmountMax.InexactFloat64())
	}

	base := `
		FROM exchange_transactions t
		JOIN currency_services s ON s.id = t.service_id
		LEFT JOIN exchange_rules r ON r.id = t.exchange_rule_id
		JOIN checking_accounts fa ON fa.id = t.from_account_id
		JOIN checking_accounts ta ON ta.id = t.to_account_id
		JOIN holders h ON h.id = fa.holder_id
		JOIN currency_units fu ON fu.id = fa.currency_unit_id
		JOIN currency_units tu ON tu.id = ta.currency_unit_id` + where.clause()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+base, where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("unable to count exchange transactions: %w", err)
	}

	order := orderClause(f.Ordering, map[string]string{
		"created_at": "t.created_at",
		"closed_at":  "t.closed_at",
		"amount":     "CAST(t.from_amount AS REAL)",
	}, "\n\t\tORDER BY t.created_at DESC")

	query := `
		SELECT t.uuid, t.service_id, s.name, t.exchange_rule_id, r.name,
		       t.from_account_id, t.to_account_id, h.holder_id, fu.symbol, tu.symbol,
		       t.from_amount, t.to_amount, t.description, t.status, t.status_description,
		       t.auto_reject_after, t.created_at, t.closed_at` +
		base + order + limitOffset(f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list exchange transactions: %w", err)
	}
	defer rows.Close()

	var exchanges []models.ExchangeTransaction
	for rows.Next() {
		exchange, err := scanExchange(rows)
		if err != nil {
			return nil, 0, err
		}
		exchanges = append(exchanges, *exchange)
	}
	return exchanges, count, rows.Err()
}

// Shared helpers

func closeTransaction(ctx context.Context, tx *sql.Tx, query, uuid, status, statusDescription string, closedAt time.Time) error {
	result, err := tx.ExecContext(ctx, query, status, statusDescription, closedAt, uuid)
	if err != nil {
		return fmt.Errorf("unable to close transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check close result: %w", err)
	}
	if affected == 0 {
		return errs.Validation("The transaction has already been closed")
	}
	return nil
}

func (s *Service) listUuids(ctx context.Context, query string, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("unable to list outdated transactions: %w", err)
	}
	defer rows.Close()

	var uuids []string
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, fmt.Errorf("unable to scan uuid: %w", err)
		}
		uuids = append(uuids, uuid)
	}
	return uuids, rows.Err()
}

// Collapse support

// CollectOldConfirmedTotalsTx sums, per checking account, the net effect of
// every CONFIRMED transaction of the service created before cutoff. Summing
// happens here instead of SQL because amounts are stored as decimal text.
func (s *Service) CollectOldConfirmedTotalsTx(ctx context.Context, tx *sql.Tx, serviceId string, cutoff time.Time) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal)

	if err := func() error {
		rows, err := tx.QueryContext(ctx, queryOldConfirmedAdjustments, serviceId, cutoff)
		if err != nil {
			return fmt.Errorf("unable to read old adjustments: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var accountId, amountText string
			if err := rows.Scan(&accountId, &amountText); err != nil {
				return fmt.Errorf("unable to scan old adjustment: %w", err)
			}
			amount, err := scanDecimal(amountText)
			if err != nil {
				return err
			}
			totals[accountId] = totals[accountId].Add(amount)
		}
		return rows.Err()
	}(); err != nil {
		return nil, err
	}

	for _, query := range []string{queryOldConfirmedTransfers, queryOldConfirmedExchanges} {
		if err := func() error {
			rows, err := tx.QueryContext(ctx, query, serviceId, cutoff)
			if err != nil {
				return fmt.Errorf("unable to read old transactions: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var fromId, toId, fromText, toText string
				if err := rows.Scan(&fromId, &toId, &fromText, &toText); err != nil {
					return fmt.Errorf("unable to scan old transaction: %w", err)
				}
				fromAmount, err := scanDecimal(fromText)
				if err != nil {
					return err
				}
				toAmount, err := scanDecimal(toText)
				if err != nil {
					return err
				}
				totals[fromId] = totals[fromId].Sub(fromAmount)
				totals[toId] = totals[toId].Add(toAmount)
			}
			return rows.Err()
		}(); err != nil {
			return nil, err
		}
	}

	return totals, nil
}

// DeleteOldClosedTx removes every non-PENDING transaction of the service
// created before cutoff, across all three kinds.
func (s *Service) DeleteOldClosedTx(ctx context.Context, tx *sql.Tx, serviceId string, cutoff time.Time) error {
	for _, query := range []string{queryDeleteOldAdjustments, queryDeleteOldTransfers, queryDeleteOldExchanges} {
		if _, err := tx.ExecContext(ctx, query, serviceId, cutoff); err != nil {
			return fmt.Errorf("unable to delete old transactions: %w", err)
		}
	}
	return nil
}
