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

const (
	// Service queries
	queryInsertService = `
		INSERT INTO currency_services (id, name, enabled, permissions)
		VALUES (?, ?, ?, ?)`

	queryGetServiceByName = `
		SELECT id, name, enabled, permissions, created_at, updated_at
		FROM currency_services
		WHERE name = ?`

	queryGetServiceById = `
		SELECT id, name, enabled, permissions, created_at, updated_at
		FROM currency_services
		WHERE id = ?`

	queryInsertServiceAuth = `
		INSERT INTO service_auth (id, service_id, key, is_battlemetrics)
		VALUES (?, ?, ?, ?)`

	queryGetServiceAuth = `
		SELECT a.id, a.service_id, a.key, a.is_battlemetrics, a.created_at
		FROM service_auth a
		JOIN currency_services s ON s.id = a.service_id
		WHERE s.name = ?`

	// Holder type queries
	queryInsertHolderType = `
		INSERT INTO holder_types (id, name) VALUES (?, ?)`

	queryGetHolderTypeByName = `
		SELECT id, name, created_at, updated_at
		FROM holder_types
		WHERE name = ?`

	// Holder queries
	queryInsertHolder = `
		INSERT INTO holders (id, holder_id, holder_type_id, enabled, info)
		VALUES (?, ?, ?, ?, ?)`

	queryGetHolder = `
		SELECT h.id, h.holder_id, h.holder_type_id, t.name, h.enabled, h.info, h.created_at, h.updated_at
		FROM holders h
		JOIN holder_types t ON t.id = h.holder_type_id
		WHERE h.holder_id = ? AND t.name = ?`

	queryUpdateHolder = `
		UPDATE holders
		SET enabled = ?, info = ?, updated_at = ?
		WHERE id = ?`

	// Currency unit queries
	queryInsertUnit = `
		INSERT INTO currency_units (id, symbol, measurement, precision, is_negative_allowed)
		VALUES (?, ?, ?, ?, ?)`

	queryGetUnitBySymbol = `
		SELECT id, symbol, measurement, precision, is_negative_allowed, created_at, updated_at
		FROM currency_units
		WHERE symbol = ?`

	queryGetUnitById = `
		SELECT id, symbol, measurement, precision, is_negative_allowed, created_at, updated_at
		FROM currency_units
		WHERE id = ?`

	queryListUnits = `
		SELECT id, symbol, measurement, precision, is_negative_allowed, created_at, updated_at
		FROM currency_units
		ORDER BY symbol`

	// Checking account queries
	queryInsertAccount = `
		INSERT INTO checking_accounts (id, holder_id, currency_unit_id, amount, version)
		VALUES (?, ?, ?, ?, ?)`

	queryGetAccountByHolderUnit = `
		SELECT id, holder_id, currency_unit_id, amount, version, created_at, updated_at
		FROM checking_accounts
		WHERE holder_id = ? AND currency_unit_id = ?`

	queryGetAccountById = `
		SELECT id, holder_id, currency_unit_id, amount, version, created_at, updated_at
		FROM checking_accounts
		WHERE id = ?`

	queryUpdateAccountAmount = `
		UPDATE checking_accounts
		SET amount = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Transfer rule queries
	queryInsertTransferRule = `
		INSERT INTO transfer_rules (id, name, currency_unit_id, enabled, fee_percent, min_from_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransferRuleByName = `
		SELECT id, name, currency_unit_id, enabled, fee_percent, min_from_amount, created_at, updated_at
		FROM transfer_rules
		WHERE name = ?`

	// Exchange rule queries
	queryInsertExchangeRule = `
		INSERT INTO exchange_rules (
			id, name, first_unit_id, second_unit_id, forward_rate, reverse_rate,
			min_first_amount, min_second_amount, enabled_forward, enabled_reverse
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetExchangeRuleByName = `
		SELECT id, name, first_unit_id, second_unit_id, forward_rate, reverse_rate,
		       min_first_amount, min_second_amount, enabled_forward, enabled_reverse,
		       created_at, updated_at
		FROM exchange_rules
		WHERE name = ?`

	// Adjustment transaction queries
	queryInsertAdjustment = `
		INSERT INTO adjustment_transactions (
			uuid, service_id, checking_account_id, amount, description,
			status, status_description, auto_reject_after, created_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAdjustment = `
		SELECT t.uuid, t.service_id, s.name, t.checking_account_id, h.holder_id, u.symbol,
		       t.amount, t.description, t.status, t.status_description,
		       t.auto_reject_after, t.created_at, t.closed_at
		FROM adjustment_transactions t
		JOIN currency_services s ON s.id = t.service_id
		JOIN checking_accounts a ON a.id = t.checking_account_id
		JOIN holders h ON h.id = a.holder_id
		JOIN currency_units u ON u.id = a.currency_unit_id
		WHERE t.uuid = ?`

	queryCloseAdjustment = `
		UPDATE adjustment_transactions
		SET status = ?, status_description = ?, closed_at = ?
		WHERE uuid = ? AND status = 'PENDING'`

	queryListOutdatedAdjustments = `
		SELECT uuid FROM adjustment_transactions
		WHERE status = 'PENDING' AND auto_reject_after < ?
		ORDER BY auto_reject_after`

	// Transfer transaction queries
	queryInsertTransfer = `
		INSERT INTO transfer_transactions (
			uuid, service_id, transfer_rule_id, from_account_id, to_account_id,
			from_amount, to_amount, description, status, status_description,
			auto_reject_after, created_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransfer = `
		SELECT t.uuid, t.service_id, s.name, t.transfer_rule_id, r.name,
		       t.from_account_id, t.to_account_id, fh.holder_id, th.holder_id, u.symbol,
		       t.from_amount, t.to_amount, t.description, t.status, t.status_description,
		       t.auto_reject_after, t.created_at, t.closed_at
		FROM transfer_transactions t
		JOIN currency_services s ON s.id = t.service_id
		LEFT JOIN transfer_rules r ON r.id = t.transfer_rule_id
		JOIN checking_accounts fa ON fa.id = t.from_account_id
		JOIN checking_accounts ta ON ta.id = t.to_account_id
		JOIN currency_units u ON u.id = fa.currency_unit_id
		JOIN holders fh ON fh.id = fa.holder_id
		JOIN holders th ON th.id = ta.holder_id
		WHERE t.uuid = ?`

	queryCloseTransfer = `
		UPDATE transfer_transactions
		SET status = ?, status_description = ?, closed_at = ?
		WHERE uuid = ? AND status = 'PENDING'`

	queryListOutdatedTransfers = `
		SELECT uuid FROM transfer_transactions
		WHERE status = 'PENDING' AND auto_reject_after < ?
		ORDER BY auto_reject_after`

	// Exchange transaction queries
	queryInsertExchange = `
		INSERT INTO exchange_transactions (
			uuid, service_id, exchange_rule_id, from_account_id, to_account_id,
			from_amount, to_amount, description, status, status_description,
			auto_reject_after, created_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetExchange = `
		SELECT t.uuid, t.service_id, s.name, t.exchange_rule_id, r.name,
		       t.from_account_id, t.to_account_id, h.holder_id, fu.symbol, tu.symbol,
		       t.from_amount, t.to_amount, t.description, t.status, t.status_description,
		       t.auto_reject_after, t.created_at, t.closed_at
		FROM exchange_transactions t
		JOIN currency_services s ON s.id = t.service_id
		LEFT JOIN exchange_rules r ON r.id = t.exchange_rule_id
		JOIN checking_accounts fa ON fa.id = t.from_account_id
		JOIN checking_accounts ta ON ta.id = t.to_account_id
		JOIN holders h ON h.id = fa.holder_id
		JOIN currency_units fu ON fu.id = fa.currency_unit_id
		JOIN currency_units tu ON tu.id = ta.currency_unit_id
		WHERE t.uuid = ?`

	queryCloseExchange = `
		UPDATE exchange_transactions
		SET status = ?, status_description = ?, closed_at = ?
		WHERE uuid = ? AND status = 'PENDING'`

	queryListOutdatedExchanges = `
		SELECT uuid FROM exchange_transactions
		WHERE status = 'PENDING' AND auto_reject_after < ?
		ORDER BY auto_reject_after`

	// Collapse queries: sums are computed in the application because the
	// amounts are stored as decimal text.
	queryOldConfirmedAdjustments = `
		SELECT checking_account_id, amount
		FROM adjustment_transactions
		WHERE service_id = ? AND status = 'CONFIRMED' AND created_at < ?`

	queryOldConfirmedTransfers = `
		SELECT from_account_id, to_account_id, from_amount, to_amount
		FROM transfer_transactions
		WHERE service_id = ? AND status = 'CONFIRMED' AND created_at < ?`

	queryOldConfirmedExchanges = `
		SELECT from_account_id, to_account_id, from_amount, to_amount
		FROM exchange_transactions
		WHERE service_id = ? AND status = 'CONFIRMED' AND created_at < ?`

	queryDeleteOldAdjustments = `
		DELETE FROM adjustment_transactions
		WHERE service_id = ? AND status != 'PENDING' AND created_at < ?`

	queryDeleteOldTransfers = `
		DELETE FROM transfer_transactions
		WHERE service_id = ? AND status != 'PENDING' AND created_at < ?`

	queryDeleteOldExchanges = `
		DELETE FROM exchange_transactions
		WHERE service_id = ? AND status != 'PENDING' AND created_at < ?`
)
