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

package api

import (
	"encoding/json"
	"time"

	"gaming-billing-go/internal/common"
	"gaming-billing-go/internal/models"
)

// Serialized forms of the domain models. Amounts are rendered as strings so
// clients never receive a float.

type holderView struct {
	HolderId   string          `json:"holder_id"`
	HolderType string          `json:"holder_type"`
	Enabled    bool            `json:"enabled"`
	Info       json.RawMessage `json:"info"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func newHolderView(holder *models.Holder) holderView {
	info := holder.Info
	if len(info) == 0 {
		info = json.RawMessage(`{}`)
	}
	return holderView{
		HolderId:   holder.HolderId,
		HolderType: holder.HolderType,
		Enabled:    holder.Enabled,
		Info:       info,
		CreatedAt:  holder.CreatedAt,
		UpdatedAt:  holder.UpdatedAt,
	}
}

// createdHolderView extends holderView with the created_now flag the create
// endpoint reports.
type createdHolderView struct {
	holderView
	CreatedNow bool `json:"created_now"`
}

type accountView struct {
	HolderId   string    `json:"holder_id"`
	HolderType string    `json:"holder_type"`
	Unit       string    `json:"unit"`
	Amount     string    `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAccountView(detail *models.AccountDetail) accountView {
	return accountView{
		HolderId:   detail.HolderId,
		HolderType: detail.HolderType,
		Unit:       detail.UnitSymbol,
		Amount:     common.FormatDecimal(detail.Amount),
		CreatedAt:  detail.CreatedAt,
	}
}

type unitView struct {
	Symbol            string `json:"symbol"`
	Measurement       string `json:"measurement"`
	Precision         int    `json:"precision"`
	IsNegativeAllowed bool   `json:"is_negative_allowed"`
}

func newUnitView(unit *models.CurrencyUnit) unitView {
	return unitView{
		Symbol:            unit.Symbol,
		Measurement:       unit.Measurement,
		Precision:         unit.Precision,
		IsNegativeAllowed: unit.IsNegativeAllowed,
	}
}

type adjustmentView struct {
	Uuid              string     `json:"uuid"`
	Service           string     `json:"service"`
	HolderId          string     `json:"holder_id"`
	Unit              string     `json:"unit"`
	Amount            string     `json:"amount"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	StatusDescription string     `json:"status_description"`
	AutoRejectAfter   time.Time  `json:"auto_reject_after"`
	CreatedAt         time.Time  `json:"created_at"`
	ClosedAt          *time.Time `json:"closed_at"`
}

func newAdjustmentView(adj *models.AdjustmentTransaction) adjustmentView {
	return adjustmentView{
		Uuid:              adj.Uuid,
		Service:           adj.ServiceName,
		HolderId:          adj.HolderId,
		Unit:              adj.UnitSymbol,
		Amount:            common.FormatDecimal(adj.Amount),
		Description:       adj.Description,
		Status:            adj.Status,
		StatusDescription: adj.StatusDescription,
		AutoRejectAfter:   adj.AutoRejectAfter,
		CreatedAt:         adj.CreatedAt,
		ClosedAt:          adj.ClosedAt,
	}
}

type transferView struct {
	Uuid              string     `json:"uuid"`
	Service           string     `json:"service"`
	TransferRule      *string    `json:"transfer_rule"`
	FromHolderId      string     `json:"from_holder_id"`
	ToHolderId        string     `json:"to_holder_id"`
	Unit              string     `json:"unit"`
	FromAmount        string     `json:"from_amount"`
	ToAmount          string     `json:"to_amount"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	StatusDescription string     `json:"status_description"`
	AutoRejectAfter   time.Time  `json:"auto_reject_after"`
	CreatedAt         time.Time  `json:"created_at"`
	ClosedAt          *time.Time `json:"closed_at"`
}

func newTransferView(transfer *models.TransferTransaction) transferView {
	return transferView{
		Uuid:              transfer.Uuid,
		Service:           transfer.ServiceName,
		TransferRule:      transfer.TransferRuleName,
		FromHolderId:      transfer.FromHolderId,
		ToHolderId:        transfer.ToHolderId,
		Unit:              transfer.UnitSymbol,
		FromAmount:        common.FormatDecimal(transfer.FromAmount),
		ToAmount:          common.FormatDecimal(transfer.ToAmount),
		Description:       transfer.Description,
		Status:            transfer.Status,
		StatusDescription: transfer.StatusDesc,
		AutoRejectAfter:   transfer.AutoRejectAfter,
		CreatedAt:         transfer.CreatedAt,
		ClosedAt:          transfer.ClosedAt,
	}
}

type exchangeView struct {
	Uuid              string     `json:"uuid"`
	Service           string     `json:"service"`
	ExchangeRule      *string    `json:"exchange_rule"`
	HolderId          string     `json:"holder_id"`
	FromUnit          string     `json:"from_unit"`
	ToUnit            string     `json:"to_unit"`
	FromAmount        string     `json:"from_amount"`
	ToAmount          string     `json:"to_amount"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	StatusDescription string     `json:"status_description"`
	AutoRejectAfter   time.Time  `json:"auto_reject_after"`
	CreatedAt         time.Time  `json:"created_at"`
	ClosedAt          *time.Time `json:"closed_at"`
}

func newExchangeView(exchange *models.ExchangeTransaction) exchangeView {
	return exchangeView{
		Uuid:              exchange.Uuid,
		Service:           exchange.ServiceName,
		ExchangeRule:      exchange.ExchangeRuleName,
		HolderId:          exchange.HolderId,
		FromUnit:          exchange.FromUnitSymbol,
		ToUnit:            exchange.ToUnitSymbol,
		FromAmount:        common.FormatDecimal(exchange.FromAmount),
		ToAmount:          common.FormatDecimal(exchange.ToAmount),
		Description:       exchange.Description,
		Status:            exchange.Status,
		StatusDescription: exchange.StatusDesc,
		AutoRejectAfter:   exchange.AutoRejectAfter,
		CreatedAt:         exchange.CreatedAt,
		ClosedAt:          exchange.ClosedAt,
	}
}
