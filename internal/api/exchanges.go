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
	"net/http"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/permissions"
)

type createExchangeRequest struct {
	ExchangeRule      string      `json:"exchange_rule"`
	HolderId          string      `json:"holder_id"`
	HolderType        string      `json:"holder_type"`
	FromUnit          string      `json:"from_unit"`
	ToUnit            string      `json:"to_unit"`
	FromAmount        jsonDecimal `json:"from_amount"`
	Description       string      `json:"description"`
	AutoRejectTimeout *int64      `json:"auto_reject_timeout"`
}

func (r *createExchangeRequest) validate() error {
	if r.ExchangeRule == "" {
		return errs.FieldValidation("exchange_rule", "This field is required")
	}
	if r.HolderId == "" {
		return errs.FieldValidation("holder_id", "This field is required")
	}
	if r.FromUnit == "" {
		return errs.FieldValidation("from_unit", "This field is required")
	}
	if r.ToUnit == "" {
		return errs.FieldValidation("to_unit", "This field is required")
	}
	if !r.FromAmount.set {
		return errs.FieldValidation("from_amount", "This field is required")
	}
	return nil
}

func (s *Server) createExchange(w http.ResponseWriter, r *http.Request, auth *authContext) {
	ctx := r.Context()
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionExchanges)
	if err := enforcer.EnforceCreate(); err != nil {
		writeError(w, err)
		return
	}

	var req createExchangeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := enforcer.EnforceAmount(req.FromAmount.value); err != nil {
		writeError(w, err)
		return
	}
	autoReject, err := s.resolveAutoReject(enforcer, req.AutoRejectTimeout)
	if err != nil {
		writeError(w, err)
		return
	}

	rule, err := s.db.GetExchangeRuleByName(ctx, req.ExchangeRule)
	if err != nil {
		writeError(w, err)
		return
	}
	holder, err := s.db.GetHolder(ctx, req.HolderId, s.holderTypeOrDefault(req.HolderType))
	if err != nil {
		writeError(w, err)
		return
	}
	fromUnit, err := s.db.GetUnitBySymbol(ctx, req.FromUnit)
	if err != nil {
		writeError(w, err)
		return
	}
	toUnit, err := s.db.GetUnitBySymbol(ctx, req.ToUnit)
	if err != nil {
		writeError(w, err)
		return
	}

	// both accounts must exist before the engine reserves funds
	if _, err := s.db.GetOrCreateAccount(ctx, holder.Id, fromUnit.Id); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.db.GetOrCreateAccount(ctx, holder.Id, toUnit.Id); err != nil {
		writeError(w, err)
		return
	}

	exchange, err := s.exchanges.Create(ctx, auth.Service, holder, rule, fromUnit, toUnit, req.FromAmount.value, req.Description, autoReject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExchangeView(exchange))
}

func (s *Server) confirmExchange(w http.ResponseWriter, r *http.Request, auth *authContext) {
	s.closeExchange(w, r, auth, true)
}

func (s *Server) rejectExchange(w http.ResponseWriter, r *http.Request, auth *authContext) {
	s.closeExchange(w, r, auth, false)
}

func (s *Server) closeExchange(w http.ResponseWriter, r *http.Request, auth *authContext, confirm bool) {
	ctx := r.Context()
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionExchanges)

	var req closeTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	exchange, err := s.db.GetExchange(ctx, req.Uuid)
	if err != nil {
		writeError(w, err)
		return
	}

	if confirm {
		if err := enforcer.EnforceConfirm(exchange.ServiceName); err != nil {
			writeError(w, err)
			return
		}
		exchange, err = s.exchanges.Confirm(ctx, req.Uuid, req.StatusDescription)
	} else {
		if err := enforcer.EnforceReject(exchange.ServiceName); err != nil {
			writeError(w, err)
			return
		}
		exchange, err = s.exchanges.Reject(ctx, req.Uuid, req.StatusDescription)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newExchangeView(exchange))
}

func (s *Server) listExchanges(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionExchanges)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	filters, err := parseTransactionFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	exchanges, count, err := s.db.ListExchanges(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]exchangeView, 0, len(exchanges))
	for i := range exchanges {
		results = append(results, newExchangeView(&exchanges[i]))
	}
	writeJSON(w, http.StatusOK, page{
		Count:   count,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		Results: results,
	})
}
