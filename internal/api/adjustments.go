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
	"time"

	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/permissions"
)

// parseTransactionFilters reads the query parameters shared by all three
// transaction list endpoints.
func parseTransactionFilters(r *http.Request) (database.TransactionFilters, error) {
	query := r.URL.Query()
	filters := database.TransactionFilters{
		Service:    query.Get("service"),
		Status:     query.Get("status"),
		HolderId:   query.Get("holder_id"),
		UnitSymbol: query.Get("unit"),
		Ordering:   query.Get("ordering"),
	}

	var err error
	if filters.AmountMin, err = queryDecimal(r, "amount_min"); err != nil {
		return filters, err
	}
	if filters.AmountMax, err = queryDecimal(r, "amount_max"); err != nil {
		return filters, err
	}
	if filters.CreatedAtAfter, err = queryTime(r, "created_at_after"); err != nil {
		return filters, err
	}
	if filters.CreatedAtBefore, err = queryTime(r, "created_at_before"); err != nil {
		return filters, err
	}
	if filters.ClosedAtAfter, err = queryTime(r, "closed_at_after"); err != nil {
		return filters, err
	}
	if filters.ClosedAtBefore, err = queryTime(r, "closed_at_before"); err != nil {
		return filters, err
	}
	if filters.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filters, err
	}
	if filters.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filters, err
	}
	return filters, nil
}

// resolveAutoReject turns an optional auto_reject_timeout (seconds) into a
// duration. The timeout permission is only checked when the caller asks for
// a non-default timeout.
func (s *Server) resolveAutoReject(enforcer *permissions.Enforcer, seconds *int64) (time.Duration, error) {
	if seconds == nil {
		return s.cfg.Billing.DefaultAutoReject, nil
	}
	if err := enforcer.EnforceAutoRejectTimeout(*seconds); err != nil {
		return 0, err
	}
	return time.Duration(*seconds) * time.Second, nil
}

type closeTransactionRequest struct {
	Uuid              string `json:"uuid"`
	StatusDescription string `json:"status_description"`
}

func (r *closeTransactionRequest) validate() error {
	if r.Uuid == "" {
		return errs.FieldValidation("uuid", "This field is required")
	}
	return nil
}

type createAdjustmentRequest struct {
	HolderId          string      `json:"holder_id"`
	HolderType        string      `json:"holder_type"`
	UnitSymbol        string      `json:"unit_symbol"`
	Amount            jsonDecimal `json:"amount"`
	Description       string      `json:"description"`
	AutoRejectTimeout *int64      `json:"auto_reject_timeout"`
}

func (s *Server) createAdjustment(w http.ResponseWriter, r *http.Request, auth *authContext) {
	ctx := r.Context()
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionAdjustments)
	if err := enforcer.EnforceCreate(); err != nil {
		writeError(w, err)
		return
	}

	var req createAdjustmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.HolderId == "" {
		writeError(w, errs.FieldValidation("holder_id", "This field is required"))
		return
	}
	if req.UnitSymbol == "" {
		writeError(w, errs.FieldValidation("unit_symbol", "This field is required"))
		return
	}
	if !req.Amount.set {
		writeError(w, errs.FieldValidation("amount", "This field is required"))
		return
	}

	if err := enforcer.EnforceAmount(req.Amount.value); err != nil {
		writeError(w, err)
		return
	}
	autoReject, err := s.resolveAutoReject(enforcer, req.AutoRejectTimeout)
	if err != nil {
		writeError(w, err)
		return
	}

	holder, err := s.db.GetHolder(ctx, req.HolderId, s.holderTypeOrDefault(req.HolderType))
	if err != nil {
		writeError(w, err)
		return
	}
	unit, err := s.db.GetUnitBySymbol(ctx, req.UnitSymbol)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := s.db.GetOrCreateAccount(ctx, holder.Id, unit.Id)
	if err != nil {
		writeError(w, err)
		return
	}

	adjustment, err := s.adjustments.Create(ctx, auth.Service, account, req.Amount.value, req.Description, autoReject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAdjustmentView(adjustment))
}

func (s *Server) confirmAdjustment(w http.ResponseWriter, r *http.Request, auth *authContext) {
	s.closeAdjustment(w, r, auth, true)
}

func (s *Server) rejectAdjustment(w http.ResponseWriter, r *http.Request, auth *authContext) {
	s.closeAdjustment(w, r, auth, false)
}

func (s *Server) closeAdjustment(w http.ResponseWriter, r *http.Request, auth *authContext, confirm bool) {
	ctx := r.Context()
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionAdjustments)

	var req closeTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	adjustment, err := s.db.GetAdjustment(ctx, req.Uuid)
	if err != nil {
		writeError(w, err)
		return
	}

	if confirm {
		if err := enforcer.EnforceConfirm(adjustment.ServiceName); err != nil {
			writeError(w, err)
			return
		}
		adjustment, err = s.adjustments.Confirm(ctx, req.Uuid, req.StatusDescription)
	} else {
		if err := enforcer.EnforceReject(adjustment.ServiceName); err != nil {
			writeError(w, err)
			return
		}
		adjustment, err = s.adjustments.Reject(ctx, req.Uuid, req.StatusDescription)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdjustmentView(adjustment))
}

func (s *Server) listAdjustments(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionAdjustments)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	filters, err := parseTransactionFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	adjustments, count, err := s.db.ListAdjustments(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]adjustmentView, 0, len(adjustments))
	for i := range adjustments {
		results = append(results, newAdjustmentView(&adjustments[i]))
	}
	writeJSON(w, http.StatusOK, page{
		Count:   count,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		Results: results,
	})
}
