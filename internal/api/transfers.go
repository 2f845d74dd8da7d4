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

type createTransferRequest struct {
	TransferRule      string      `json:"transfer_rule"`
	FromHolderId      string      `json:"from_holder_id"`
	FromHolderType    string      `json:"from_holder_type"`
	ToHolderId        string      `json:"to_holder_id"`
	ToHolderType      string      `json:"to_holder_type"`
	Amount            jsonDecimal `json:"amount"`
	Description       string      `json:"description"`
	AutoRejectTimeout *int64      `json:"auto_reject_timeout"`
}

func (r *createTransferRequest) validate() error {
	if r.TransferRule == "" {
		return errs.FieldValidation("transfer_rule", "This field is required")
	}
	if r.FromHolderId == "" {
		return errs.FieldValidation("from_holder_id", "This field is required")
	}
	if r.ToHolderId == "" {
		return errs.FieldValidation("to_holder_id", "This field is required")
	}
	if !r.Amount.set {
		return errs.FieldValidation("amount", "This field is required")
	}
	return nil
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request, auth *authContext) {
	ctx := r.Context()
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionTransfers)
	if err := enforcer.EnforceCreate(); err != nil {
		writeError(w, err)
		return
	}

	var req createTransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
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

	rule, err := s.db.GetTransferRuleByName(ctx, req.TransferRule)
	if err != nil {
		writeError(w, err)
		return
	}

	fromHolder, err := s.db.GetHolder(ctx, req.FromHolderId, s.holderTypeOrDefault(req.FromHolderType))
	if err != nil {
		writeError(w, err)
		return
	}
	toHolder, err := s.db.GetHolder(ctx, req.ToHolderId, s.holderTypeOrDefault(req.ToHolderType))
	if err != nil {
		writeError(w, err)
		return
	}

	fromAccount, err := s.db.GetOrCreateAccount(ctx, fromHolder.Id, rule.UnitId)
	if err != nil {
		writeError(w, err)
		return
	}
	toAccount, err := s.db.GetOrCreateAccount(ctx, toHolder.Id, rule.UnitId)
	if err != nil {
		writeError(w, err)
		return
	}

	transfer, err := s.transfers.Create(ctx, auth.Service, rule, fromAccount, toAccount, req.Amount.value, req.Description, autoReject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransferView(transfer))
}

func (s *Server) confirmTransfer(w http.ResponseWriter, r *http.Request, auth *authContext) {
	s.closeTransfer(w, r, auth, true)
}

func (s *Server) rejectTransfer(w http.ResponseWriter, r *http.Request, auth *authContext) {
	s.closeTransfer(w, r, auth, false)
}

func (s *Server) closeTransfer(w http.ResponseWriter, r *http.Request, auth *authContext, confirm bool) {
	ctx := r.Context()
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionTransfers)

	var req closeTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	transfer, err := s.db.GetTransfer(ctx, req.Uuid)
	if err != nil {
		writeError(w, err)
		return
	}

	if confirm {
		if err := enforcer.EnforceConfirm(transfer.ServiceName); err != nil {
			writeError(w, err)
			return
		}
		transfer, err = s.transfers.Confirm(ctx, req.Uuid, req.StatusDescription)
	} else {
		if err := enforcer.EnforceReject(transfer.ServiceName); err != nil {
			writeError(w, err)
			return
		}
		transfer, err = s.transfers.Reject(ctx, req.Uuid, req.StatusDescription)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransferView(transfer))
}

func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionTransfers)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	filters, err := parseTransactionFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	transfers, count, err := s.db.ListTransfers(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]transferView, 0, len(transfers))
	for i := range transfers {
		results = append(results, newTransferView(&transfers[i]))
	}
	writeJSON(w, http.StatusOK, page{
		Count:   count,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		Results: results,
	})
}
