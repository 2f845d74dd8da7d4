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

	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/permissions"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionAccounts)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	filters := database.AccountFilters{
		HolderId:   r.URL.Query().Get("holder_id"),
		HolderType: r.URL.Query().Get("holder_type"),
		UnitSymbol: r.URL.Query().Get("unit_symbol"),
	}
	var err error
	if filters.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, err)
		return
	}
	if filters.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, err)
		return
	}

	details, count, err := s.db.ListAccounts(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]accountView, 0, len(details))
	for i := range details {
		results = append(results, newAccountView(&details[i]))
	}
	writeJSON(w, http.StatusOK, page{
		Count:   count,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		Results: results,
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionAccounts)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	holderId := r.URL.Query().Get("holder_id")
	if holderId == "" {
		writeError(w, errs.FieldValidation("holder_id", "This field is required"))
		return
	}
	unitSymbol := r.URL.Query().Get("unit_symbol")
	if unitSymbol == "" {
		writeError(w, errs.FieldValidation("unit_symbol", "This field is required"))
		return
	}
	holderType := s.holderTypeOrDefault(r.URL.Query().Get("holder_type"))

	detail, err := s.db.GetAccountDetail(r.Context(), holderId, holderType, unitSymbol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(detail))
}
