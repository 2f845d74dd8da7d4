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
	"net/http"

	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/permissions"
)

// holderTypeOrDefault falls back to the configured default slug when the
// request does not name a holder type.
func (s *Server) holderTypeOrDefault(holderType string) string {
	if holderType == "" {
		return s.cfg.Billing.DefaultHolderTypeSlug
	}
	return holderType
}

func (s *Server) listHolders(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionHolders)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	filters := database.HolderFilters{
		HolderId:   r.URL.Query().Get("holder_id"),
		HolderType: r.URL.Query().Get("holder_type"),
	}
	var err error
	if filters.Enabled, err = queryBool(r, "enabled"); err != nil {
		writeError(w, err)
		return
	}
	if filters.CreatedAtAfter, err = queryTime(r, "created_at_after"); err != nil {
		writeError(w, err)
		return
	}
	if filters.CreatedAtBefore, err = queryTime(r, "created_at_before"); err != nil {
		writeError(w, err)
		return
	}
	if filters.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, err)
		return
	}
	if filters.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, err)
		return
	}

	holders, count, err := s.db.ListHolders(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]holderView, 0, len(holders))
	for i := range holders {
		results = append(results, newHolderView(&holders[i]))
	}
	writeJSON(w, http.StatusOK, page{
		Count:   count,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		Results: results,
	})
}

func (s *Server) getHolder(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionHolders)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	holderId := r.URL.Query().Get("holder_id")
	if holderId == "" {
		writeError(w, errs.FieldValidation("holder_id", "This field is required"))
		return
	}
	holderType := s.holderTypeOrDefault(r.URL.Query().Get("holder_type"))

	holder, err := s.db.GetHolder(r.Context(), holderId, holderType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHolderView(holder))
}

type createHolderRequest struct {
	HolderId   string          `json:"holder_id"`
	HolderType string          `json:"holder_type"`
	Info       json.RawMessage `json:"info"`
}

func (s *Server) createHolder(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionHolders)
	if err := enforcer.EnforceCreate(); err != nil {
		writeError(w, err)
		return
	}

	var req createHolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.HolderId == "" {
		writeError(w, errs.FieldValidation("holder_id", "This field is required"))
		return
	}
	holderType := s.holderTypeOrDefault(req.HolderType)

	holder, created, err := s.db.GetOrCreateHolder(r.Context(), req.HolderId, holderType)
	if err != nil {
		writeError(w, err)
		return
	}
	if created && len(req.Info) > 0 {
		holder, err = s.db.UpdateHolder(r.Context(), req.HolderId, holderType, nil, req.Info)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, createdHolderView{
		holderView: newHolderView(holder),
		CreatedNow: created,
	})
}

type updateHolderRequest struct {
	HolderId   string          `json:"holder_id"`
	HolderType string          `json:"holder_type"`
	Enabled    *bool           `json:"enabled"`
	Info       json.RawMessage `json:"info"`
}

func (s *Server) updateHolder(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionHolders)
	if err := enforcer.EnforceUpdate(); err != nil {
		writeError(w, err)
		return
	}

	var req updateHolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.HolderId == "" {
		writeError(w, errs.FieldValidation("holder_id", "This field is required"))
		return
	}
	holderType := s.holderTypeOrDefault(req.HolderType)

	holder, err := s.db.UpdateHolder(r.Context(), req.HolderId, holderType, req.Enabled, req.Info)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHolderView(holder))
}
