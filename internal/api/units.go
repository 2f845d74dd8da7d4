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

	"gaming-billing-go/internal/permissions"
)

func (s *Server) listUnits(w http.ResponseWriter, r *http.Request, auth *authContext) {
	enforcer := permissions.NewEnforcer(auth.Doc, permissions.SectionUnits)
	if err := enforcer.EnforceAccess(); err != nil {
		writeError(w, err)
		return
	}

	units, err := s.db.ListUnits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]unitView, 0, len(units))
	for i := range units {
		results = append(results, newUnitView(&units[i]))
	}
	writeJSON(w, http.StatusOK, page{
		Count:   len(results),
		Limit:   0,
		Offset:  0,
		Results: results,
	})
}
