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
	"bytes"
	"io"
	"net/http"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/hmacauth"
	"gaming-billing-go/internal/models"
	"gaming-billing-go/internal/permissions"

	"go.uber.org/zap"
)

// authContext carries the authenticated service and its parsed permission
// document through a request.
type authContext struct {
	Service *models.CurrencyService
	Doc     *permissions.Doc
}

type authedHandler func(w http.ResponseWriter, r *http.Request, auth *authContext)

// withServiceAuth resolves the calling service from the service header,
// verifies the request signature against the service's secret key and parses
// the permission document. The body is consumed for signing and restored for
// the handler.
func (s *Server) withServiceAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		serviceName := r.Header.Get(s.cfg.HMAC.ServiceHeader)
		if serviceName == "" {
			writeError(w, errs.Auth("Service header not found"))
			return
		}

		service, err := s.db.GetServiceByName(ctx, serviceName)
		if err != nil {
			if errs.IsNotFound(err) {
				writeError(w, errs.Auth("Service not found"))
			} else {
				writeError(w, err)
			}
			return
		}
		if !service.Enabled {
			writeError(w, errs.Auth("Service disabled"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, errs.Validation("Unable to read request body"))
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		if s.cfg.HMAC.EnableValidation {
			auth, err := s.db.GetServiceAuth(ctx, serviceName)
			if err != nil {
				if errs.IsNotFound(err) {
					writeError(w, errs.Auth("Service not found"))
				} else {
					writeError(w, err)
				}
				return
			}

			var validator hmacauth.Validator = s.timestampValidator
			if auth.IsBattlemetrics {
				validator = s.battlemetricsValidator
			}
			if err := validator.Validate(r, body, auth.Key); err != nil {
				// a failed signature is an authentication failure
				// regardless of which check tripped
				writeError(w, errs.Auth(err.Error()))
				return
			}
		}

		doc, err := permissions.Parse(service.Permissions)
		if err != nil {
			zap.L().Error("Invalid permission document",
				zap.String("service", serviceName), zap.Error(err))
			writeError(w, err)
			return
		}

		next(w, r, &authContext{Service: service, Doc: doc})
	}
}
