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
	"errors"
	"net/http"
	"strconv"
	"time"

	"gaming-billing-go/internal/errs"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// errorResponse is the envelope for every non-2xx response.
type errorResponse struct {
	Message string         `json:"message"`
	Extra   map[string]any `json:"extra"`
}

// page is the envelope for list endpoints.
type page struct {
	Count   int `json:"count"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Results any `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("Unable to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		zap.L().Error("Unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{Message: "Internal server error", Extra: map[string]any{}})
		return
	}

	switch e.Kind {
	case errs.KindValidation:
		fields := map[string]any{}
		if len(e.Fields) > 0 {
			for field, message := range e.Fields {
				fields[field] = []string{message}
			}
		} else {
			fields["non_field_errors"] = []string{e.Message}
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Validation error",
			Extra:   map[string]any{"fields": fields},
		})
	case errs.KindPermission:
		writeJSON(w, http.StatusForbidden,
			errorResponse{Message: e.Message, Extra: map[string]any{}})
	case errs.KindAuth:
		writeJSON(w, http.StatusUnauthorized,
			errorResponse{Message: e.Message, Extra: map[string]any{}})
	case errs.KindNotFound:
		writeJSON(w, http.StatusNotFound,
			errorResponse{Message: e.Message, Extra: map[string]any{}})
	default:
		zap.L().Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{Message: "Internal server error", Extra: map[string]any{}})
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Validation("Invalid JSON body")
	}
	return nil
}

// jsonDecimal accepts a decimal amount as either a JSON number or a string.
type jsonDecimal struct {
	value decimal.Decimal
	set   bool
}

func (d *jsonDecimal) UnmarshalJSON(data []byte) error {
	text := string(data)
	if text == "null" {
		return nil
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return err
	}
	d.value = value
	d.set = true
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.FieldValidation(key, "A valid integer is required")
	}
	return value, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.FieldValidation(key, "A valid boolean is required")
	}
	return &value, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errs.FieldValidation(key, "A valid RFC 3339 datetime is required")
	}
	return &value, nil
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errs.FieldValidation(key, "A valid number is required")
	}
	return &value, nil
}
