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
	"gaming-billing-go/internal/hmacauth"
	"gaming-billing-go/internal/ledger"
	"gaming-billing-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server maps HTTP requests onto the ledger engines. Every route is
// wrapped in HMAC service authentication and permission checks.
type Server struct {
	db          *database.Service
	cfg         *models.Config
	adjustments *ledger.AdjustmentsService
	transfers   *ledger.TransfersService
	exchanges   *ledger.ExchangesService

	timestampValidator     hmacauth.Validator
	battlemetricsValidator hmacauth.Validator
}

func NewServer(db *database.Service, cfg *models.Config, adjustments *ledger.AdjustmentsService, transfers *ledger.TransfersService, exchanges *ledger.ExchangesService) (*Server, error) {
	battlemetricsValidator, err := hmacauth.NewBattlemetricsValidator(cfg.HMAC)
	if err != nil {
		return nil, err
	}
	return &Server{
		db:                     db,
		cfg:                    cfg,
		adjustments:            adjustments,
		transfers:              transfers,
		exchanges:              exchanges,
		timestampValidator:     hmacauth.NewTimestampValidator(cfg.HMAC),
		battlemetricsValidator: battlemetricsValidator,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/holders", func(r chi.Router) {
		r.Get("/", s.withServiceAuth(s.listHolders))
		r.Get("/detail/", s.withServiceAuth(s.getHolder))
		r.Post("/create/", s.withServiceAuth(s.createHolder))
		r.Post("/update/", s.withServiceAuth(s.updateHolder))
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", s.withServiceAuth(s.listAccounts))
		r.Get("/detail/", s.withServiceAuth(s.getAccount))
	})

	r.Get("/units/", s.withServiceAuth(s.listUnits))

	r.Route("/adjustments", func(r chi.Router) {
		r.Get("/", s.withServiceAuth(s.listAdjustments))
		r.Post("/create/", s.withServiceAuth(s.createAdjustment))
		r.Post("/confirm/", s.withServiceAuth(s.confirmAdjustment))
		r.Post("/reject/", s.withServiceAuth(s.rejectAdjustment))
	})

	r.Route("/transfers", func(r chi.Router) {
		r.Get("/", s.withServiceAuth(s.listTransfers))
		r.Post("/create/", s.withServiceAuth(s.createTransfer))
		r.Post("/confirm/", s.withServiceAuth(s.confirmTransfer))
		r.Post("/reject/", s.withServiceAuth(s.rejectTransfer))
	})

	r.Route("/exchanges", func(r chi.Router) {
		r.Get("/", s.withServiceAuth(s.listExchanges))
		r.Post("/create/", s.withServiceAuth(s.createExchange))
		r.Post("/confirm/", s.withServiceAuth(s.confirmExchange))
		r.Post("/reject/", s.withServiceAuth(s.rejectExchange))
	})

	return r
}
