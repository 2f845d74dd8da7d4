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

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gaming-billing-go/internal/api"
	"gaming-billing-go/internal/common"
	"gaming-billing-go/internal/config"
	"gaming-billing-go/internal/ledger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	adjustments := ledger.NewAdjustmentsService(dbService)
	transfers := ledger.NewTransfersService(dbService)
	exchanges := ledger.NewExchangesService(dbService)
	sweeper := ledger.NewSweeper(adjustments, transfers, exchanges)
	transactions := ledger.NewTransactionsService(dbService)

	server, err := api.NewServer(dbService, cfg, adjustments, transfers, exchanges)
	if err != nil {
		logger.Fatal("Failed to initialize API server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		ticker := time.NewTicker(cfg.Server.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := sweeper.Run(groupCtx); err != nil {
					logger.Error("Sweep failed", zap.Error(err))
				}
			}
		}
	})

	if len(cfg.Server.CollapseServices) > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(cfg.Server.CollapseInterval)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					err := transactions.CollapseOldTransactions(groupCtx,
						cfg.Server.CollapseOlderThan, cfg.Server.CollapseServices)
					if err != nil {
						logger.Error("Collapse failed", zap.Error(err))
					}
				}
			}
		})
	}

	if err := group.Wait(); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
