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
	"flag"

	"gaming-billing-go/internal/common"
	"gaming-billing-go/internal/config"
	"gaming-billing-go/internal/ledger"

	"go.uber.org/zap"
)

// sweep runs one pass of the outdated-transaction sweeper, and optionally a
// history collapse, then exits. Useful as an external cron job instead of
// the server's built-in tickers.
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	collapseFlag := flag.Bool("collapse", false, "Also collapse old transactions for COLLAPSE_SERVICES")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	adjustments := ledger.NewAdjustmentsService(dbService)
	transfers := ledger.NewTransfersService(dbService)
	exchanges := ledger.NewExchangesService(dbService)
	sweeper := ledger.NewSweeper(adjustments, transfers, exchanges)

	rejected, err := sweeper.Run(ctx)
	if err != nil {
		logger.Fatal("Sweep failed", zap.Error(err))
	}
	logger.Info("Sweep completed", zap.Int("rejected", rejected))

	if *collapseFlag {
		if len(cfg.Server.CollapseServices) == 0 {
			logger.Warn("No services configured for collapse, set COLLAPSE_SERVICES")
			return
		}
		transactions := ledger.NewTransactionsService(dbService)
		err := transactions.CollapseOldTransactions(ctx,
			cfg.Server.CollapseOlderThan, cfg.Server.CollapseServices)
		if err != nil {
			logger.Fatal("Collapse failed", zap.Error(err))
		}
		logger.Info("Collapse completed",
			zap.Strings("services", cfg.Server.CollapseServices))
	}
}
