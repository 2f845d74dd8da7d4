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

	"go.uber.org/zap"
)

// setup initializes the database schema and seeds currency units, holder
// types, rules and services from the billing file.
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "", "Path to the billing seed file (defaults to BILLING_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	seedFile := cfg.Billing.SeedFile
	if *fileFlag != "" {
		seedFile = *fileFlag
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	billing, err := common.LoadBillingFile(seedFile)
	if err != nil {
		logger.Fatal("Failed to load billing file",
			zap.String("file", seedFile), zap.Error(err))
	}

	if err := billing.Apply(ctx, dbService); err != nil {
		logger.Fatal("Failed to apply billing file", zap.Error(err))
	}

	logger.Info("Setup completed",
		zap.Int("units", len(billing.Units)),
		zap.Int("holder_types", len(billing.HolderTypes)),
		zap.Int("transfer_rules", len(billing.TransferRules)),
		zap.Int("exchange_rules", len(billing.ExchangeRules)),
		zap.Int("services", len(billing.Services)))
}
