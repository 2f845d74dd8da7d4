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
	"fmt"

	"gaming-billing-go/internal/common"
	"gaming-billing-go/internal/config"
	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalHolders        int
	totalAccounts       int
	holdersWithAccounts int
}

func printAccount(detail models.AccountDetail, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-15s: %20s (opened: %s)\n",
		symbol,
		detail.UnitSymbol,
		common.FormatDecimal(detail.Amount),
		detail.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printHolderHeader(holder models.Holder, accountCount int) {
	fmt.Printf("\n┌─ Holder: %s (%s)\n", holder.HolderId, holder.HolderType)
	fmt.Printf("│  Enabled: %t\n", holder.Enabled)
	fmt.Printf("│  Accounts: %d\n", accountCount)
	common.PrintBoxSeparator(78)
}

func processHolder(ctx context.Context, holder models.Holder, dbService *database.Service) (int, error) {
	details, _, err := dbService.ListAccounts(ctx, database.AccountFilters{
		HolderId:   holder.HolderId,
		HolderType: holder.HolderType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get accounts: %w", err)
	}
	if len(details) == 0 {
		return 0, nil
	}

	printHolderHeader(holder, len(details))
	for i, detail := range details {
		printAccount(detail, i == len(details)-1)
	}
	return len(details), nil
}

func processHoldersAndGenerateReport(ctx context.Context, holders []models.Holder, dbService *database.Service, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, holder := range holders {
		stats.totalHolders++

		accountCount, err := processHolder(ctx, holder, dbService)
		if err != nil {
			logger.Error("Failed to process holder",
				zap.String("holder_id", holder.HolderId),
				zap.String("holder_type", holder.HolderType),
				zap.Error(err))
			continue
		}

		if accountCount > 0 {
			stats.holdersWithAccounts++
			stats.totalAccounts += accountCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	holderFlag := flag.String("holder", "", "Filter by specific holder id (optional)")
	typeFlag := flag.String("type", "", "Filter by holder type (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

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

	holders, _, err := dbService.ListHolders(ctx, database.HolderFilters{
		HolderId:   *holderFlag,
		HolderType: *typeFlag,
	})
	if err != nil {
		logger.Fatal("Failed to list holders", zap.Error(err))
	}

	common.PrintHeader("HOLDER BALANCE REPORT", common.DefaultWidth)

	stats := processHoldersAndGenerateReport(ctx, holders, dbService, logger)

	summary := fmt.Sprintf("SUMMARY: %d holders with accounts (%d total accounts across %d holders queried)",
		stats.holdersWithAccounts, stats.totalAccounts, stats.totalHolders)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("holders_queried", stats.totalHolders),
		zap.Int("holders_with_accounts", stats.holdersWithAccounts),
		zap.Int("total_accounts", stats.totalAccounts))
}
