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
	"encoding/json"
	"flag"
	"os"

	"gaming-billing-go/internal/common"
	"gaming-billing-go/internal/config"

	"go.uber.org/zap"
)

// addservice registers a new API tenant with its HMAC key and permission
// document.
func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Service name (required)")
	keyFlag := flag.String("key", "", "HMAC secret key (required)")
	permissionsFlag := flag.String("permissions", "{}", "Permission document as JSON")
	permissionsFileFlag := flag.String("permissions-file", "", "Read the permission document from a file")
	battlemetricsFlag := flag.Bool("battlemetrics", false, "Use the Battlemetrics signature scheme")
	enabledFlag := flag.Bool("enabled", true, "Create the service enabled")
	rootFlag := flag.Bool("root", false, "Grant the service root access (overrides permissions)")
	flag.Parse()

	if *nameFlag == "" || *keyFlag == "" {
		flag.Usage()
		logger.Fatal("Both -name and -key are required")
	}

	permissions := []byte(*permissionsFlag)
	if *permissionsFileFlag != "" {
		data, err := os.ReadFile(*permissionsFileFlag)
		if err != nil {
			logger.Fatal("Failed to read permissions file", zap.Error(err))
		}
		permissions = data
	}
	if *rootFlag {
		permissions = []byte(`{"root": true}`)
	}
	if !json.Valid(permissions) {
		logger.Fatal("Permission document is not valid JSON")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	service, err := dbService.CreateService(ctx, *nameFlag, *enabledFlag,
		json.RawMessage(permissions), *keyFlag, *battlemetricsFlag)
	if err != nil {
		logger.Fatal("Failed to create service", zap.Error(err))
	}

	logger.Info("Service created",
		zap.String("id", service.Id),
		zap.String("name", service.Name),
		zap.Bool("enabled", service.Enabled),
		zap.Bool("battlemetrics", *battlemetricsFlag),
		zap.Bool("root", *rootFlag))
}
