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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gaming-billing-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	collapseInterval, err := getEnvDuration("COLLAPSE_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	collapseOlderThan, err := getEnvDuration("COLLAPSE_OLDER_THAN", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}

	timestampDeviation, err := getEnvDuration("HMAC_TIMESTAMP_DEVIATION", time.Minute)
	if err != nil {
		return nil, err
	}

	defaultAutoReject, err := getEnvDuration("DEFAULT_AUTO_REJECT_TIMEDELTA", 180*time.Second)
	if err != nil {
		return nil, err
	}

	hashType := getEnvString("HMAC_HASH_TYPE", "sha256")
	switch hashType {
	case "sha1", "sha256", "sha512":
	default:
		return nil, fmt.Errorf("invalid HMAC_HASH_TYPE: %q", hashType)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "billing.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Server: models.ServerConfig{
			ListenAddr:        getEnvString("LISTEN_ADDR", ":8080"),
			SweepInterval:     sweepInterval,
			CollapseInterval:  collapseInterval,
			CollapseOlderThan: collapseOlderThan,
			CollapseServices:  getEnvList("COLLAPSE_SERVICES", nil),
		},
		HMAC: models.HMACConfig{
			EnableValidation:   getEnvBool("ENABLE_HMAC_VALIDATION", true),
			TimestampDeviation: timestampDeviation,
			HashType:           hashType,
			ServiceHeader:      getEnvString("SERVICE_HEADER", "X-SERVICE"),
			SignatureHeader:    getEnvString("HMAC_SIGNATURE_HEADER", "X-SIGNATURE"),
			TimestampHeader:    getEnvString("HMAC_TIMESTAMP_HEADER", "X-SIGNATURE-TIMESTAMP"),

			BattlemetricsSignatureRegex: getEnvString("BATTLEMETRICS_SIGNATURE_REGEX", `s=([A-Za-z0-9_]+)`),
			BattlemetricsTimestampRegex: getEnvString("BATTLEMETRICS_TIMESTAMP_REGEX", `t=([\w\-:.+]+)`),
		},
		Billing: models.BillingConfig{
			DefaultAutoReject:     defaultAutoReject,
			DefaultHolderTypeSlug: getEnvString("CURRENCY_DEFAULT_HOLDER_TYPE_SLUG", "player"),
			SeedFile:              getEnvString("BILLING_FILE", "billing.yaml"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
