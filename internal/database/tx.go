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

package database

import (
	"context"
	"database/sql"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Sentinel errors for database operations
var (
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DefaultRetries is the attempt budget for ordinary write transactions.
// Collapse uses a larger budget because it touches many rows at once.
const (
	DefaultRetries  = 3
	CollapseRetries = 5
)

// WithTx runs fn inside a transaction. SQLite transactions are serializable
// by default, so no isolation level is requested.
func (s *Service) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// RetryOnConflict runs fn up to attempts times, retrying only on
// serialization conflicts (optimistic-lock misses and busy/locked errors).
func (s *Service) RetryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		zap.L().Warn("Retrying after write conflict",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrConcurrentModification) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
