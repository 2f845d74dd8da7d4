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

package ledger

import (
	"context"

	"go.uber.org/zap"
)

// Sweeper rejects PENDING transactions past their autoRejectAfter deadline
// across the three engines. Each sweep is best-effort: per-row failures are
// logged by the engine and do not abort the run.
type Sweeper struct {
	adjustments *AdjustmentsService
	transfers   *TransfersService
	exchanges   *ExchangesService
}

func NewSweeper(adjustments *AdjustmentsService, transfers *TransfersService, exchanges *ExchangesService) *Sweeper {
	return &Sweeper{
		adjustments: adjustments,
		transfers:   transfers,
		exchanges:   exchanges,
	}
}

// Run performs one sweep over all three transaction kinds and returns the
// total number of rejected transactions.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	total := 0

	adjustments, err := s.adjustments.RejectAllOutdated(ctx, RejectedByCron)
	if err != nil {
		return total, err
	}
	total += len(adjustments)

	transfers, err := s.transfers.RejectAllOutdated(ctx, RejectedByCron)
	if err != nil {
		return total, err
	}
	total += len(transfers)

	exchanges, err := s.exchanges.RejectAllOutdated(ctx, RejectedByCron)
	if err != nil {
		return total, err
	}
	total += len(exchanges)

	if total > 0 {
		zap.L().Info("Outdated transactions rejected",
			zap.Int("adjustments", len(adjustments)),
			zap.Int("transfers", len(transfers)),
			zap.Int("exchanges", len(exchanges)))
	}
	return total, nil
}
