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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
)

func (s *Service) GetOrCreateHolderType(ctx context.Context, name string) (*models.HolderType, error) {
	holderType, err := s.GetHolderTypeByName(ctx, name)
	if err == nil {
		return holderType, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, queryInsertHolderType, uuid.New().String(), name); err != nil {
		// Lost a creation race; the row exists now.
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("unable to insert holder type: %w", err)
		}
	}
	return s.GetHolderTypeByName(ctx, name)
}

func (s *Service) GetHolderTypeByName(ctx context.Context, name string) (*models.HolderType, error) {
	var holderType models.HolderType
	err := s.db.QueryRowContext(ctx, queryGetHolderTypeByName, name).
		Scan(&holderType.Id, &holderType.Name, &holderType.CreatedAt, &holderType.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Holder type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read holder type: %w", err)
	}
	return &holderType, nil
}

// GetOrCreateHolder returns the holder identified by (holderId, holder type
// name), creating it (and the holder type) when missing. The second return
// value reports whether a new holder row was created.
func (s *Service) GetOrCreateHolder(ctx context.Context, holderId, holderTypeName string) (*models.Holder, bool, error) {
	holder, err := s.GetHolder(ctx, holderId, holderTypeName)
	if err == nil {
		return holder, false, nil
	}
	if !errs.IsNotFound(err) {
		return nil, false, err
	}

	holderType, err := s.GetOrCreateHolderType(ctx, holderTypeName)
	if err != nil {
		return nil, false, err
	}

	created := true
	_, err = s.db.ExecContext(ctx, queryInsertHolder,
		uuid.New().String(), holderId, holderType.Id, true, `{}`)
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("unable to insert holder: %w", err)
		}
		created = false
	}

	holder, err = s.GetHolder(ctx, holderId, holderTypeName)
	if err != nil {
		return nil, false, err
	}
	return holder, created, nil
}

func (s *Service) GetHolder(ctx context.Context, holderId, holderTypeName string) (*models.Holder, error) {
	var holder models.Holder
	var info string
	err := s.db.QueryRowContext(ctx, queryGetHolder, holderId, holderTypeName).
		Scan(&holder.Id, &holder.HolderId, &holder.HolderTypeId, &holder.HolderType,
			&holder.Enabled, &info, &holder.CreatedAt, &holder.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("Holder not found")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read holder: %w", err)
	}
	holder.Info = json.RawMessage(info)
	return &holder, nil
}

// UpdateHolder changes the mutable holder fields. Nil arguments keep the
// current value.
func (s *Service) UpdateHolder(ctx context.Context, holderId, holderTypeName string, enabled *bool, info json.RawMessage) (*models.Holder, error) {
	holder, err := s.GetHolder(ctx, holderId, holderTypeName)
	if err != nil {
		return nil, err
	}

	newEnabled := holder.Enabled
	if enabled != nil {
		newEnabled = *enabled
	}
	newInfo := holder.Info
	if info != nil {
		if !json.Valid(info) {
			return nil, errs.FieldValidation("info", "Info must be valid JSON")
		}
		newInfo = info
	}

	_, err = s.db.ExecContext(ctx, queryUpdateHolder, newEnabled, string(newInfo), time.Now().UTC(), holder.Id)
	if err != nil {
		return nil, fmt.Errorf("unable to update holder: %w", err)
	}
	return s.GetHolder(ctx, holderId, holderTypeName)
}

// HolderFilters narrows ListHolders. Zero values mean "no filter".
type HolderFilters struct {
	HolderId        string
	HolderType      string
	Enabled         *bool
	CreatedAtAfter  *time.Time
	CreatedAtBefore *time.Time
	Limit           int
	Offset          int
}

func (s *Service) ListHolders(ctx context.Context, f HolderFilters) ([]models.Holder, int, error) {
	where := newFilterBuilder()
	where.add("h.holder_id = ?", f.HolderId != "", f.HolderId)
	where.add("t.name = ?", f.HolderType != "", f.HolderType)
	if f.Enabled != nil {
		where.add("h.enabled = ?", true, *f.Enabled)
	}
	if f.CreatedAtAfter != nil {
		where.add("h.created_at >= ?", true, *f.CreatedAtAfter)
	}
	if f.CreatedAtBefore != nil {
		where.add("h.created_at <= ?", true, *f.CreatedAtBefore)
	}

	base := `
		FROM holders h
		JOIN holder_types t ON t.id = h.holder_type_id` + where.clause()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+base, where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("unable to count holders: %w", err)
	}

	query := `
		SELECT h.id, h.holder_id, h.holder_type_id, t.name, h.enabled, h.info, h.created_at, h.updated_at` +
		base + `
		ORDER BY h.created_at DESC` + limitOffset(f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list holders: %w", err)
	}
	defer rows.Close()

	var holders []models.Holder
	for rows.Next() {
		var holder models.Holder
		var info string
		if err := rows.Scan(&holder.Id, &holder.HolderId, &holder.HolderTypeId, &holder.HolderType,
			&holder.Enabled, &info, &holder.CreatedAt, &holder.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("unable to scan holder: %w", err)
		}
		holder.Info = json.RawMessage(info)
		holders = append(holders, holder)
	}
	return holders, count, rows.Err()
}

// filterBuilder accumulates WHERE conditions for list queries.
type filterBuilder struct {
	conds []string
	args  []any
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{}
}

func (b *filterBuilder) add(cond string, active bool, arg any) {
	if !active {
		return
	}
	b.conds = append(b.conds, cond)
	b.args = append(b.args, arg)
}

func (b *filterBuilder) addCond(cond string, args ...any) {
	b.conds = append(b.conds, cond)
	b.args = append(b.args, args...)
}

func (b *filterBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "\n\t\tWHERE " + strings.Join(b.conds, " AND ")
}

func limitOffset(limit, offset int) string {
	if limit <= 0 {
		limit = 100
	}
	return fmt.Sprintf("\n\t\tLIMIT %d OFFSET %d", limit, offset)
}
