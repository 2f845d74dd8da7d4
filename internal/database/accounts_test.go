package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

func createTestAccount(t *testing.T, service *Service, holderId, symbol string) *models.CheckingAccount {
	t.Helper()
	ctx := context.Background()

	holder, _, err := service.GetOrCreateHolder(ctx, holderId, "player")
	if err != nil {
		t.Fatalf("GetOrCreateHolder failed: %v", err)
	}

	unit, err := service.GetUnitBySymbol(ctx, symbol)
	if errs.IsNotFound(err) {
		unit, err = service.CreateCurrencyUnit(ctx, symbol, symbol, 2, false)
	}
	if err != nil {
		t.Fatalf("Failed to get or create unit: %v", err)
	}

	account, err := service.GetOrCreateAccount(ctx, holder.Id, unit.Id)
	if err != nil {
		t.Fatalf("GetOrCreateAccount failed: %v", err)
	}
	return account
}

func TestGetOrCreateAccount(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	account := createTestAccount(t, service, "3000", "COIN")
	if !account.Amount.IsZero() {
		t.Errorf("Expected zero opening balance, got %s", account.Amount)
	}
	if account.Version != 1 {
		t.Errorf("Expected version 1, got %d", account.Version)
	}

	again, err := service.GetOrCreateAccount(ctx, account.HolderId, account.UnitId)
	if err != nil {
		t.Fatalf("Second GetOrCreateAccount failed: %v", err)
	}
	if again.Id != account.Id {
		t.Errorf("Expected same account, got %s and %s", account.Id, again.Id)
	}
}

func TestUpdateAccountAmountTx_VersionConflict(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	account := createTestAccount(t, service, "4000", "COIN")

	err := service.WithTx(ctx, func(tx *sql.Tx) error {
		return service.UpdateAccountAmountTx(ctx, tx, account, decimal.RequireFromString("10.50"))
	})
	if err != nil {
		t.Fatalf("UpdateAccountAmountTx failed: %v", err)
	}
	if account.Version != 2 {
		t.Errorf("Expected in-memory version bump to 2, got %d", account.Version)
	}

	updated, err := service.GetAccountById(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !updated.Amount.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("Expected balance 10.5, got %s", updated.Amount)
	}

	// a stale version must not win
	stale := *updated
	stale.Version = 1
	err = service.WithTx(ctx, func(tx *sql.Tx) error {
		return service.UpdateAccountAmountTx(ctx, tx, &stale, decimal.NewFromInt(99))
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}

	final, err := service.GetAccountById(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !final.Amount.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("Expected balance unchanged at 10.5, got %s", final.Amount)
	}
}

func TestRetryOnConflict(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	attempts := 0
	err := service.RetryOnConflict(ctx, 3, func() error {
		attempts++
		if attempts < 3 {
			return ErrConcurrentModification
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryOnConflict failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}

	attempts = 0
	err = service.RetryOnConflict(ctx, 2, func() error {
		attempts++
		return ErrConcurrentModification
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification after exhausting retries, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}

	// non-retryable errors bail out immediately
	attempts = 0
	wantErr := errs.Validation("nope")
	err = service.RetryOnConflict(ctx, 3, func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the validation error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestGetAccountDetail(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	createTestAccount(t, service, "5000", "COIN")

	detail, err := service.GetAccountDetail(ctx, "5000", "player", "COIN")
	if err != nil {
		t.Fatalf("GetAccountDetail failed: %v", err)
	}
	if detail.HolderId != "5000" || detail.UnitSymbol != "COIN" {
		t.Errorf("Unexpected detail: %+v", detail)
	}

	_, err = service.GetAccountDetail(ctx, "5000", "player", "GEM")
	if !errs.IsNotFound(err) {
		t.Fatalf("Expected not found, got %v", err)
	}
}
