package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func createTestService(t *testing.T, service *Service, name string) *models.CurrencyService {
	t.Helper()
	created, err := service.CreateService(context.Background(), name, true,
		json.RawMessage(`{"root": true}`), "secret-key", false)
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	return created
}

func insertTestAdjustment(t *testing.T, service *Service, adj *models.AdjustmentTransaction) {
	t.Helper()
	err := service.WithTx(context.Background(), func(tx *sql.Tx) error {
		return service.InsertAdjustmentTx(context.Background(), tx, adj)
	})
	if err != nil {
		t.Fatalf("InsertAdjustmentTx failed: %v", err)
	}
}

func TestAdjustmentRoundTrip(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	tenant := createTestService(t, service, "shop")
	account := createTestAccount(t, service, "6000", "COIN")

	now := time.Now().UTC().Truncate(time.Second)
	adj := &models.AdjustmentTransaction{
		Uuid:              uuid.New().String(),
		ServiceId:         tenant.Id,
		CheckingAccountId: account.Id,
		Amount:            decimal.RequireFromString("12.34"),
		Description:       "quest reward",
		Status:            models.StatusPending,
		AutoRejectAfter:   now.Add(time.Minute),
		CreatedAt:         now,
	}
	insertTestAdjustment(t, service, adj)

	got, err := service.GetAdjustment(ctx, adj.Uuid)
	if err != nil {
		t.Fatalf("GetAdjustment failed: %v", err)
	}
	if got.ServiceName != "shop" {
		t.Errorf("Expected joined service name shop, got %s", got.ServiceName)
	}
	if got.HolderId != "6000" {
		t.Errorf("Expected joined holder id 6000, got %s", got.HolderId)
	}
	if got.UnitSymbol != "COIN" {
		t.Errorf("Expected joined unit COIN, got %s", got.UnitSymbol)
	}
	if !got.Amount.Equal(adj.Amount) {
		t.Errorf("Expected amount 12.34, got %s", got.Amount)
	}
	if got.Status != models.StatusPending {
		t.Errorf("Expected PENDING, got %s", got.Status)
	}
	if got.ClosedAt != nil {
		t.Errorf("Expected nil closed_at, got %v", got.ClosedAt)
	}
}

func TestCloseAdjustmentTx_OnlyOnce(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	tenant := createTestService(t, service, "shop")
	account := createTestAccount(t, service, "6001", "COIN")

	now := time.Now().UTC()
	adj := &models.AdjustmentTransaction{
		Uuid:              uuid.New().String(),
		ServiceId:         tenant.Id,
		CheckingAccountId: account.Id,
		Amount:            decimal.NewFromInt(5),
		Status:            models.StatusPending,
		AutoRejectAfter:   now.Add(time.Minute),
		CreatedAt:         now,
	}
	insertTestAdjustment(t, service, adj)

	err := service.WithTx(ctx, func(tx *sql.Tx) error {
		return service.CloseAdjustmentTx(ctx, tx, adj.Uuid, models.StatusConfirmed, "done", now)
	})
	if err != nil {
		t.Fatalf("CloseAdjustmentTx failed: %v", err)
	}

	got, err := service.GetAdjustment(ctx, adj.Uuid)
	if err != nil {
		t.Fatalf("GetAdjustment failed: %v", err)
	}
	if got.Status != models.StatusConfirmed {
		t.Errorf("Expected CONFIRMED, got %s", got.Status)
	}
	if got.StatusDescription != "done" {
		t.Errorf("Expected status description done, got %s", got.StatusDescription)
	}
	if got.ClosedAt == nil {
		t.Error("Expected closed_at to be set")
	}

	err = service.WithTx(ctx, func(tx *sql.Tx) error {
		return service.CloseAdjustmentTx(ctx, tx, adj.Uuid, models.StatusRejected, "too late", now)
	})
	if !errs.IsValidation(err) {
		t.Fatalf("Expected validation error on second close, got %v", err)
	}
	if err.Error() != "The transaction has already been closed" {
		t.Errorf("Unexpected message: %v", err)
	}
}

func TestListOutdatedAdjustments(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	tenant := createTestService(t, service, "shop")
	account := createTestAccount(t, service, "6002", "COIN")

	now := time.Now().UTC()
	overdue := &models.AdjustmentTransaction{
		Uuid:              uuid.New().String(),
		ServiceId:         tenant.Id,
		CheckingAccountId: account.Id,
		Amount:            decimal.NewFromInt(1),
		Status:            models.StatusPending,
		AutoRejectAfter:   now.Add(-time.Minute),
		CreatedAt:         now.Add(-time.Hour),
	}
	fresh := &models.AdjustmentTransaction{
		Uuid:              uuid.New().String(),
		ServiceId:         tenant.Id,
		CheckingAccountId: account.Id,
		Amount:            decimal.NewFromInt(1),
		Status:            models.StatusPending,
		AutoRejectAfter:   now.Add(time.Hour),
		CreatedAt:         now,
	}
	insertTestAdjustment(t, service, overdue)
	insertTestAdjustment(t, service, fresh)

	uuids, err := service.ListOutdatedAdjustments(ctx, now)
	if err != nil {
		t.Fatalf("ListOutdatedAdjustments failed: %v", err)
	}
	if len(uuids) != 1 || uuids[0] != overdue.Uuid {
		t.Errorf("Expected only the overdue uuid, got %v", uuids)
	}
}

func TestListAdjustments_Filters(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	shop := createTestService(t, service, "shop")
	arena := createTestService(t, service, "arena")
	account := createTestAccount(t, service, "6003", "COIN")

	now := time.Now().UTC()
	for i, tenant := range []*models.CurrencyService{shop, shop, arena} {
		insertTestAdjustment(t, service, &models.AdjustmentTransaction{
			Uuid:              uuid.New().String(),
			ServiceId:         tenant.Id,
			CheckingAccountId: account.Id,
			Amount:            decimal.NewFromInt(int64(i + 1)),
			Status:            models.StatusPending,
			AutoRejectAfter:   now.Add(time.Minute),
			CreatedAt:         now.Add(time.Duration(i) * time.Second),
		})
	}

	_, count, err := service.ListAdjustments(ctx, TransactionFilters{Service: "shop"})
	if err != nil {
		t.Fatalf("ListAdjustments failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 shop adjustments, got %d", count)
	}

	min := decimal.RequireFromString("1.5")
	rows, count, err := service.ListAdjustments(ctx, TransactionFilters{AmountMin: &min})
	if err != nil {
		t.Fatalf("ListAdjustments failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 adjustments above 1.5, got %d", count)
	}

	rows, _, err = service.ListAdjustments(ctx, TransactionFilters{Ordering: "-created_at"})
	if err != nil {
		t.Fatalf("ListAdjustments failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].CreatedAt.Before(rows[2].CreatedAt) {
		t.Error("Expected descending created_at ordering")
	}
}

func TestCollapseHelpers(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	tenant := createTestService(t, service, "shop")
	account := createTestAccount(t, service, "6004", "COIN")

	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	cutoff := now.Add(-24 * time.Hour)
	closed := old

	// old confirmed credit, old rejected debit and a recent confirmed credit
	confirmedOld := &models.AdjustmentTransaction{
		Uuid: uuid.New().String(), ServiceId: tenant.Id, CheckingAccountId: account.Id,
		Amount: decimal.NewFromInt(10), Status: models.StatusConfirmed,
		AutoRejectAfter: old, CreatedAt: old, ClosedAt: &closed,
	}
	rejectedOld := &models.AdjustmentTransaction{
		Uuid: uuid.New().String(), ServiceId: tenant.Id, CheckingAccountId: account.Id,
		Amount: decimal.NewFromInt(-4), Status: models.StatusRejected,
		AutoRejectAfter: old, CreatedAt: old, ClosedAt: &closed,
	}
	confirmedNew := &models.AdjustmentTransaction{
		Uuid: uuid.New().String(), ServiceId: tenant.Id, CheckingAccountId: account.Id,
		Amount: decimal.NewFromInt(7), Status: models.StatusConfirmed,
		AutoRejectAfter: now, CreatedAt: now, ClosedAt: &now,
	}
	insertTestAdjustment(t, service, confirmedOld)
	insertTestAdjustment(t, service, rejectedOld)
	insertTestAdjustment(t, service, confirmedNew)

	err := service.WithTx(ctx, func(tx *sql.Tx) error {
		totals, err := service.CollectOldConfirmedTotalsTx(ctx, tx, tenant.Id, cutoff)
		if err != nil {
			return err
		}
		total, ok := totals[account.Id]
		if !ok {
			t.Fatal("Expected a total for the account")
		}
		// rejected rows do not count toward the total
		if !total.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected total 10, got %s", total)
		}
		return service.DeleteOldClosedTx(ctx, tx, tenant.Id, cutoff)
	})
	if err != nil {
		t.Fatalf("Collapse helpers failed: %v", err)
	}

	if _, err := service.GetAdjustment(ctx, confirmedOld.Uuid); !errs.IsNotFound(err) {
		t.Errorf("Expected old confirmed row to be deleted, got %v", err)
	}
	if _, err := service.GetAdjustment(ctx, rejectedOld.Uuid); !errs.IsNotFound(err) {
		t.Errorf("Expected old rejected row to be deleted, got %v", err)
	}
	if _, err := service.GetAdjustment(ctx, confirmedNew.Uuid); err != nil {
		t.Errorf("Expected recent row to survive, got %v", err)
	}
}

func TestTransferReadableAfterRuleRemoval(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	tenant := createTestService(t, service, "shop")
	from := createTestAccount(t, service, "9000", "COIN")
	to := createTestAccount(t, service, "9001", "COIN")

	rule, err := service.CreateTransferRule(ctx, "coin-transfer", from.UnitId, true,
		decimal.NewFromInt(5), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("CreateTransferRule failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	transfer := &models.TransferTransaction{
		Uuid:            uuid.New().String(),
		ServiceId:       tenant.Id,
		TransferRuleId:  rule.Id,
		FromAccountId:   from.Id,
		ToAccountId:     to.Id,
		FromAmount:      decimal.NewFromInt(20),
		ToAmount:        decimal.NewFromInt(19),
		Status:          models.StatusConfirmed,
		AutoRejectAfter: now.Add(time.Minute),
		CreatedAt:       now,
	}
	err = service.WithTx(ctx, func(tx *sql.Tx) error {
		return service.InsertTransferTx(ctx, tx, transfer)
	})
	if err != nil {
		t.Fatalf("InsertTransferTx failed: %v", err)
	}

	got, err := service.GetTransfer(ctx, transfer.Uuid)
	if err != nil {
		t.Fatalf("GetTransfer failed: %v", err)
	}
	if got.TransferRuleName == nil || *got.TransferRuleName != "coin-transfer" {
		t.Errorf("Expected rule name coin-transfer, got %v", got.TransferRuleName)
	}
	if got.UnitSymbol != "COIN" {
		t.Errorf("Expected unit COIN, got %s", got.UnitSymbol)
	}

	if _, err := service.db.ExecContext(ctx, "DELETE FROM transfer_rules WHERE id = ?", rule.Id); err != nil {
		t.Fatalf("Failed to delete rule: %v", err)
	}

	got, err = service.GetTransfer(ctx, transfer.Uuid)
	if err != nil {
		t.Fatalf("GetTransfer after rule removal failed: %v", err)
	}
	if got.TransferRuleName != nil {
		t.Errorf("Expected nil rule name after removal, got %v", *got.TransferRuleName)
	}
	if got.TransferRuleId != "" {
		t.Errorf("Expected empty rule id after removal, got %s", got.TransferRuleId)
	}
	if !got.FromAmount.Equal(decimal.NewFromInt(20)) || !got.ToAmount.Equal(decimal.NewFromInt(19)) {
		t.Errorf("Expected amounts to survive rule removal, got %s -> %s", got.FromAmount, got.ToAmount)
	}
	if got.UnitSymbol != "COIN" {
		t.Errorf("Expected unit resolved through the account, got %s", got.UnitSymbol)
	}

	transfers, count, err := service.ListTransfers(ctx, TransactionFilters{})
	if err != nil {
		t.Fatalf("ListTransfers failed: %v", err)
	}
	if count != 1 || len(transfers) != 1 {
		t.Errorf("Expected the transfer to stay listed, got count %d", count)
	}
}

func TestExchangeReadableAfterRuleRemoval(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	tenant := createTestService(t, service, "shop")
	from := createTestAccount(t, service, "9100", "COIN")
	to := createTestAccount(t, service, "9100", "GEM")

	rule, err := service.CreateExchangeRule(ctx, &models.ExchangeRule{
		Name:            "coin-gem",
		FirstUnitId:     from.UnitId,
		SecondUnitId:    to.UnitId,
		ForwardRate:     decimal.NewFromInt(100),
		ReverseRate:     decimal.NewFromInt(100),
		MinFirstAmount:  decimal.NewFromInt(100),
		MinSecondAmount: decimal.NewFromInt(1),
		EnabledForward:  true,
		EnabledReverse:  true,
	})
	if err != nil {
		t.Fatalf("CreateExchangeRule failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	exchange := &models.ExchangeTransaction{
		Uuid:            uuid.New().String(),
		ServiceId:       tenant.Id,
		ExchangeRuleId:  rule.Id,
		FromAccountId:   from.Id,
		ToAccountId:     to.Id,
		FromAmount:      decimal.NewFromInt(200),
		ToAmount:        decimal.NewFromInt(2),
		Status:          models.StatusConfirmed,
		AutoRejectAfter: now.Add(time.Minute),
		CreatedAt:       now,
	}
	err = service.WithTx(ctx, func(tx *sql.Tx) error {
		return service.InsertExchangeTx(ctx, tx, exchange)
	})
	if err != nil {
		t.Fatalf("InsertExchangeTx failed: %v", err)
	}

	if _, err := service.db.ExecContext(ctx, "DELETE FROM exchange_rules WHERE id = ?", rule.Id); err != nil {
		t.Fatalf("Failed to delete rule: %v", err)
	}

	got, err := service.GetExchange(ctx, exchange.Uuid)
	if err != nil {
		t.Fatalf("GetExchange after rule removal failed: %v", err)
	}
	if got.ExchangeRuleName != nil {
		t.Errorf("Expected nil rule name after removal, got %v", *got.ExchangeRuleName)
	}
	if got.FromUnitSymbol != "COIN" || got.ToUnitSymbol != "GEM" {
		t.Errorf("Expected units from the accounts, got %s -> %s", got.FromUnitSymbol, got.ToUnitSymbol)
	}
	if !got.FromAmount.Equal(decimal.NewFromInt(200)) || !got.ToAmount.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected amounts to survive rule removal, got %s -> %s", got.FromAmount, got.ToAmount)
	}
}
