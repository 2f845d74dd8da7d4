package database

import (
	"context"
	"encoding/json"
	"testing"

	"gaming-billing-go/internal/errs"
)

func TestGetOrCreateHolder_CreatesHolderAndType(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	holder, created, err := service.GetOrCreateHolder(ctx, "76561198000000001", "player")
	if err != nil {
		t.Fatalf("GetOrCreateHolder failed: %v", err)
	}
	if !created {
		t.Error("Expected holder to be created")
	}
	if holder.HolderId != "76561198000000001" {
		t.Errorf("Expected holder_id 76561198000000001, got %s", holder.HolderId)
	}
	if holder.HolderType != "player" {
		t.Errorf("Expected holder type player, got %s", holder.HolderType)
	}
	if !holder.Enabled {
		t.Error("Expected new holder to be enabled")
	}

	again, created, err := service.GetOrCreateHolder(ctx, "76561198000000001", "player")
	if err != nil {
		t.Fatalf("Second GetOrCreateHolder failed: %v", err)
	}
	if created {
		t.Error("Expected second call to find the existing holder")
	}
	if again.Id != holder.Id {
		t.Errorf("Expected same holder row, got %s and %s", holder.Id, again.Id)
	}
}

func TestGetOrCreateHolder_SameIdDifferentType(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	player, _, err := service.GetOrCreateHolder(ctx, "1000", "player")
	if err != nil {
		t.Fatalf("GetOrCreateHolder failed: %v", err)
	}
	clan, _, err := service.GetOrCreateHolder(ctx, "1000", "clan")
	if err != nil {
		t.Fatalf("GetOrCreateHolder failed: %v", err)
	}
	if player.Id == clan.Id {
		t.Error("Expected distinct holders for the same id under different types")
	}
}

func TestGetHolder_NotFound(t *testing.T) {
	service := setupTestDb(t)

	_, err := service.GetHolder(context.Background(), "missing", "player")
	if !errs.IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
}

func TestUpdateHolder(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	if _, _, err := service.GetOrCreateHolder(ctx, "2000", "player"); err != nil {
		t.Fatalf("GetOrCreateHolder failed: %v", err)
	}

	disabled := false
	holder, err := service.UpdateHolder(ctx, "2000", "player", &disabled, json.RawMessage(`{"nickname":"steve"}`))
	if err != nil {
		t.Fatalf("UpdateHolder failed: %v", err)
	}
	if holder.Enabled {
		t.Error("Expected holder to be disabled")
	}
	if string(holder.Info) != `{"nickname":"steve"}` {
		t.Errorf("Unexpected info: %s", holder.Info)
	}

	// nil arguments keep the current values
	holder, err = service.UpdateHolder(ctx, "2000", "player", nil, nil)
	if err != nil {
		t.Fatalf("UpdateHolder failed: %v", err)
	}
	if holder.Enabled {
		t.Error("Expected enabled to be unchanged")
	}
	if string(holder.Info) != `{"nickname":"steve"}` {
		t.Errorf("Expected info to be unchanged, got %s", holder.Info)
	}

	_, err = service.UpdateHolder(ctx, "2000", "player", nil, json.RawMessage(`{broken`))
	if !errs.IsValidation(err) {
		t.Fatalf("Expected validation error for invalid JSON, got %v", err)
	}
}

func TestListHolders_Filters(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, _, err := service.GetOrCreateHolder(ctx, id, "player"); err != nil {
			t.Fatalf("GetOrCreateHolder failed: %v", err)
		}
	}
	if _, _, err := service.GetOrCreateHolder(ctx, "a", "clan"); err != nil {
		t.Fatalf("GetOrCreateHolder failed: %v", err)
	}

	holders, count, err := service.ListHolders(ctx, HolderFilters{HolderType: "player"})
	if err != nil {
		t.Fatalf("ListHolders failed: %v", err)
	}
	if count != 3 || len(holders) != 3 {
		t.Errorf("Expected 3 players, got count=%d len=%d", count, len(holders))
	}

	holders, count, err = service.ListHolders(ctx, HolderFilters{HolderId: "a"})
	if err != nil {
		t.Fatalf("ListHolders failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 holders with id a, got %d", count)
	}

	holders, count, err = service.ListHolders(ctx, HolderFilters{HolderType: "player", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListHolders failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected total count 3 with pagination, got %d", count)
	}
	if len(holders) != 1 {
		t.Errorf("Expected 1 holder on the last page, got %d", len(holders))
	}
}
