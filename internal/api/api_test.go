package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/hmacauth"
	"gaming-billing-go/internal/ledger"
	"gaming-billing-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db     *database.Service
	cfg    *models.Config
	server *httptest.Server
}

func testServerConfig() *models.Config {
	return &models.Config{
		HMAC: models.HMACConfig{
			EnableValidation:   true,
			TimestampDeviation: time.Minute,
			HashType:           "sha256",
			ServiceHeader:      "X-SERVICE",
			SignatureHeader:    "X-SIGNATURE",
			TimestampHeader:    "X-SIGNATURE-TIMESTAMP",

			BattlemetricsSignatureRegex: `s=([A-Za-z0-9_]+)`,
			BattlemetricsTimestampRegex: `t=([\w\-:.+]+)`,
		},
		Billing: models.BillingConfig{
			DefaultAutoReject:     3 * time.Minute,
			DefaultHolderTypeSlug: "player",
		},
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            dsn,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	cfg := testServerConfig()
	adjustments := ledger.NewAdjustmentsService(db)
	transfers := ledger.NewTransfersService(db)
	exchanges := ledger.NewExchangesService(db)

	server, err := NewServer(db, cfg, adjustments, transfers, exchanges)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, cfg: cfg, server: ts}
}

// signedRequest performs a request signed with the timestamp scheme.
func (e *testEnv) signedRequest(t *testing.T, method, path, serviceName, key string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	r, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)

	timestamp := time.Now().UTC().Format(time.RFC3339)
	signature, err := hmacauth.SignTimestamp(key, e.cfg.HMAC.HashType, timestamp, path, raw)
	require.NoError(t, err)

	r.Header.Set(e.cfg.HMAC.ServiceHeader, serviceName)
	r.Header.Set(e.cfg.HMAC.SignatureHeader, signature)
	r.Header.Set(e.cfg.HMAC.TimestampHeader, timestamp)

	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp, decoded
}

func (e *testEnv) seedRootService(t *testing.T, name, key string) {
	t.Helper()
	_, err := e.db.CreateService(context.Background(), name, true,
		json.RawMessage(`{"root": true}`), key, false)
	require.NoError(t, err)
}

func (e *testEnv) seedUnitAndHolder(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := e.db.CreateCurrencyUnit(ctx, "COIN", "coins", 2, false)
	require.NoError(t, err)
	_, _, err = e.db.GetOrCreateHolder(ctx, "76561198000000001", "player")
	require.NoError(t, err)
}

func TestAdjustmentLifecycleOverHTTP(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")
	env.seedUnitAndHolder(t)

	resp, created := env.signedRequest(t, "POST", "/adjustments/create/", "shop", "secret", map[string]any{
		"holder_id":   "76561198000000001",
		"unit_symbol": "COIN",
		"amount":      "25.50",
		"description": "quest reward",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", created)
	assert.Equal(t, "PENDING", created["status"])
	assert.Equal(t, "25.5", created["amount"])
	assert.Equal(t, "shop", created["service"])
	uuid := created["uuid"].(string)

	resp, confirmed := env.signedRequest(t, "POST", "/adjustments/confirm/", "shop", "secret", map[string]any{
		"uuid":               uuid,
		"status_description": "delivered",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", confirmed["status"])
	assert.Equal(t, "delivered", confirmed["status_description"])
	assert.NotNil(t, confirmed["closed_at"])

	resp, account := env.signedRequest(t, "GET",
		"/accounts/detail/?holder_id=76561198000000001&unit_symbol=COIN", "shop", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "25.5", account["amount"])

	// confirming again is a validation error with the standard envelope
	resp, envlp := env.signedRequest(t, "POST", "/adjustments/confirm/", "shop", "secret", map[string]any{
		"uuid": uuid,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation error", envlp["message"])
	extra := envlp["extra"].(map[string]any)
	fields := extra["fields"].(map[string]any)
	nonField := fields["non_field_errors"].([]any)
	assert.Equal(t, "The transaction has already been closed", nonField[0])
}

func TestAuthFailures(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")

	// no service header
	r, err := http.NewRequest("GET", env.server.URL+"/units/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// unknown service
	resp2, body := env.signedRequest(t, "GET", "/units/", "ghost", "secret", nil)
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	assert.Equal(t, "Service not found", body["message"])

	// wrong key
	resp3, body := env.signedRequest(t, "GET", "/units/", "shop", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, resp3.StatusCode)
	assert.Equal(t, "Request body, signature or secret key is corrupted, hmac does not match", body["message"])
}

func TestDisabledServiceIsRejected(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.db.CreateService(context.Background(), "paused", false,
		json.RawMessage(`{"root": true}`), "secret", false)
	require.NoError(t, err)

	resp, body := env.signedRequest(t, "GET", "/units/", "paused", "secret", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Service disabled", body["message"])
}

func TestPermissionDenied(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.db.CreateService(context.Background(), "limited", true,
		json.RawMessage(`{"adjustments": {"enabled": true, "create": {"enabled": false}}}`),
		"secret", false)
	require.NoError(t, err)

	resp, body := env.signedRequest(t, "POST", "/adjustments/create/", "limited", "secret", map[string]any{
		"holder_id": "x", "unit_symbol": "COIN", "amount": "1",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "adjustments: Creating is disabled", body["message"])

	resp, body = env.signedRequest(t, "GET", "/units/", "limited", "secret", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "currency units: Missing required permission 'units'", body["message"])
}

func TestUnknownEntitiesAre404(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")
	env.seedUnitAndHolder(t)

	resp, body := env.signedRequest(t, "POST", "/adjustments/create/", "shop", "secret", map[string]any{
		"holder_id": "nobody", "unit_symbol": "COIN", "amount": "1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Holder not found", body["message"])

	resp, body = env.signedRequest(t, "POST", "/adjustments/create/", "shop", "secret", map[string]any{
		"holder_id": "76561198000000001", "unit_symbol": "GOLD", "amount": "1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Currency unit not found", body["message"])
}

func TestHolderEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")

	resp, holder := env.signedRequest(t, "POST", "/holders/create/", "shop", "secret", map[string]any{
		"holder_id": "1000",
		"info":      map[string]any{"nickname": "steve"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", holder)
	assert.Equal(t, "1000", holder["holder_id"])
	assert.Equal(t, "player", holder["holder_type"])
	assert.Equal(t, true, holder["enabled"])
	assert.Equal(t, true, holder["created_now"])

	// creating again returns the existing holder
	resp, existing := env.signedRequest(t, "POST", "/holders/create/", "shop", "secret", map[string]any{
		"holder_id": "1000",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, existing["created_now"])

	resp, updated := env.signedRequest(t, "POST", "/holders/update/", "shop", "secret", map[string]any{
		"holder_id": "1000",
		"enabled":   false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, updated["enabled"])

	resp, listing := env.signedRequest(t, "GET", "/holders/?holder_type=player", "shop", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), listing["count"])

	resp, fetched := env.signedRequest(t, "GET", "/holders/detail/?holder_id=1000", "shop", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := fetched["info"].(map[string]any)
	assert.Equal(t, "steve", info["nickname"])
}

func TestTransferOverHTTP(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")
	ctx := context.Background()

	unit, err := env.db.CreateCurrencyUnit(ctx, "COIN", "coins", 2, false)
	require.NoError(t, err)
	_, err = env.db.CreateTransferRule(ctx, "coin-transfer", unit.Id, true,
		decimal.NewFromInt(10), decimal.NewFromInt(1))
	require.NoError(t, err)

	alice, _, err := env.db.GetOrCreateHolder(ctx, "alice", "player")
	require.NoError(t, err)
	_, _, err = env.db.GetOrCreateHolder(ctx, "bob", "player")
	require.NoError(t, err)
	aliceAccount, err := env.db.GetOrCreateAccount(ctx, alice.Id, unit.Id)
	require.NoError(t, err)

	// fund alice directly through the engine
	engine := ledger.NewAdjustmentsService(env.db)
	tenant, err := env.db.GetServiceByName(ctx, "shop")
	require.NoError(t, err)
	funding, err := engine.Create(ctx, tenant, aliceAccount, decimal.NewFromInt(100), "", time.Minute)
	require.NoError(t, err)
	_, err = engine.Confirm(ctx, funding.Uuid, "")
	require.NoError(t, err)

	resp, transfer := env.signedRequest(t, "POST", "/transfers/create/", "shop", "secret", map[string]any{
		"transfer_rule":  "coin-transfer",
		"from_holder_id": "alice",
		"to_holder_id":   "bob",
		"amount":         "50",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", transfer)
	assert.Equal(t, "coin-transfer", transfer["transfer_rule"])
	assert.Equal(t, "50", transfer["from_amount"])
	assert.Equal(t, "45", transfer["to_amount"])

	resp, confirmed := env.signedRequest(t, "POST", "/transfers/confirm/", "shop", "secret", map[string]any{
		"uuid": transfer["uuid"],
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", confirmed["status"])

	resp, account := env.signedRequest(t, "GET",
		"/accounts/detail/?holder_id=bob&unit_symbol=COIN", "shop", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "45", account["amount"])
}

func TestExchangeOverHTTP(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")
	ctx := context.Background()

	coin, err := env.db.CreateCurrencyUnit(ctx, "COIN", "coins", 2, false)
	require.NoError(t, err)
	gem, err := env.db.CreateCurrencyUnit(ctx, "GEM", "gems", 0, false)
	require.NoError(t, err)
	_, err = env.db.CreateExchangeRule(ctx, &models.ExchangeRule{
		Name:            "coin-gem",
		FirstUnitId:     coin.Id,
		SecondUnitId:    gem.Id,
		ForwardRate:     decimal.NewFromInt(100),
		ReverseRate:     decimal.NewFromInt(100),
		MinFirstAmount:  decimal.NewFromInt(100),
		MinSecondAmount: decimal.NewFromInt(1),
		EnabledForward:  true,
		EnabledReverse:  true,
	})
	require.NoError(t, err)

	holder, _, err := env.db.GetOrCreateHolder(ctx, "carol", "player")
	require.NoError(t, err)
	coinAccount, err := env.db.GetOrCreateAccount(ctx, holder.Id, coin.Id)
	require.NoError(t, err)

	engine := ledger.NewAdjustmentsService(env.db)
	tenant, err := env.db.GetServiceByName(ctx, "shop")
	require.NoError(t, err)
	funding, err := engine.Create(ctx, tenant, coinAccount, decimal.NewFromInt(500), "", time.Minute)
	require.NoError(t, err)
	_, err = engine.Confirm(ctx, funding.Uuid, "")
	require.NoError(t, err)

	resp, exchange := env.signedRequest(t, "POST", "/exchanges/create/", "shop", "secret", map[string]any{
		"exchange_rule": "coin-gem",
		"holder_id":     "carol",
		"from_unit":     "COIN",
		"to_unit":       "GEM",
		"from_amount":   "300",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", exchange)
	assert.Equal(t, "coin-gem", exchange["exchange_rule"])
	assert.Equal(t, "300", exchange["from_amount"])
	assert.Equal(t, "3", exchange["to_amount"])

	resp, confirmed := env.signedRequest(t, "POST", "/exchanges/confirm/", "shop", "secret", map[string]any{
		"uuid": exchange["uuid"],
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", confirmed["status"])

	resp, account := env.signedRequest(t, "GET",
		"/accounts/detail/?holder_id=carol&unit_symbol=GEM", "shop", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "3", account["amount"])
}

func TestBattlemetricsSchemeOverHTTP(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.db.CreateService(context.Background(), "battlemetrics", true,
		json.RawMessage(`{"root": true}`), "bm-secret", true)
	require.NoError(t, err)

	timestamp := time.Now().UTC().Format(time.RFC3339)
	signature, err := hmacauth.SignBattlemetrics("bm-secret", env.cfg.HMAC.HashType, timestamp, nil)
	require.NoError(t, err)

	r, err := http.NewRequest("GET", env.server.URL+"/units/", nil)
	require.NoError(t, err)
	r.Header.Set(env.cfg.HMAC.ServiceHeader, "battlemetrics")
	r.Header.Set(env.cfg.HMAC.SignatureHeader, fmt.Sprintf("t=%s,s=%s", timestamp, signature))

	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidationEnvelopeForMissingFields(t *testing.T) {
	env := setupTestEnv(t)
	env.seedRootService(t, "shop", "secret")

	resp, body := env.signedRequest(t, "POST", "/adjustments/create/", "shop", "secret", map[string]any{
		"unit_symbol": "COIN", "amount": "1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation error", body["message"])
	fields := body["extra"].(map[string]any)["fields"].(map[string]any)
	holderErrors := fields["holder_id"].([]any)
	assert.Equal(t, "This field is required", holderErrors[0])
}
