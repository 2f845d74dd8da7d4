package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses. A transaction starts PENDING and is closed exactly
// once, into CONFIRMED or REJECTED.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
)

// CurrencyService represents a tenant of the billing system. Permissions
// holds the raw JSON permission document evaluated on every API call.
type CurrencyService struct {
	Id          string          `db:"id"`
	Name        string          `db:"name"`
	Enabled     bool            `db:"enabled"`
	Permissions json.RawMessage `db:"permissions"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// ServiceAuth holds the HMAC credentials of a currency service.
type ServiceAuth struct {
	Id              string    `db:"id"`
	ServiceId       string    `db:"service_id"`
	Key             string    `db:"key"`
	IsBattlemetrics bool      `db:"is_battlemetrics"`
	CreatedAt       time.Time `db:"created_at"`
}

// HolderType groups holders (e.g. "player", "clan").
type HolderType struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Holder is an owner of checking accounts, identified by an external id
// (such as a Steam id) scoped to its holder type.
type Holder struct {
	Id           string          `db:"id"`
	HolderId     string          `db:"holder_id"`
	HolderTypeId string          `db:"holder_type_id"`
	HolderType   string          `db:"holder_type"`
	Enabled      bool            `db:"enabled"`
	Info         json.RawMessage `db:"info"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// CurrencyUnit defines a currency: display symbol, measurement name,
// fractional precision and whether balances may go below zero.
type CurrencyUnit struct {
	Id                string    `db:"id"`
	Symbol            string    `db:"symbol"`
	Measurement       string    `db:"measurement"`
	Precision         int       `db:"precision"`
	IsNegativeAllowed bool      `db:"is_negative_allowed"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// CheckingAccount is the balance of one holder in one currency unit.
// Version guards concurrent balance updates (optimistic locking).
type CheckingAccount struct {
	Id        string          `db:"id"`
	HolderId  string          `db:"holder_id"`
	UnitId    string          `db:"currency_unit_id"`
	Amount    decimal.Decimal `db:"amount"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// AccountDetail is the joined read model for account listings.
type AccountDetail struct {
	HolderId   string          `db:"holder_id"`
	HolderType string          `db:"holder_type"`
	UnitSymbol string          `db:"unit_symbol"`
	Amount     decimal.Decimal `db:"amount"`
	CreatedAt  time.Time       `db:"created_at"`
}

// TransferRule constrains holder-to-holder transfers within a single
// currency unit. FeePercent is retained by the system on each transfer.
type TransferRule struct {
	Id            string          `db:"id"`
	Name          string          `db:"name"`
	UnitId        string          `db:"currency_unit_id"`
	Enabled       bool            `db:"enabled"`
	FeePercent    decimal.Decimal `db:"fee_percent"`
	MinFromAmount decimal.Decimal `db:"min_from_amount"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// ExchangeRule constrains exchanges between two currency units.
// ForwardRate applies first -> second, ReverseRate second -> first.
type ExchangeRule struct {
	Id              string          `db:"id"`
	Name            string          `db:"name"`
	FirstUnitId     string          `db:"first_unit_id"`
	SecondUnitId    string          `db:"second_unit_id"`
	ForwardRate     decimal.Decimal `db:"forward_rate"`
	ReverseRate     decimal.Decimal `db:"reverse_rate"`
	MinFirstAmount  decimal.Decimal `db:"min_first_amount"`
	MinSecondAmount decimal.Decimal `db:"min_second_amount"`
	EnabledForward  bool            `db:"enabled_forward"`
	EnabledReverse  bool            `db:"enabled_reverse"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// AdjustmentTransaction credits or debits a single checking account.
type AdjustmentTransaction struct {
	Uuid              string          `db:"uuid"`
	ServiceId         string          `db:"service_id"`
	ServiceName       string          `db:"service_name"`
	CheckingAccountId string          `db:"checking_account_id"`
	HolderId          string          `db:"holder_id"`
	UnitSymbol        string          `db:"unit_symbol"`
	Amount            decimal.Decimal `db:"amount"`
	Description       string          `db:"description"`
	Status            string          `db:"status"`
	StatusDescription string          `db:"status_description"`
	AutoRejectAfter   time.Time       `db:"auto_reject_after"`
	CreatedAt         time.Time       `db:"created_at"`
	ClosedAt          *time.Time      `db:"closed_at"`
}

// TransferTransaction moves funds between two accounts of the same unit.
// The rule reference is weak: removing a rule leaves its transactions in
// place with TransferRuleId and TransferRuleName cleared.
type TransferTransaction struct {
	Uuid             string          `db:"uuid"`
	ServiceId        string          `db:"service_id"`
	ServiceName      string          `db:"service_name"`
	TransferRuleId   string          `db:"transfer_rule_id"`
	TransferRuleName *string         `db:"transfer_rule_name"`
	FromAccountId    string          `db:"from_account_id"`
	ToAccountId      string          `db:"to_account_id"`
	FromHolderId     string          `db:"from_holder_id"`
	ToHolderId       string          `db:"to_holder_id"`
	UnitSymbol       string          `db:"unit_symbol"`
	FromAmount       decimal.Decimal `db:"from_amount"`
	ToAmount         decimal.Decimal `db:"to_amount"`
	Description      string          `db:"description"`
	Status           string          `db:"status"`
	StatusDesc       string          `db:"status_description"`
	AutoRejectAfter  time.Time       `db:"auto_reject_after"`
	CreatedAt        time.Time       `db:"created_at"`
	ClosedAt         *time.Time      `db:"closed_at"`
}

// ExchangeTransaction converts funds between two accounts of one holder
// in different currency units.
type ExchangeTransaction struct {
	Uuid             string          `db:"uuid"`
	ServiceId        string          `db:"service_id"`
	ServiceName      string          `db:"service_name"`
	ExchangeRuleId   string          `db:"exchange_rule_id"`
	ExchangeRuleName *string         `db:"exchange_rule_name"`
	FromAccountId    string          `db:"from_account_id"`
	ToAccountId      string          `db:"to_account_id"`
	HolderId         string          `db:"holder_id"`
	FromUnitSymbol   string          `db:"from_unit_symbol"`
	ToUnitSymbol     string          `db:"to_unit_symbol"`
	FromAmount       decimal.Decimal `db:"from_amount"`
	ToAmount         decimal.Decimal `db:"to_amount"`
	Description      string          `db:"description"`
	Status           string          `db:"status"`
	StatusDesc       string          `db:"status_description"`
	AutoRejectAfter  time.Time       `db:"auto_reject_after"`
	CreatedAt        time.Time       `db:"created_at"`
	ClosedAt         *time.Time      `db:"closed_at"`
}
