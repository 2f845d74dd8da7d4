package common

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gaming-billing-go/internal/database"
	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// BillingFile is the YAML seed describing currency units, holder types,
// rules and services. Applying it is idempotent: entries that already exist
// are left untouched.
type BillingFile struct {
	Units []struct {
		Symbol            string `yaml:"symbol"`
		Measurement       string `yaml:"measurement"`
		Precision         int    `yaml:"precision"`
		IsNegativeAllowed bool   `yaml:"is_negative_allowed"`
	} `yaml:"units"`

	HolderTypes []string `yaml:"holder_types"`

	TransferRules []struct {
		Name          string `yaml:"name"`
		Unit          string `yaml:"unit"`
		Enabled       bool   `yaml:"enabled"`
		FeePercent    string `yaml:"fee_percent"`
		MinFromAmount string `yaml:"min_from_amount"`
	} `yaml:"transfer_rules"`

	ExchangeRules []struct {
		Name            string `yaml:"name"`
		FirstUnit       string `yaml:"first_unit"`
		SecondUnit      string `yaml:"second_unit"`
		ForwardRate     string `yaml:"forward_rate"`
		ReverseRate     string `yaml:"reverse_rate"`
		MinFirstAmount  string `yaml:"min_first_amount"`
		MinSecondAmount string `yaml:"min_second_amount"`
		EnabledForward  bool   `yaml:"enabled_forward"`
		EnabledReverse  bool   `yaml:"enabled_reverse"`
	} `yaml:"exchange_rules"`

	Services []struct {
		Name            string `yaml:"name"`
		Enabled         bool   `yaml:"enabled"`
		Key             string `yaml:"key"`
		IsBattlemetrics bool   `yaml:"is_battlemetrics"`
		Permissions     string `yaml:"permissions"`
	} `yaml:"services"`
}

func LoadBillingFile(path string) (*BillingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read billing file: %w", err)
	}
	var file BillingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse billing file: %w", err)
	}
	return &file, nil
}

func parseSeedDecimal(text, fallback string) (decimal.Decimal, error) {
	if text == "" {
		text = fallback
	}
	return decimal.NewFromString(text)
}

// Apply creates every entity from the seed that does not exist yet.
func (f *BillingFile) Apply(ctx context.Context, db *database.Service) error {
	for _, unit := range f.Units {
		_, err := db.GetUnitBySymbol(ctx, unit.Symbol)
		if err == nil {
			continue
		}
		if !errs.IsNotFound(err) {
			return err
		}
		if _, err := db.CreateCurrencyUnit(ctx, unit.Symbol, unit.Measurement, unit.Precision, unit.IsNegativeAllowed); err != nil {
			return fmt.Errorf("unable to create unit %q: %w", unit.Symbol, err)
		}
		zap.L().Info("Created currency unit", zap.String("symbol", unit.Symbol))
	}

	for _, name := range f.HolderTypes {
		if _, err := db.GetOrCreateHolderType(ctx, name); err != nil {
			return fmt.Errorf("unable to create holder type %q: %w", name, err)
		}
	}

	for _, rule := range f.TransferRules {
		_, err := db.GetTransferRuleByName(ctx, rule.Name)
		if err == nil {
			continue
		}
		if !errs.IsNotFound(err) {
			return err
		}
		unit, err := db.GetUnitBySymbol(ctx, rule.Unit)
		if err != nil {
			return fmt.Errorf("transfer rule %q: %w", rule.Name, err)
		}
		feePercent, err := parseSeedDecimal(rule.FeePercent, "0")
		if err != nil {
			return fmt.Errorf("transfer rule %q: invalid fee_percent: %w", rule.Name, err)
		}
		minFromAmount, err := parseSeedDecimal(rule.MinFromAmount, "0")
		if err != nil {
			return fmt.Errorf("transfer rule %q: invalid min_from_amount: %w", rule.Name, err)
		}
		if _, err := db.CreateTransferRule(ctx, rule.Name, unit.Id, rule.Enabled, feePercent, minFromAmount); err != nil {
			return fmt.Errorf("unable to create transfer rule %q: %w", rule.Name, err)
		}
		zap.L().Info("Created transfer rule", zap.String("name", rule.Name))
	}

	for _, rule := range f.ExchangeRules {
		_, err := db.GetExchangeRuleByName(ctx, rule.Name)
		if err == nil {
			continue
		}
		if !errs.IsNotFound(err) {
			return err
		}
		firstUnit, err := db.GetUnitBySymbol(ctx, rule.FirstUnit)
		if err != nil {
			return fmt.Errorf("exchange rule %q: %w", rule.Name, err)
		}
		secondUnit, err := db.GetUnitBySymbol(ctx, rule.SecondUnit)
		if err != nil {
			return fmt.Errorf("exchange rule %q: %w", rule.Name, err)
		}
		forwardRate, err := parseSeedDecimal(rule.ForwardRate, "1")
		if err != nil {
			return fmt.Errorf("exchange rule %q: invalid forward_rate: %w", rule.Name, err)
		}
		reverseRate, err := parseSeedDecimal(rule.ReverseRate, "1")
		if err != nil {
			return fmt.Errorf("exchange rule %q: invalid reverse_rate: %w", rule.Name, err)
		}
		minFirst, err := parseSeedDecimal(rule.MinFirstAmount, "0")
		if err != nil {
			return fmt.Errorf("exchange rule %q: invalid min_first_amount: %w", rule.Name, err)
		}
		minSecond, err := parseSeedDecimal(rule.MinSecondAmount, "0")
		if err != nil {
			return fmt.Errorf("exchange rule %q: invalid min_second_amount: %w", rule.Name, err)
		}
		created := &models.ExchangeRule{
			Name:            rule.Name,
			FirstUnitId:     firstUnit.Id,
			SecondUnitId:    secondUnit.Id,
			ForwardRate:     forwardRate,
			ReverseRate:     reverseRate,
			MinFirstAmount:  minFirst,
			MinSecondAmount: minSecond,
			EnabledForward:  rule.EnabledForward,
			EnabledReverse:  rule.EnabledReverse,
		}
		if _, err := db.CreateExchangeRule(ctx, created); err != nil {
			return fmt.Errorf("unable to create exchange rule %q: %w", rule.Name, err)
		}
		zap.L().Info("Created exchange rule", zap.String("name", rule.Name))
	}

	for _, service := range f.Services {
		_, err := db.GetServiceByName(ctx, service.Name)
		if err == nil {
			continue
		}
		if !errs.IsNotFound(err) {
			return err
		}
		permissions := service.Permissions
		if permissions == "" {
			permissions = "{}"
		}
		if _, err := db.CreateService(ctx, service.Name, service.Enabled,
			json.RawMessage(permissions), service.Key, service.IsBattlemetrics); err != nil {
			return fmt.Errorf("unable to create service %q: %w", service.Name, err)
		}
		zap.L().Info("Created service",
			zap.String("name", service.Name),
			zap.Bool("battlemetrics", service.IsBattlemetrics))
	}
	return nil
}
