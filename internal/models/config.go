package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	HMAC     HMACConfig
	Billing  BillingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP server and background worker settings
type ServerConfig struct {
	ListenAddr        string
	SweepInterval     time.Duration
	CollapseInterval  time.Duration
	CollapseOlderThan time.Duration
	CollapseServices  []string
}

// HMACConfig holds request signature validation settings
type HMACConfig struct {
	EnableValidation   bool
	TimestampDeviation time.Duration
	HashType           string
	ServiceHeader      string
	SignatureHeader    string
	TimestampHeader    string

	// Battlemetrics packs timestamp and signature into a single header;
	// these regexes extract them (submatch 1).
	BattlemetricsSignatureRegex string
	BattlemetricsTimestampRegex string
}

// BillingConfig holds domain defaults
type BillingConfig struct {
	DefaultAutoReject     time.Duration
	DefaultHolderTypeSlug string
	SeedFile              string
}
