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

// Package hmacauth validates signed API requests. Two signature schemes
// exist: the timestamp scheme signs "{timestamp}.{fullPath}.{rawBody}"
// with the timestamp and signature in dedicated headers, and the
// Battlemetrics scheme signs "{timestamp}.{rawBody}" with both values
// packed into a single "t=<iso>,s=<hex>" header.
package hmacauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"net/http"
	"regexp"
	"time"

	"gaming-billing-go/internal/errs"
	"gaming-billing-go/internal/models"
)

// Validator checks the signature of a request against a service's secret
// key. The raw body is passed separately because the middleware has
// already consumed the request body.
type Validator interface {
	Validate(r *http.Request, body []byte, secretKey string) error
}

func hashFunc(hashType string) (func() hash.Hash, error) {
	switch hashType {
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported hash type: %q", hashType)
	}
}

func sign(key string, newHash func() hash.Hash, parts ...[]byte) string {
	mac := hmac.New(newHash, []byte(key))
	for _, part := range parts {
		mac.Write(part)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// SignTimestamp computes the timestamp-scheme signature for a request.
// Exposed so clients (and tests) can sign outgoing requests.
func SignTimestamp(key, hashType, timestamp, fullPath string, body []byte) (string, error) {
	newHash, err := hashFunc(hashType)
	if err != nil {
		return "", err
	}
	return sign(key, newHash, []byte(timestamp+"."+fullPath+"."), body), nil
}

// SignBattlemetrics computes the Battlemetrics-scheme signature.
func SignBattlemetrics(key, hashType, timestamp string, body []byte) (string, error) {
	newHash, err := hashFunc(hashType)
	if err != nil {
		return "", err
	}
	return sign(key, newHash, []byte(timestamp+"."), body), nil
}

func validateTimestampText(text string, deviation time.Duration) error {
	// RFC 3339 requires an explicit offset, so a zoneless timestamp
	// fails the parse.
	timestamp, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return errs.Validation("Timestamp in HMAC header have not valid format, required iso format")
	}

	now := time.Now()
	if !(timestamp.After(now.Add(-deviation)) && timestamp.Before(now.Add(deviation))) {
		return errs.Validation("Timestamp is very old or very far in the future")
	}
	return nil
}

func compareSignatures(got, want string) error {
	if !hmac.Equal([]byte(got), []byte(want)) {
		return errs.Validation("Request body, signature or secret key is corrupted, hmac does not match")
	}
	return nil
}

// TimestampValidator implements the timestamp scheme.
type TimestampValidator struct {
	hashType        string
	deviation       time.Duration
	signatureHeader string
	timestampHeader string
}

func NewTimestampValidator(cfg models.HMACConfig) *TimestampValidator {
	return &TimestampValidator{
		hashType:        cfg.HashType,
		deviation:       cfg.TimestampDeviation,
		signatureHeader: cfg.SignatureHeader,
		timestampHeader: cfg.TimestampHeader,
	}
}

func (v *TimestampValidator) Validate(r *http.Request, body []byte, secretKey string) error {
	got := r.Header.Get(v.signatureHeader)
	if got == "" {
		return errs.Validation("HMAC header is not found")
	}

	timestamp := r.Header.Get(v.timestampHeader)
	if timestamp == "" {
		return errs.Validation("Timestamp header is not found")
	}
	if err := validateTimestampText(timestamp, v.deviation); err != nil {
		return err
	}

	want, err := SignTimestamp(secretKey, v.hashType, timestamp, r.URL.RequestURI(), body)
	if err != nil {
		return err
	}
	return compareSignatures(got, want)
}

// BattlemetricsValidator implements the packed-header scheme.
type BattlemetricsValidator struct {
	hashType        string
	deviation       time.Duration
	signatureHeader string
	signatureRegex  *regexp.Regexp
	timestampRegex  *regexp.Regexp
}

func NewBattlemetricsValidator(cfg models.HMACConfig) (*BattlemetricsValidator, error) {
	signatureRegex, err := regexp.Compile(cfg.BattlemetricsSignatureRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid battlemetrics signature regex: %w", err)
	}
	timestampRegex, err := regexp.Compile(cfg.BattlemetricsTimestampRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid battlemetrics timestamp regex: %w", err)
	}
	return &BattlemetricsValidator{
		hashType:        cfg.HashType,
		deviation:       cfg.TimestampDeviation,
		signatureHeader: cfg.SignatureHeader,
		signatureRegex:  signatureRegex,
		timestampRegex:  timestampRegex,
	}, nil
}

func (v *BattlemetricsValidator) Validate(r *http.Request, body []byte, secretKey string) error {
	header := r.Header.Get(v.signatureHeader)
	if header == "" {
		return errs.Validation("HMAC header is not found")
	}

	signatureMatch := v.signatureRegex.FindStringSubmatch(header)
	if signatureMatch == nil {
		return errs.Validation("Signature not found")
	}
	got := signatureMatch[len(signatureMatch)-1]

	timestampMatch := v.timestampRegex.FindStringSubmatch(header)
	if timestampMatch == nil {
		return errs.Validation("Timestamp in HMAC header not found")
	}
	timestamp := timestampMatch[len(timestampMatch)-1]

	if err := validateTimestampText(timestamp, v.deviation); err != nil {
		return err
	}

	want, err := SignBattlemetrics(secretKey, v.hashType, timestamp, body)
	if err != nil {
		return err
	}
	return compareSignatures(got, want)
}
