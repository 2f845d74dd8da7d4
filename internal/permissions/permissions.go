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

// Package permissions evaluates per-service JSON permission documents.
//
// A document looks like:
//
//	{
//	    "root": false,
//	    "adjustments": {
//	        "enabled": true,
//	        "create": {"enabled": true, "min_amount": -100, "max_amount": 100},
//	        "confirm": {"enabled": true, "services": ["shop"]},
//	        "reject": {"enabled": true, "services": ["shop"]}
//	    }
//	}
//
// root:true bypasses every check. Everything else fails closed: a missing
// key denies the operation it gates.
package permissions

import (
	"bytes"
	"encoding/json"

	"gaming-billing-go/internal/errs"

	"github.com/shopspring/decimal"
)

// Section keys recognised in permission documents.
const (
	SectionAdjustments = "adjustments"
	SectionTransfers   = "transfers"
	SectionExchanges   = "exchanges"
	SectionHolders     = "holders"
	SectionAccounts    = "accounts"
	SectionUnits       = "units"
)

// verboseNames maps a section key to the name used in error messages.
var verboseNames = map[string]string{
	SectionUnits: "currency units",
}

// rangeLimit is a parsed min/max pair. badType records that a present
// value could not be interpreted as a number.
type rangeLimit struct {
	min     *decimal.Decimal
	max     *decimal.Decimal
	badType bool
}

type createAction struct {
	enabled    *bool
	amount     rangeLimit
	autoReject rangeLimit
}

type serviceAction struct {
	enabled  *bool
	services []string
	// distinguishes an absent "services" key from an empty list
	hasServices bool
}

type toggleAction struct {
	enabled *bool
}

type section struct {
	enabled *bool
	create  *createAction
	confirm *serviceAction
	reject  *serviceAction
	update  *toggleAction
}

// Doc is a permission document projected into typed form. Unknown keys are
// ignored; nil pointers mark keys absent from the source document.
type Doc struct {
	root     bool
	sections map[string]*section
}

// Parse projects raw JSON into a Doc. Numbers are kept exact via
// json.Number so decimal limits never pass through a float.
func Parse(raw []byte) (*Doc, error) {
	doc := &Doc{sections: make(map[string]*section)}
	if len(raw) == 0 {
		return doc, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var top map[string]any
	if err := decoder.Decode(&top); err != nil {
		return nil, err
	}

	if root, ok := top["root"].(bool); ok {
		doc.root = root
	}

	for _, key := range []string{
		SectionAdjustments, SectionTransfers, SectionExchanges,
		SectionHolders, SectionAccounts, SectionUnits,
	} {
		rawSection, ok := top[key].(map[string]any)
		if !ok {
			continue
		}
		doc.sections[key] = parseSection(rawSection)
	}
	return doc, nil
}

func parseSection(raw map[string]any) *section {
	s := &section{enabled: parseBool(raw, "enabled")}

	if rawCreate, ok := raw["create"].(map[string]any); ok {
		s.create = &createAction{
			enabled: parseBool(rawCreate, "enabled"),
			amount: parseRange(rawCreate, "min_amount", "max_amount"),
			autoReject: parseRange(rawCreate, "min_auto_reject", "max_auto_reject"),
		}
	}
	if rawConfirm, ok := raw["confirm"].(map[string]any); ok {
		s.confirm = parseServiceAction(rawConfirm)
	}
	if rawReject, ok := raw["reject"].(map[string]any); ok {
		s.reject = parseServiceAction(rawReject)
	}
	if rawUpdate, ok := raw["update"].(map[string]any); ok {
		s.update = &toggleAction{enabled: parseBool(rawUpdate, "enabled")}
	}
	return s
}

func parseServiceAction(raw map[string]any) *serviceAction {
	action := &serviceAction{enabled: parseBool(raw, "enabled")}
	rawServices, ok := raw["services"]
	if !ok {
		return action
	}
	action.hasServices = true
	if list, ok := rawServices.([]any); ok {
		for _, item := range list {
			if name, ok := item.(string); ok {
				action.services = append(action.services, name)
			}
		}
	}
	return action
}

func parseBool(raw map[string]any, key string) *bool {
	value, ok := raw[key]
	if !ok {
		return nil
	}
	b, _ := value.(bool)
	return &b
}

func parseRange(raw map[string]any, minKey, maxKey string) rangeLimit {
	var limit rangeLimit
	limit.min, limit.badType = parseDecimal(raw, minKey, limit.badType)
	limit.max, limit.badType = parseDecimal(raw, maxKey, limit.badType)
	return limit
}

func parseDecimal(raw map[string]any, key string, badType bool) (*decimal.Decimal, bool) {
	value, ok := raw[key]
	if !ok {
		return nil, badType
	}
	switch v := value.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return &d, badType
		}
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return &d, badType
		}
	}
	return nil, true
}

// Enforcer evaluates one section of a document.
type Enforcer struct {
	doc     *Doc
	key     string
	verbose string
}

func NewEnforcer(doc *Doc, sectionKey string) *Enforcer {
	verbose := sectionKey
	if v, ok := verboseNames[sectionKey]; ok {
		verbose = v
	}
	return &Enforcer{doc: doc, key: sectionKey, verbose: verbose}
}

func (e *Enforcer) missing(key string) error {
	return errs.Permissionf("%s: Missing required permission '%s'", e.verbose, key)
}

func (e *Enforcer) denied(message string) error {
	return errs.Permissionf("%s: %s", e.verbose, message)
}

// checkAccess verifies <section>.enabled == true.
func (e *Enforcer) checkAccess() (*section, error) {
	s, ok := e.doc.sections[e.key]
	if !ok {
		return nil, e.missing(e.key)
	}
	if s.enabled == nil {
		return nil, e.missing("enabled")
	}
	if !*s.enabled {
		return nil, e.denied("Access is disabled")
	}
	return s, nil
}

func (e *Enforcer) EnforceAccess() error {
	if e.doc.root {
		return nil
	}
	_, err := e.checkAccess()
	return err
}

func (e *Enforcer) EnforceCreate() error {
	if e.doc.root {
		return nil
	}
	s, err := e.checkAccess()
	if err != nil {
		return err
	}
	if s.create == nil {
		return e.missing("create")
	}
	if s.create.enabled == nil {
		return e.missing("enabled")
	}
	if !*s.create.enabled {
		return e.denied("Creating is disabled")
	}
	return nil
}

// EnforceAmount requires min_amount < amount < max_amount, both strict.
func (e *Enforcer) EnforceAmount(amount decimal.Decimal) error {
	if e.doc.root {
		return nil
	}
	s, err := e.checkAccess()
	if err != nil {
		return err
	}
	if s.create == nil {
		return e.missing("create")
	}
	if s.create.amount.badType {
		return e.denied("Error in min_amount or in max_amount permission")
	}
	if s.create.amount.max == nil {
		return e.missing("max_amount")
	}
	if s.create.amount.min == nil {
		return e.missing("min_amount")
	}
	if !(amount.GreaterThan(*s.create.amount.min) && amount.LessThan(*s.create.amount.max)) {
		return e.denied("Amount is out of range")
	}
	return nil
}

// EnforceAutoRejectTimeout requires min_auto_reject < seconds < max_auto_reject.
func (e *Enforcer) EnforceAutoRejectTimeout(seconds int64) error {
	if e.doc.root {
		return nil
	}
	s, err := e.checkAccess()
	if err != nil {
		return err
	}
	if s.create == nil {
		return e.missing("create")
	}
	if s.create.autoReject.badType {
		return e.denied("Error in min_auto_reject or in max_auto_reject permission")
	}
	if s.create.autoReject.max == nil {
		return e.missing("max_auto_reject")
	}
	if s.create.autoReject.min == nil {
		return e.missing("min_auto_reject")
	}
	timeout := decimal.NewFromInt(seconds)
	if !(timeout.GreaterThan(*s.create.autoReject.min) && timeout.LessThan(*s.create.autoReject.max)) {
		return e.denied("Auto reject timeout is out of range")
	}
	return nil
}

func (e *Enforcer) EnforceConfirm(serviceName string) error {
	return e.enforceClose("confirm", serviceName)
}

func (e *Enforcer) EnforceReject(serviceName string) error {
	return e.enforceClose("reject", serviceName)
}

func (e *Enforcer) enforceClose(action, serviceName string) error {
	if e.doc.root {
		return nil
	}
	s, err := e.checkAccess()
	if err != nil {
		return err
	}

	var closeAction *serviceAction
	var disabled string
	if action == "confirm" {
		closeAction = s.confirm
		disabled = "Confirm is disabled"
	} else {
		closeAction = s.reject
		disabled = "Reject is disabled"
	}

	if closeAction == nil {
		return e.missing(action)
	}
	if closeAction.enabled == nil {
		return e.missing("enabled")
	}
	if !*closeAction.enabled {
		return e.denied(disabled)
	}
	if !closeAction.hasServices {
		return e.missing("services")
	}
	for _, name := range closeAction.services {
		if name == serviceName {
			return nil
		}
	}
	return e.denied("No access to " + action + " the transaction from another service")
}

func (e *Enforcer) EnforceUpdate() error {
	if e.doc.root {
		return nil
	}
	s, err := e.checkAccess()
	if err != nil {
		return err
	}
	if s.update == nil {
		return e.missing("update")
	}
	if s.update.enabled == nil {
		return e.missing("enabled")
	}
	if !*s.update.enabled {
		return e.denied("Updating is disabled")
	}
	return nil
}
