package permissions

import (
	"testing"

	"gaming-billing-go/internal/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *Doc {
	t.Helper()
	doc, err := Parse([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestRootBypassesEverything(t *testing.T) {
	doc := mustParse(t, `{"root": true}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	assert.NoError(t, enforcer.EnforceAccess())
	assert.NoError(t, enforcer.EnforceCreate())
	assert.NoError(t, enforcer.EnforceAmount(decimal.NewFromInt(1000000)))
	assert.NoError(t, enforcer.EnforceAutoRejectTimeout(999999))
	assert.NoError(t, enforcer.EnforceConfirm("other-service"))
	assert.NoError(t, enforcer.EnforceReject("other-service"))
	assert.NoError(t, enforcer.EnforceUpdate())
}

func TestEmptyDocumentDeniesWithMissingKeys(t *testing.T) {
	doc := mustParse(t, `{}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	err := enforcer.EnforceAccess()
	require.Error(t, err)
	assert.True(t, errs.IsPermission(err))
	assert.Equal(t, "adjustments: Missing required permission 'adjustments'", err.Error())
}

func TestAccessDisabled(t *testing.T) {
	doc := mustParse(t, `{"adjustments": {"enabled": false}}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	err := enforcer.EnforceAccess()
	require.Error(t, err)
	assert.Equal(t, "adjustments: Access is disabled", err.Error())
}

func TestEnabledKeyMissing(t *testing.T) {
	doc := mustParse(t, `{"adjustments": {"create": {"enabled": true}}}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	err := enforcer.EnforceAccess()
	require.Error(t, err)
	assert.Equal(t, "adjustments: Missing required permission 'enabled'", err.Error())
}

func TestCreateGate(t *testing.T) {
	enforcer := NewEnforcer(mustParse(t, `{"adjustments": {"enabled": true}}`), SectionAdjustments)
	err := enforcer.EnforceCreate()
	require.Error(t, err)
	assert.Equal(t, "adjustments: Missing required permission 'create'", err.Error())

	enforcer = NewEnforcer(mustParse(t,
		`{"adjustments": {"enabled": true, "create": {"enabled": false}}}`), SectionAdjustments)
	err = enforcer.EnforceCreate()
	require.Error(t, err)
	assert.Equal(t, "adjustments: Creating is disabled", err.Error())

	enforcer = NewEnforcer(mustParse(t,
		`{"adjustments": {"enabled": true, "create": {"enabled": true}}}`), SectionAdjustments)
	assert.NoError(t, enforcer.EnforceCreate())
}

func TestAmountRangeIsStrict(t *testing.T) {
	doc := mustParse(t, `{"adjustments": {"enabled": true,
		"create": {"enabled": true, "min_amount": -100, "max_amount": 100}}}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	assert.NoError(t, enforcer.EnforceAmount(decimal.NewFromInt(99)))
	assert.NoError(t, enforcer.EnforceAmount(decimal.NewFromInt(-99)))

	// bounds are exclusive
	err := enforcer.EnforceAmount(decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Equal(t, "adjustments: Amount is out of range", err.Error())
	assert.Error(t, enforcer.EnforceAmount(decimal.NewFromInt(-100)))
	assert.Error(t, enforcer.EnforceAmount(decimal.NewFromInt(101)))
}

func TestAmountLimitsMissingOrBroken(t *testing.T) {
	// max_amount is reported missing before min_amount
	doc := mustParse(t, `{"adjustments": {"enabled": true, "create": {"enabled": true}}}`)
	err := NewEnforcer(doc, SectionAdjustments).EnforceAmount(decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Equal(t, "adjustments: Missing required permission 'max_amount'", err.Error())

	doc = mustParse(t, `{"adjustments": {"enabled": true,
		"create": {"enabled": true, "max_amount": 100}}}`)
	err = NewEnforcer(doc, SectionAdjustments).EnforceAmount(decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Equal(t, "adjustments: Missing required permission 'min_amount'", err.Error())

	doc = mustParse(t, `{"adjustments": {"enabled": true,
		"create": {"enabled": true, "min_amount": "broken", "max_amount": 100}}}`)
	err = NewEnforcer(doc, SectionAdjustments).EnforceAmount(decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Equal(t, "adjustments: Error in min_amount or in max_amount permission", err.Error())
}

func TestAmountLimitsAcceptStrings(t *testing.T) {
	doc := mustParse(t, `{"adjustments": {"enabled": true,
		"create": {"enabled": true, "min_amount": "-10.5", "max_amount": "10.5"}}}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	assert.NoError(t, enforcer.EnforceAmount(decimal.RequireFromString("10.49")))
	assert.Error(t, enforcer.EnforceAmount(decimal.RequireFromString("10.5")))
}

func TestAutoRejectTimeoutRange(t *testing.T) {
	doc := mustParse(t, `{"adjustments": {"enabled": true,
		"create": {"enabled": true, "min_auto_reject": 10, "max_auto_reject": 600}}}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	assert.NoError(t, enforcer.EnforceAutoRejectTimeout(60))
	err := enforcer.EnforceAutoRejectTimeout(600)
	require.Error(t, err)
	assert.Equal(t, "adjustments: Auto reject timeout is out of range", err.Error())

	doc = mustParse(t, `{"adjustments": {"enabled": true,
		"create": {"enabled": true, "min_auto_reject": [], "max_auto_reject": 600}}}`)
	err = NewEnforcer(doc, SectionAdjustments).EnforceAutoRejectTimeout(60)
	require.Error(t, err)
	assert.Equal(t, "adjustments: Error in min_auto_reject or in max_auto_reject permission", err.Error())
}

func TestConfirmAndRejectServiceLists(t *testing.T) {
	doc := mustParse(t, `{"adjustments": {"enabled": true,
		"confirm": {"enabled": true, "services": ["shop"]},
		"reject": {"enabled": false}}}`)
	enforcer := NewEnforcer(doc, SectionAdjustments)

	assert.NoError(t, enforcer.EnforceConfirm("shop"))

	err := enforcer.EnforceConfirm("arena")
	require.Error(t, err)
	assert.Equal(t, "adjustments: No access to confirm the transaction from another service", err.Error())

	err = enforcer.EnforceReject("shop")
	require.Error(t, err)
	assert.Equal(t, "adjustments: Reject is disabled", err.Error())

	// an enabled action without a services list is a missing key
	doc = mustParse(t, `{"adjustments": {"enabled": true, "confirm": {"enabled": true}}}`)
	err = NewEnforcer(doc, SectionAdjustments).EnforceConfirm("shop")
	require.Error(t, err)
	assert.Equal(t, "adjustments: Missing required permission 'services'", err.Error())
}

func TestUpdateGate(t *testing.T) {
	doc := mustParse(t, `{"holders": {"enabled": true, "update": {"enabled": false}}}`)
	err := NewEnforcer(doc, SectionHolders).EnforceUpdate()
	require.Error(t, err)
	assert.Equal(t, "holders: Updating is disabled", err.Error())

	doc = mustParse(t, `{"holders": {"enabled": true, "update": {"enabled": true}}}`)
	assert.NoError(t, NewEnforcer(doc, SectionHolders).EnforceUpdate())
}

func TestUnitsVerboseName(t *testing.T) {
	doc := mustParse(t, `{}`)
	err := NewEnforcer(doc, SectionUnits).EnforceAccess()
	require.Error(t, err)
	assert.Equal(t, "currency units: Missing required permission 'units'", err.Error())
}

func TestNonBoolEnabledDenies(t *testing.T) {
	// a present but mistyped enabled key denies rather than reading as missing
	doc := mustParse(t, `{"adjustments": {"enabled": "yes"}}`)
	err := NewEnforcer(doc, SectionAdjustments).EnforceAccess()
	require.Error(t, err)
	assert.Equal(t, "adjustments: Access is disabled", err.Error())
}

func TestParseEmptyAndInvalid(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Error(t, NewEnforcer(doc, SectionAdjustments).EnforceAccess())

	_, err = Parse([]byte(`{broken`))
	assert.Error(t, err)
}
