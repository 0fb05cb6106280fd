package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.March, 15)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-15"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d.Time))

	var bad Date
	err = json.Unmarshal([]byte(`"15.03.2024"`), &bad)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.After(d))
}

func TestNullDate(t *testing.T) {
	var n NullDate
	require.NoError(t, n.Scan(nil))
	assert.Nil(t, n.Ptr())

	require.NoError(t, n.Scan("2024-01-02"))
	require.NotNil(t, n.Ptr())
	assert.Equal(t, "2024-01-02", n.Ptr().String())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("amount", "must be positive")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "amount: must be positive", err.Error())
	assert.True(t, IsUserFacing(err))
	assert.False(t, IsUserFacing(ErrNotFound))
}

func TestInvestment_UnmarshalVariant(t *testing.T) {
	raw := `{
		"name": "Laptop",
		"type": "ASSET",
		"currency": "USD",
		"initial_amount": 1200,
		"start_date": "2024-01-01",
		"details": {"purchase_price": 1200, "salvage_value": 0, "useful_life_years": 1, "depreciation_method": "STRAIGHT_LINE"}
	}`

	var inv Investment
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	require.NoError(t, inv.Validate())

	asset, ok := inv.Asset()
	require.True(t, ok)
	assert.Equal(t, 1200.0, asset.PurchasePrice)
	assert.Equal(t, DepreciationStraightLine, asset.Method)
}

func TestInvestment_VariantRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		details InvestmentDetails
		typ     InvestmentType
		field   string
	}{
		{"stock without symbol", StockDetails{Quantity: 1}, InvestmentTypeStock, "details.symbol"},
		{"stock without quantity", StockDetails{Symbol: "AAPL"}, InvestmentTypeStock, "details.quantity"},
		{"fund without code", FundDetails{}, InvestmentTypeFund, "details.code"},
		{"deposit negative rate", DepositDetails{InterestRate: -1}, InvestmentTypeDeposit, "details.interest_rate"},
		{"asset salvage above price", AssetDetails{PurchasePrice: 10, SalvageValue: 20, UsefulLifeYears: 1, Method: DepreciationStraightLine}, InvestmentTypeAsset, "details.salvage_value"},
		{"asset without life", AssetDetails{PurchasePrice: 10, Method: DepreciationStraightLine}, InvestmentTypeAsset, "details.useful_life_years"},
		{"asset bad method", AssetDetails{PurchasePrice: 10, UsefulLifeYears: 2, Method: "SUM_OF_YEARS"}, InvestmentTypeAsset, "details.depreciation_method"},
		{"mismatched variant", OtherDetails{}, InvestmentTypeStock, "details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Investment{
				Name:          "x",
				Type:          tt.typ,
				Currency:      "USD",
				InitialAmount: 10,
				StartDate:     NewDate(2024, 1, 1),
				Details:       tt.details,
			}
			err := inv.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestInvestment_Value(t *testing.T) {
	inv := Investment{InitialAmount: 100}
	assert.Equal(t, 100.0, inv.Value())

	current := 80.0
	inv.CurrentAmount = &current
	assert.Equal(t, 80.0, inv.Value())
}

func TestDecodeDetails_UnknownType(t *testing.T) {
	_, err := DecodeDetails("CRYPTO", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestActionResult(t *testing.T) {
	b, err := json.Marshal(Ok(map[string]int{"a": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"a":1}}`, string(b))

	b, err = json.Marshal(Fail[any]("Something went wrong"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Something went wrong"}`, string(b))
}

func TestEnums(t *testing.T) {
	assert.True(t, AccountTypeBank.IsCash())
	assert.False(t, AccountTypeAsset.IsCash())
	assert.True(t, TransactionTypeTransfer.Valid())
	assert.False(t, TransactionType("REFUND").Valid())
	assert.Equal(t, 7.0, FrequencyWeekly.PeriodDays())
	assert.Equal(t, 365.0, FrequencyYearly.PeriodDays())
	assert.True(t, InvestmentTypeStock.IsFinancial())
	assert.False(t, InvestmentTypeAsset.IsFinancial())
}
