package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// InvestmentType selects the details variant of an investment
type InvestmentType string

const (
	InvestmentTypeStock   InvestmentType = "STOCK"
	InvestmentTypeFund    InvestmentType = "FUND"
	InvestmentTypeDeposit InvestmentType = "DEPOSIT"
	InvestmentTypeAsset   InvestmentType = "ASSET"
	InvestmentTypeOther   InvestmentType = "OTHER"
)

// Valid reports whether t is a known investment type
func (t InvestmentType) Valid() bool {
	switch t {
	case InvestmentTypeStock, InvestmentTypeFund, InvestmentTypeDeposit, InvestmentTypeAsset, InvestmentTypeOther:
		return true
	}
	return false
}

// IsFinancial reports whether the investment counts as a financial (non-fixed) asset
func (t InvestmentType) IsFinancial() bool {
	return t != InvestmentTypeAsset
}

// InvestmentStatus is the lifecycle state. CLOSED and WRITTEN_OFF are terminal.
type InvestmentStatus string

const (
	InvestmentStatusActive     InvestmentStatus = "ACTIVE"
	InvestmentStatusClosed     InvestmentStatus = "CLOSED"
	InvestmentStatusWrittenOff InvestmentStatus = "WRITTEN_OFF"
)

// DepreciationMethod is the book-value curve of a fixed asset
type DepreciationMethod string

const (
	DepreciationStraightLine     DepreciationMethod = "STRAIGHT_LINE"
	DepreciationDecliningBalance DepreciationMethod = "DECLINING_BALANCE"
)

// Valid reports whether m is a known method
func (m DepreciationMethod) Valid() bool {
	return m == DepreciationStraightLine || m == DepreciationDecliningBalance
}

// InvestmentDetails is the type-specific part of an investment.
type InvestmentDetails interface {
	Kind() InvestmentType
	Validate() error
}

// StockDetails describes a listed equity position.
type StockDetails struct {
	Symbol   string  `json:"symbol"`
	Broker   string  `json:"broker,omitempty"`
	Quantity float64 `json:"quantity"`
}

func (StockDetails) Kind() InvestmentType { return InvestmentTypeStock }

func (d StockDetails) Validate() error {
	if d.Symbol == "" {
		return NewValidationError("details.symbol", "is required for stocks")
	}
	if d.Quantity <= 0 {
		return NewValidationError("details.quantity", "must be positive")
	}
	return nil
}

// FundDetails describes a fund holding.
type FundDetails struct {
	Code     string  `json:"code"`
	Provider string  `json:"provider,omitempty"`
	Units    float64 `json:"units,omitempty"`
}

func (FundDetails) Kind() InvestmentType { return InvestmentTypeFund }

func (d FundDetails) Validate() error {
	if d.Code == "" {
		return NewValidationError("details.code", "is required for funds")
	}
	if d.Units < 0 {
		return NewValidationError("details.units", "must not be negative")
	}
	return nil
}

// DepositDetails describes a fixed-term deposit.
type DepositDetails struct {
	MaturityDate *Date   `json:"maturity_date,omitempty"`
	Bank         string  `json:"bank,omitempty"`
	InterestRate float64 `json:"interest_rate"` // annual, percent
}

func (DepositDetails) Kind() InvestmentType { return InvestmentTypeDeposit }

func (d DepositDetails) Validate() error {
	if d.InterestRate < 0 {
		return NewValidationError("details.interest_rate", "must not be negative")
	}
	return nil
}

// AssetDetails describes a depreciable fixed asset.
type AssetDetails struct {
	LastDepreciationDate *Date             `json:"last_depreciation_date,omitempty"`
	Method               DepreciationMethod `json:"depreciation_method"`
	PurchasePrice        float64            `json:"purchase_price"`
	SalvageValue         float64            `json:"salvage_value"`
	UsefulLifeYears      float64            `json:"useful_life_years"`
}

func (AssetDetails) Kind() InvestmentType { return InvestmentTypeAsset }

func (d AssetDetails) Validate() error {
	if d.PurchasePrice <= 0 {
		return NewValidationError("details.purchase_price", "must be positive")
	}
	if d.SalvageValue < 0 || d.SalvageValue > d.PurchasePrice {
		return NewValidationError("details.salvage_value", "must be between 0 and the purchase price")
	}
	if d.UsefulLifeYears <= 0 {
		return NewValidationError("details.useful_life_years", "must be positive")
	}
	if !d.Method.Valid() {
		return NewValidationError("details.depreciation_method", "must be STRAIGHT_LINE or DECLINING_BALANCE")
	}
	return nil
}

// OtherDetails is a free-form investment.
type OtherDetails struct {
	Description string `json:"description,omitempty"`
}

func (OtherDetails) Kind() InvestmentType { return InvestmentTypeOther }

func (OtherDetails) Validate() error { return nil }

// DecodeDetails decodes raw JSON into the variant selected by t.
func DecodeDetails(t InvestmentType, raw json.RawMessage) (InvestmentDetails, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	var (
		details InvestmentDetails
		err     error
	)
	switch t {
	case InvestmentTypeStock:
		var d StockDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case InvestmentTypeFund:
		var d FundDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case InvestmentTypeDeposit:
		var d DepositDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case InvestmentTypeAsset:
		var d AssetDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case InvestmentTypeOther:
		var d OtherDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, NewValidationError("type", fmt.Sprintf("unknown investment type %q", t))
	}
	if err != nil {
		return nil, NewValidationError("details", err.Error())
	}
	return details, nil
}

// Investment is the shared base of every investment variant.
type Investment struct {
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	StartDate     Date              `json:"start_date"`
	Details       InvestmentDetails `json:"details"`
	CurrentAmount *float64          `json:"current_amount,omitempty"`
	EndDate       *Date             `json:"end_date,omitempty"`
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Name          string            `json:"name"`
	Type          InvestmentType    `json:"type"`
	Status        InvestmentStatus  `json:"status"`
	Currency      string            `json:"currency"`
	AccountID     string            `json:"account_id,omitempty"`
	ProjectID     string            `json:"project_id,omitempty"`
	InitialAmount float64           `json:"initial_amount"`
}

// UnmarshalJSON decodes details according to the type field.
func (inv *Investment) UnmarshalJSON(b []byte) error {
	type alias Investment
	aux := struct {
		*alias
		Details json.RawMessage `json:"details"`
	}{alias: (*alias)(inv)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	details, err := DecodeDetails(inv.Type, aux.Details)
	if err != nil {
		return err
	}
	inv.Details = details
	return nil
}

// Validate checks the base fields and the variant's required fields.
func (inv *Investment) Validate() error {
	if inv.Name == "" {
		return NewValidationError("name", "is required")
	}
	if !inv.Type.Valid() {
		return NewValidationError("type", "must be STOCK, FUND, DEPOSIT, ASSET or OTHER")
	}
	if inv.Currency == "" {
		return NewValidationError("currency", "is required")
	}
	if inv.InitialAmount < 0 {
		return NewValidationError("initial_amount", "must not be negative")
	}
	if inv.StartDate.IsZero() {
		return NewValidationError("start_date", "is required")
	}
	if inv.Details == nil {
		return NewValidationError("details", "are required")
	}
	if inv.Details.Kind() != inv.Type {
		return NewValidationError("details", "do not match the investment type")
	}
	return inv.Details.Validate()
}

// IsActive reports whether the investment still accepts valuation changes.
func (inv *Investment) IsActive() bool {
	return inv.Status == InvestmentStatusActive
}

// Value is the mark-to-market amount, falling back to the initial amount.
func (inv *Investment) Value() float64 {
	if inv.CurrentAmount != nil {
		return *inv.CurrentAmount
	}
	return inv.InitialAmount
}

// Asset returns the asset details when the investment is a fixed asset.
func (inv *Investment) Asset() (AssetDetails, bool) {
	d, ok := inv.Details.(AssetDetails)
	return d, ok
}
