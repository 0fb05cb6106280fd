// Package domain provides core domain models and types.
package domain

import "time"

// AccountType classifies where money is held
type AccountType string

const (
	AccountTypeBank       AccountType = "BANK"
	AccountTypeWallet     AccountType = "WALLET"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeInvestment AccountType = "INVESTMENT"
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeOther      AccountType = "OTHER"
)

// Valid reports whether t is a known account type
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeBank, AccountTypeWallet, AccountTypeCash, AccountTypeCredit,
		AccountTypeInvestment, AccountTypeAsset, AccountTypeOther:
		return true
	}
	return false
}

// IsCash reports whether balances of this account type count as cash
func (t AccountType) IsCash() bool {
	return t != AccountTypeInvestment && t != AccountTypeAsset
}

// TransactionType is the direction of a ledger entry
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense || t == TransactionTypeTransfer
}

// TransactionSource records how a ledger row was created
type TransactionSource string

const (
	SourceManual    TransactionSource = "MANUAL"
	SourceRecurring TransactionSource = "RECURRING"
	SourceImport    TransactionSource = "IMPORT"
	SourceSystem    TransactionSource = "SYSTEM" // settlements, fees, depreciation
)

// CategoryType is INCOME or EXPENSE
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Valid reports whether t is a known category type
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// ProjectType classifies a cost-attribution project
type ProjectType string

const (
	ProjectTypeTrip       ProjectType = "TRIP"
	ProjectTypeJob        ProjectType = "JOB"
	ProjectTypeSideHustle ProjectType = "SIDE_HUSTLE"
	ProjectTypeEvent      ProjectType = "EVENT"
	ProjectTypeWork       ProjectType = "WORK"
	ProjectTypeOther      ProjectType = "OTHER"
)

// Valid reports whether t is a known project type
func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeTrip, ProjectTypeJob, ProjectTypeSideHustle, ProjectTypeEvent, ProjectTypeWork, ProjectTypeOther:
		return true
	}
	return false
}

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "PLANNING"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Frequency is the period unit of a recurring rule
type Frequency string

const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly || f == FrequencyYearly
}

// PeriodDays is the nominal length of one period, used to accrue a daily cost.
func (f Frequency) PeriodDays() float64 {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyYearly:
		return 365
	default:
		return 30
	}
}

// Granularity is the bucket size of a report series
type Granularity string

const (
	GranularityDay   Granularity = "DAY"
	GranularityWeek  Granularity = "WEEK"
	GranularityMonth Granularity = "MONTH"
	GranularityYear  Granularity = "YEAR"
)

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// Account holds money in one currency. CurrentBalance is derived from the
// ledger and only written by the balance recalculation.
type Account struct {
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	Currency       string      `json:"currency"`
	InitialBalance float64     `json:"initial_balance"`
	CurrentBalance float64     `json:"current_balance"`
	IsDefault      bool        `json:"is_default"`
}

// Transaction is one ledger entry. Optional references are empty strings.
// Split children carry analytics only; their parent keeps moving the balance.
type Transaction struct {
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Date                 Date              `json:"date"`
	TargetAmount         *float64          `json:"target_amount,omitempty"`
	Fee                  *float64          `json:"fee,omitempty"`
	ID                   string            `json:"id"`
	UserID               string            `json:"user_id"`
	Type                 TransactionType   `json:"type"`
	Currency             string            `json:"currency"`
	AccountID            string            `json:"account_id,omitempty"`
	TransferToAccountID  string            `json:"transfer_to_account_id,omitempty"`
	TargetCurrency       string            `json:"target_currency,omitempty"`
	CategoryID           string            `json:"category_id,omitempty"`
	CategoryName         string            `json:"category_name,omitempty"`
	ProjectID            string            `json:"project_id,omitempty"`
	InvestmentID         string            `json:"investment_id,omitempty"`
	SplitParentID        string            `json:"split_parent_id,omitempty"`
	FeeParentID          string            `json:"fee_parent_id,omitempty"`
	Merchant             string            `json:"merchant,omitempty"`
	Note                 string            `json:"note,omitempty"`
	Source               TransactionSource `json:"source"`
	Amount               float64           `json:"amount"`
	ExcludeFromAnalytics bool              `json:"exclude_from_analytics"`
}

// Project groups transactions for cost attribution and amortization.
type Project struct {
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	StartDate *Date         `json:"start_date,omitempty"`
	EndDate   *Date         `json:"end_date,omitempty"`
	Budget    *float64      `json:"budget,omitempty"`
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Type      ProjectType   `json:"type"`
	Status    ProjectStatus `json:"status"`
	Currency  string        `json:"currency,omitempty"`
	Note      string        `json:"note,omitempty"`
}

// RecurringRule posts one transaction per firing and advances NextRun.
type RecurringRule struct {
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	NextRun    Date            `json:"next_run"`
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Type       TransactionType `json:"type"`
	Currency   string          `json:"currency"`
	CategoryID string          `json:"category_id,omitempty"`
	AccountID  string          `json:"account_id,omitempty"`
	Frequency  Frequency       `json:"frequency"`
	Amount     float64         `json:"amount"`
	Interval   int             `json:"interval"`
	Active     bool            `json:"active"`
}

// Category labels transactions. System categories are seeded per user.
type Category struct {
	CreatedAt time.Time    `json:"created_at"`
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Icon      string       `json:"icon,omitempty"`
	Type      CategoryType `json:"type"`
	IsDefault bool         `json:"is_default"`
}

// RateTable maps a currency code to its price in a common pivot unit.
type RateTable map[string]float64
