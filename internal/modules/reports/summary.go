package reports

import (
	"math"
	"sort"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TopAssetCount bounds Summary.TopAssets
const TopAssetCount = 5

// Uncategorized labels expenses without a category
const Uncategorized = "Uncategorized"

// SummaryInput is everything Summarize needs
type SummaryInput struct {
	Today        domain.Date
	Converter    *currency.Converter
	Accounts     []domain.Account
	Transactions []domain.Transaction
	Investments  []domain.Investment
	DailyBurn    []float64 // recent total burn per day
}

// Flow is income against expense over a range
type Flow struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// CategoryAmount is one slice of the expense breakdown
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Share    float64 `json:"share"` // percent of the month's expense
}

// AssetValue is one holding in base currency
type AssetValue struct {
	ID    string                `json:"id"`
	Name  string                `json:"name"`
	Type  domain.InvestmentType `json:"type"`
	Value float64               `json:"value"`
}

// Summary is the dashboard in the base currency
type Summary struct {
	Currency             string           `json:"currency"`
	ExpenseByCategory    []CategoryAmount `json:"expense_by_category"`
	TopAssets            []AssetValue     `json:"top_assets"`
	ThisMonth            Flow             `json:"this_month"`
	AllTime              Flow             `json:"all_time"`
	TotalCash            float64          `json:"total_cash"`
	FinancialInvestments float64          `json:"financial_investments"`
	FixedAssets          float64          `json:"fixed_assets"`
	NetWorth             float64          `json:"net_worth"`
	MeanDailyBurn        float64          `json:"mean_daily_burn"`
	RatesDegraded        bool             `json:"rates_degraded"`
}

// Summarize aggregates balances, holdings and this month's flows
func Summarize(in SummaryInput) *Summary {
	conv := in.Converter
	if conv == nil {
		conv = currency.IdentityConverter("")
	}
	s := &Summary{
		Currency:          conv.Base(),
		RatesDegraded:     conv.Degraded(),
		ExpenseByCategory: []CategoryAmount{},
		TopAssets:         []AssetValue{},
	}

	for _, a := range in.Accounts {
		v := conv.ToBase(a.CurrentBalance, a.Currency)
		switch a.Type {
		case domain.AccountTypeInvestment:
			s.FinancialInvestments += v
		case domain.AccountTypeAsset:
			s.FixedAssets += v
		default:
			s.TotalCash += v
		}
	}

	for i := range in.Investments {
		inv := &in.Investments[i]
		if !inv.IsActive() {
			continue
		}
		v := conv.ToBase(holdingValue(inv, in.Today), inv.Currency)
		if inv.Type.IsFinancial() {
			s.FinancialInvestments += v
		} else {
			s.FixedAssets += v
		}
		s.TopAssets = append(s.TopAssets, AssetValue{ID: inv.ID, Name: inv.Name, Type: inv.Type, Value: v})
	}
	s.NetWorth = floats.Sum([]float64{s.TotalCash, s.FinancialInvestments, s.FixedAssets})

	sort.SliceStable(s.TopAssets, func(i, j int) bool { return s.TopAssets[i].Value > s.TopAssets[j].Value })
	if len(s.TopAssets) > TopAssetCount {
		s.TopAssets = s.TopAssets[:TopAssetCount]
	}

	monthStart := domain.DateOf(utils.StartOfMonth(in.Today.Time))
	byCategory := make(map[string]float64)
	for i := range in.Transactions {
		t := &in.Transactions[i]
		if t.ExcludeFromAnalytics || t.Type == domain.TransactionTypeTransfer {
			continue
		}
		amount := conv.ToBase(t.Amount, t.Currency)
		inMonth := !t.Date.Before(monthStart) && !t.Date.After(in.Today)

		if t.Type == domain.TransactionTypeIncome {
			s.AllTime.Income += amount
			if inMonth {
				s.ThisMonth.Income += amount
			}
			continue
		}
		s.AllTime.Expense += amount
		if inMonth {
			s.ThisMonth.Expense += amount
			name := t.CategoryName
			if name == "" {
				name = Uncategorized
			}
			byCategory[name] += amount
		}
	}
	s.AllTime.Net = s.AllTime.Income - s.AllTime.Expense
	s.ThisMonth.Net = s.ThisMonth.Income - s.ThisMonth.Expense

	for name, amount := range byCategory {
		share := 0.0
		if s.ThisMonth.Expense > 0 {
			share = math.Round(amount/s.ThisMonth.Expense*10000) / 100
		}
		s.ExpenseByCategory = append(s.ExpenseByCategory, CategoryAmount{Category: name, Amount: amount, Share: share})
	}
	sort.Slice(s.ExpenseByCategory, func(i, j int) bool {
		a, b := s.ExpenseByCategory[i], s.ExpenseByCategory[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.Category < b.Category
	})

	if len(in.DailyBurn) > 0 {
		s.MeanDailyBurn = stat.Mean(in.DailyBurn, nil)
	}
	return s
}

// holdingValue is the current worth of an active holding
func holdingValue(inv *domain.Investment, today domain.Date) float64 {
	return investments.BookValue(inv, today)
}
