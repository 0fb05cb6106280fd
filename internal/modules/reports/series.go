// Package reports builds time series and dashboard summaries over a user's
// ledger, assets, projects and recurring rules.
package reports

import (
	"sort"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/projects"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring"
	"github.com/markcheno/go-talib"
)

// DefaultSmoothingWindow is the moving-average length of SmoothedBurn
const DefaultSmoothingWindow = 7

// SeriesInput is everything BuildSeries needs. Transactions are the user's
// full ledger; project costs are taken from the rows tagged with a project.
type SeriesInput struct {
	Start           domain.Date
	End             domain.Date
	Today           domain.Date
	Converter       *currency.Converter
	Granularity     domain.Granularity
	Accounts        []domain.Account
	Transactions    []domain.Transaction
	Investments     []domain.Investment
	Rules           []domain.RecurringRule
	Projects        []domain.Project
	SmoothingWindow int
}

// SeriesPoint is one self-contained period of a series, in the base currency
type SeriesPoint struct {
	Date             domain.Date `json:"date"`
	Income           float64     `json:"income"`
	Expense          float64     `json:"expense"`
	CapitalLevel     float64     `json:"capital_level"`
	CashLevel        float64     `json:"cash_level"`
	OrdinaryCost     float64     `json:"ordinary_cost"`
	DepreciationCost float64     `json:"depreciation_cost"`
	ProjectCost      float64     `json:"project_cost"`
	RecurringCost    float64     `json:"recurring_cost"`
	TotalBurn        float64     `json:"total_burn"`
	NetProfit        float64     `json:"net_profit"`
	SmoothedBurn     float64     `json:"smoothed_burn"`
	Days             int         `json:"days"`
}

type amortized struct {
	start, end domain.Date
	daily      float64
}

type builder struct {
	in        SeriesInput
	conv      *currency.Converter
	cash      map[string]bool // account id -> counts as cash
	amortized map[string]amortized
}

// BuildSeries back-computes capital at Start from current balances, then
// replays the ledger forward period by period while accruing depreciation,
// project amortization and recurring costs.
//
// Rows excluded from analytics still move capital. Split children carry
// analytics only. Ordinary cost leaves out booked depreciation, rows of
// amortized projects and recurring postings, which are accrued instead.
func BuildSeries(in SeriesInput) []SeriesPoint {
	periods := Periods(in.Start, in.End, in.Granularity)
	if len(periods) == 0 {
		return []SeriesPoint{}
	}
	b := newBuilder(in)

	capital, cash := b.levelsNow()
	for i := range in.Transactions {
		t := &in.Transactions[i]
		if t.Date.Before(in.Start) {
			continue
		}
		dCapital, dCash := b.deltas(t)
		capital -= dCapital
		cash -= dCash
	}

	buckets := make([][]*domain.Transaction, len(periods))
	for i := range in.Transactions {
		t := &in.Transactions[i]
		if t.Date.Before(in.Start) || t.Date.After(in.End) {
			continue
		}
		idx := sort.Search(len(periods), func(j int) bool { return !periods[j].End.Before(t.Date) })
		buckets[idx] = append(buckets[idx], t)
	}

	points := make([]SeriesPoint, len(periods))
	for i, p := range periods {
		point := SeriesPoint{Date: p.Start, Days: p.Days()}
		for _, t := range buckets[i] {
			dCapital, dCash := b.deltas(t)
			capital += dCapital
			cash += dCash
			b.analytics(t, &point)
		}
		for d := p.Start; !d.After(p.End); d = d.AddDays(1) {
			point.DepreciationCost += b.depreciationOn(d)
			point.ProjectCost += b.projectCostOn(d)
			point.RecurringCost += b.recurringPerDay()
		}

		point.CapitalLevel = capital
		point.CashLevel = cash
		point.TotalBurn = point.OrdinaryCost + point.DepreciationCost + point.ProjectCost + point.RecurringCost
		point.NetProfit = point.Income - point.TotalBurn
		points[i] = point
	}

	smooth(points, in.SmoothingWindow)
	return points
}

func newBuilder(in SeriesInput) *builder {
	conv := in.Converter
	if conv == nil {
		conv = currency.IdentityConverter("")
	}
	b := &builder{
		in:        in,
		conv:      conv,
		cash:      make(map[string]bool, len(in.Accounts)),
		amortized: make(map[string]amortized, len(in.Projects)),
	}
	for _, a := range in.Accounts {
		b.cash[a.ID] = a.Type.IsCash()
	}

	byProject := make(map[string][]domain.Transaction)
	for _, t := range in.Transactions {
		if t.ProjectID != "" {
			byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
		}
	}
	for i := range in.Projects {
		p := &in.Projects[i]
		total := projects.TotalCost(byProject[p.ID], conv).Net
		if start, end, ok := projects.Window(p, total, in.Today); ok {
			b.amortized[p.ID] = amortized{start: start, end: end, daily: projects.DailyCost(total, start, end)}
		}
	}
	return b
}

// levelsNow converts the stored balances and active holdings into the base
// currency
func (b *builder) levelsNow() (capital, cash float64) {
	for _, a := range b.in.Accounts {
		v := b.conv.ToBase(a.CurrentBalance, a.Currency)
		capital += v
		if a.Type.IsCash() {
			cash += v
		}
	}
	for i := range b.in.Investments {
		inv := &b.in.Investments[i]
		if inv.IsActive() {
			capital += b.conv.ToBase(holdingValue(inv, b.in.Today), inv.Currency)
		}
	}
	return capital, cash
}

// deltas is the change t made to net worth and to cash. Transfers between
// holdings move cash but not capital.
func (b *builder) deltas(t *domain.Transaction) (capital, cash float64) {
	if t.SplitParentID != "" {
		return 0, 0
	}
	amount := b.conv.ToBase(t.Amount, t.Currency)

	switch t.Type {
	case domain.TransactionTypeIncome:
		capital = amount
		if b.cash[t.AccountID] {
			cash = amount
		}
	case domain.TransactionTypeExpense:
		capital = -amount
		if b.cash[t.AccountID] {
			cash = -amount
		}
	case domain.TransactionTypeTransfer:
		out, in := 0.0, 0.0
		if t.AccountID != "" {
			out = amount
			if b.cash[t.AccountID] {
				cash -= amount
			}
		}
		if t.TransferToAccountID != "" {
			in = amount
			if t.TargetAmount != nil {
				in = b.conv.ToBase(*t.TargetAmount, firstNonEmpty(t.TargetCurrency, t.Currency))
			}
			if b.cash[t.TransferToAccountID] {
				cash += in
			}
		}
		// funding and redemptions swap cash for a holding of equal value
		if t.AccountID != "" && t.TransferToAccountID != "" {
			capital = in - out
		}
	}
	return capital, cash
}

func (b *builder) analytics(t *domain.Transaction, point *SeriesPoint) {
	if t.ExcludeFromAnalytics || t.Type == domain.TransactionTypeTransfer {
		return
	}
	amount := b.conv.ToBase(t.Amount, t.Currency)
	if t.Type == domain.TransactionTypeIncome {
		point.Income += amount
		return
	}

	point.Expense += amount
	if b.accruedElsewhere(t) {
		return
	}
	point.OrdinaryCost += amount
}

func (b *builder) accruedElsewhere(t *domain.Transaction) bool {
	if t.Source == domain.SourceSystem && t.CategoryName == categories.Depreciation {
		return true
	}
	if t.Source == domain.SourceRecurring {
		return true
	}
	_, ok := b.amortized[t.ProjectID]
	return ok
}

func (b *builder) depreciationOn(day domain.Date) float64 {
	total := 0.0
	for i := range b.in.Investments {
		inv := &b.in.Investments[i]
		if inv.Type != domain.InvestmentTypeAsset {
			continue
		}
		if inv.EndDate != nil && !day.Before(*inv.EndDate) {
			continue
		}
		total += b.conv.ToBase(investments.DailyDepreciation(inv, day), inv.Currency)
	}
	return total
}

func (b *builder) projectCostOn(day domain.Date) float64 {
	total := 0.0
	for _, a := range b.amortized {
		if !day.Before(a.start) && !day.After(a.end) {
			total += a.daily
		}
	}
	return total
}

func (b *builder) recurringPerDay() float64 {
	total := 0.0
	for i := range b.in.Rules {
		total += recurring.DailyCost(&b.in.Rules[i], b.conv)
	}
	return total
}

// smooth fills SmoothedBurn with a simple moving average of TotalBurn. Points
// before the first full window use the running mean.
func smooth(points []SeriesPoint, window int) {
	if window < 2 {
		window = DefaultSmoothingWindow
	}
	burns := make([]float64, len(points))
	running := 0.0
	for i, p := range points {
		burns[i] = p.TotalBurn
		running += p.TotalBurn
		points[i].SmoothedBurn = running / float64(i+1)
	}
	if len(points) < window {
		return
	}

	sma := talib.Sma(burns, window)
	for i := window - 1; i < len(points); i++ {
		points[i].SmoothedBurn = sma[i]
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
