package investments

import (
	"math"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
)

// DaysPerYear converts useful life in years to days
const DaysPerYear = 365.0

// DepreciationResult is the book state of an asset on one day
type DepreciationResult struct {
	BookValue               float64 `json:"book_value"`
	AccumulatedDepreciation float64 `json:"accumulated_depreciation"`
	DailyRate               float64 `json:"daily_rate"`
	RemainingLifeDays       int     `json:"remaining_life_days"`
}

// Depreciate computes the book value of an asset on asOf.
//
// STRAIGHT_LINE spreads (cost - salvage) evenly over the useful life.
// DECLINING_BALANCE applies the double-declining annual rate 2/life,
// compounded daily, to the remaining book value. Both are floored at salvage.
// A non-positive life or an asOf before start yields no depreciation.
func Depreciate(cost, salvage, lifeYears float64, method domain.DepreciationMethod, start, asOf domain.Date) DepreciationResult {
	if salvage > cost {
		salvage = cost
	}
	if lifeYears <= 0 {
		return DepreciationResult{BookValue: cost}
	}

	lifeDays := lifeYears * DaysPerYear
	if asOf.Before(start) {
		return DepreciationResult{BookValue: cost, RemainingLifeDays: int(math.Ceil(lifeDays))}
	}

	days := float64(start.DaysUntil(asOf))
	remaining := int(math.Max(0, math.Ceil(lifeDays-days)))

	switch method {
	case domain.DepreciationDecliningBalance:
		dailyFactor := math.Min(1, 2/lifeYears/DaysPerYear)
		book := math.Max(cost*math.Pow(1-dailyFactor, days), salvage)
		rate := 0.0
		if book > salvage {
			rate = math.Min(book*dailyFactor, book-salvage)
		}
		return DepreciationResult{
			BookValue:               book,
			AccumulatedDepreciation: cost - book,
			DailyRate:               rate,
			RemainingLifeDays:       remaining,
		}

	default:
		depreciable := cost - salvage
		rate := depreciable / lifeDays
		accumulated := math.Min(rate*days, depreciable)
		return DepreciationResult{
			BookValue:               math.Max(cost-accumulated, salvage),
			AccumulatedDepreciation: accumulated,
			DailyRate:               rate,
			RemainingLifeDays:       remaining,
		}
	}
}

// DepreciateAsset applies Depreciate to an asset's details
func DepreciateAsset(inv *domain.Investment, asOf domain.Date) (DepreciationResult, bool) {
	asset, ok := inv.Asset()
	if !ok {
		return DepreciationResult{}, false
	}
	return Depreciate(asset.PurchasePrice, asset.SalvageValue, asset.UsefulLifeYears, asset.Method, inv.StartDate, asOf), true
}

// BookValue is what an investment is carried at on asOf. Fixed assets are
// carried at the lower of the booked amount and the scheduled book value.
func BookValue(inv *domain.Investment, asOf domain.Date) float64 {
	if result, ok := DepreciateAsset(inv, asOf); ok {
		return math.Min(inv.Value(), result.BookValue)
	}
	return inv.Value()
}

// DailyDepreciation is the drop in book value from the day before asOf to asOf.
// It is zero outside the asset's life.
func DailyDepreciation(inv *domain.Investment, asOf domain.Date) float64 {
	today, ok := DepreciateAsset(inv, asOf)
	if !ok {
		return 0
	}
	yesterday, _ := DepreciateAsset(inv, asOf.AddDays(-1))
	return math.Max(0, yesterday.BookValue-today.BookValue)
}
