package categories

import "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"

// System category names used by settlements and fee postings.
const (
	Depreciation   = "Depreciation"
	InvestmentGain = "Investment Gain"
	InvestmentLoss = "Investment Loss"
	TransferFee    = "Transfer Fee"
)

type seed struct {
	name string
	icon string
	typ  domain.CategoryType
}

var defaultCategories = []seed{
	{"Salary", "💼", domain.CategoryTypeIncome},
	{"Bonus", "🎁", domain.CategoryTypeIncome},
	{"Freelance", "🧑‍💻", domain.CategoryTypeIncome},
	{InvestmentGain, "📈", domain.CategoryTypeIncome},
	{"Other Income", "💰", domain.CategoryTypeIncome},

	{"Food", "🍜", domain.CategoryTypeExpense},
	{"Transport", "🚌", domain.CategoryTypeExpense},
	{"Housing", "🏠", domain.CategoryTypeExpense},
	{"Utilities", "💡", domain.CategoryTypeExpense},
	{"Shopping", "🛍️", domain.CategoryTypeExpense},
	{"Entertainment", "🎬", domain.CategoryTypeExpense},
	{"Health", "💊", domain.CategoryTypeExpense},
	{"Travel", "✈️", domain.CategoryTypeExpense},
	{"Subscriptions", "🔁", domain.CategoryTypeExpense},
	{Depreciation, "📉", domain.CategoryTypeExpense},
	{InvestmentLoss, "📉", domain.CategoryTypeExpense},
	{TransferFee, "🏦", domain.CategoryTypeExpense},
	{"Other", "📦", domain.CategoryTypeExpense},
}
