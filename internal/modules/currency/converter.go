// Package currency converts amounts between currencies using a pivot rate table.
package currency

import (
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
)

// Converter converts amounts with a fixed rate table.
// A nil table makes every conversion the identity (degraded mode).
type Converter struct {
	rates domain.RateTable
	base  string
}

// NewConverter creates a converter reporting in base.
func NewConverter(rates domain.RateTable, base string) *Converter {
	return &Converter{rates: rates, base: strings.ToUpper(base)}
}

// IdentityConverter is the degraded converter used when no rates are available.
func IdentityConverter(base string) *Converter {
	return NewConverter(nil, base)
}

// Base is the reporting currency.
func (c *Converter) Base() string {
	return c.base
}

// Degraded reports whether conversions fall back to 1:1.
func (c *Converter) Degraded() bool {
	return c.rates == nil
}

// Rates returns the underlying table (nil when degraded).
func (c *Converter) Rates() domain.RateTable {
	return c.rates
}

// Convert returns amount*rate[to]/rate[from]. Same-currency conversions are
// returned unchanged; missing rates count as 1.
func (c *Converter) Convert(amount float64, from, to string) float64 {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to || from == "" || to == "" || c.rates == nil {
		return amount
	}
	return amount * (c.rate(to) / c.rate(from))
}

// ToBase converts amount from the given currency into the reporting currency.
func (c *Converter) ToBase(amount float64, from string) float64 {
	return c.Convert(amount, from, c.base)
}

func (c *Converter) rate(code string) float64 {
	if r, ok := c.rates[code]; ok && r > 0 {
		return r
	}
	return 1
}
