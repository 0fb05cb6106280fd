package currency

import (
	"math/rand"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
)

var testRates = domain.RateTable{"USD": 1, "EUR": 0.92, "GBP": 0.79, "JPY": 150.2}

func TestConvert_Identity(t *testing.T) {
	c := NewConverter(testRates, "USD")
	assert.Equal(t, 123.456789, c.Convert(123.456789, "EUR", "EUR"))
}

func TestConvert_PivotFormula(t *testing.T) {
	c := NewConverter(testRates, "USD")
	assert.InDelta(t, 92.0, c.Convert(100, "USD", "EUR"), 1e-9)
	assert.InDelta(t, 100/0.92, c.Convert(100, "EUR", "USD"), 1e-9)
	assert.InDelta(t, 100*0.79/0.92, c.Convert(100, "eur", "gbp"), 1e-9)
}

func TestConvert_MissingRateDefaultsToOne(t *testing.T) {
	c := NewConverter(testRates, "USD")
	assert.InDelta(t, 50.0, c.Convert(50, "XYZ", "USD"), 1e-9)
	assert.InDelta(t, 46.0, c.Convert(50, "XYZ", "EUR"), 1e-9)
}

func TestConvert_DegradedIsIdentity(t *testing.T) {
	c := IdentityConverter("USD")
	assert.True(t, c.Degraded())
	assert.Equal(t, 100.0, c.Convert(100, "EUR", "JPY"))
	assert.Equal(t, 100.0, c.ToBase(100, "GBP"))
}

func TestConvert_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	codes := []string{"USD", "EUR", "GBP", "JPY"}

	for i := 0; i < 500; i++ {
		rates := domain.RateTable{}
		for _, code := range codes {
			rates[code] = 0.001 + r.Float64()*1000
		}
		c := NewConverter(rates, "USD")
		x := (r.Float64() - 0.5) * 1e6
		a, b := codes[r.Intn(len(codes))], codes[r.Intn(len(codes))]

		back := c.Convert(c.Convert(x, a, b), b, a)
		assert.InDelta(t, x, back, 1e-6*(1+abs(x)))
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
