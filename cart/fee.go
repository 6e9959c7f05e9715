package cart

import (
	"encoding/json"
	"math"

	"tallycart-backend/money"
)

// Fee is a named flat charge independent of any line item: a service fee, a
// delivery fee, a tip. Fees are keyed by name; re-adding a name overwrites.
type Fee struct {
	Name    string
	Amount  float64 // tax exclusive
	Options Options

	taxRate float64 // percent
	fmtr    *money.Formatter
}

// NewFee validates the amount and rate. The caller resolves the default tax
// rate before construction; a negative rate is rejected rather than clamped
// so the rate-gated totals never hide a bad input.
func NewFee(name string, amount, taxRate float64, options Options) (*Fee, error) {
	if math.IsNaN(amount) {
		return nil, &InvalidAttributeError{Attribute: "amount", Reason: "please supply a valid amount"}
	}
	if math.IsNaN(taxRate) || taxRate < 0 {
		return nil, &InvalidAttributeError{Attribute: "taxRate", Reason: "please supply a non-negative tax rate"}
	}

	return &Fee{
		Name:    name,
		Amount:  amount,
		Options: options.Clone(),
		taxRate: taxRate,
	}, nil
}

func (f *Fee) TaxRate() float64 {
	return f.taxRate
}

// Tax is the tax on the fee amount.
func (f *Fee) Tax() float64 {
	return f.Amount * f.taxRate / 100
}

// AmountWithTax is the fee amount plus its tax.
func (f *Fee) AmountWithTax() float64 {
	return f.Amount + f.Tax()
}

// GetAmount returns the fee amount, with tax when requested.
func (f *Fee) GetAmount(withTax bool) float64 {
	if withTax {
		return f.AmountWithTax()
	}
	return f.Amount
}

func (f *Fee) formatter() *money.Formatter {
	if f.fmtr == nil {
		f.fmtr = money.NewFormatter(money.DefaultConfig())
	}
	return f.fmtr
}

func (f *Fee) AmountFormatted(o *money.Format) string {
	fm := f.formatter()
	return fm.Format(f.Amount, fm.Config().FeeExTaxDecimals, o)
}

func (f *Fee) AmountWithTaxFormatted(o *money.Format) string {
	fm := f.formatter()
	return fm.Format(f.AmountWithTax(), fm.Config().FeeIncTaxDecimals, o)
}

func (f *Fee) TaxFormatted(o *money.Format) string {
	fm := f.formatter()
	return fm.Format(f.Tax(), fm.Config().FeeTotalTaxDecimals, o)
}

func (f *Fee) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"name":    f.Name,
		"amount":  f.Amount,
		"taxRate": f.taxRate,
		"tax":     f.Tax(),
		"options": f.Options,
	})
}
