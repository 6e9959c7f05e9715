package money

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds the display defaults for monetary values. Unit prices are
// shown to the user directly so they round to 2 decimals; quantities
// multiplied through (taxes, subtotals, totals) keep 4 decimals and are only
// rounded down to 2 at the absolute final display stage.
type Config struct {
	PriceExTaxDecimals     int
	PriceIncTaxDecimals    int
	FeeExTaxDecimals       int
	FeeIncTaxDecimals      int
	FeeTotalTaxDecimals    int
	TaxDecimals            int
	TaxTotalDecimals       int
	SubtotalExTaxDecimals  int
	SubtotalIncTaxDecimals int
	TotalDecimals          int

	// DefaultDecimals applies when a value has no per-field entry.
	DefaultDecimals int

	DecimalPoint string
	ThousandSep  string
}

// DefaultConfig returns the standard decimal table.
func DefaultConfig() Config {
	return Config{
		PriceExTaxDecimals:     2,
		PriceIncTaxDecimals:    2,
		FeeExTaxDecimals:       4,
		FeeIncTaxDecimals:      4,
		FeeTotalTaxDecimals:    4,
		TaxDecimals:            4,
		TaxTotalDecimals:       4,
		SubtotalExTaxDecimals:  4,
		SubtotalIncTaxDecimals: 4,
		TotalDecimals:          4,
		DefaultDecimals:        4,
		DecimalPoint:           ".",
		ThousandSep:            "",
	}
}

// Format overrides the formatter defaults for a single call. Nil pointer
// fields fall back to the per-field configuration.
type Format struct {
	Decimals     *int
	DecimalPoint *string
	ThousandSep  *string
}

// WithDecimals is a convenience constructor for the most common override.
func WithDecimals(n int) *Format {
	return &Format{Decimals: &n}
}

// Formatter renders and parses monetary values with the configured defaults.
type Formatter struct {
	cfg Config
}

func NewFormatter(cfg Config) *Formatter {
	if cfg.DecimalPoint == "" {
		cfg.DecimalPoint = "."
	}
	return &Formatter{cfg: cfg}
}

func (f *Formatter) Config() Config {
	return f.cfg
}

// Round rounds half away from zero to the given number of decimals.
func Round(value float64, decimals int) float64 {
	r, _ := decimal.NewFromFloat(value).Round(int32(decimals)).Float64()
	return r
}

// Format renders value using fieldDecimals unless the override supplies its
// own decimal count or separators.
func (f *Formatter) Format(value float64, fieldDecimals int, o *Format) string {
	decimals := fieldDecimals
	point := f.cfg.DecimalPoint
	sep := f.cfg.ThousandSep

	if o != nil {
		if o.Decimals != nil {
			decimals = *o.Decimals
		}
		if o.DecimalPoint != nil {
			point = *o.DecimalPoint
		}
		if o.ThousandSep != nil {
			sep = *o.ThousandSep
		}
	}

	return FormatWith(value, decimals, point, sep)
}

// FormatDefault renders value with the global default decimal count.
func (f *Formatter) FormatDefault(value float64, o *Format) string {
	return f.Format(value, f.cfg.DefaultDecimals, o)
}

// FormatWith renders value rounded half away from zero to the requested
// decimals, with the given decimal point and thousands separator.
func FormatWith(value float64, decimals int, point, sep string) string {
	if decimals < 0 {
		decimals = 0
	}

	s := decimal.NewFromFloat(value).Round(int32(decimals)).StringFixed(int32(decimals))

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	if sep != "" {
		intPart = groupThousands(intPart, sep)
	}

	out := intPart
	if fracPart != "" {
		out += point + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Parse is the inverse of Format: it strips the thousands separator,
// normalizes the decimal point and parses the result.
func (f *Formatter) Parse(s string, o *Format) (float64, error) {
	point := f.cfg.DecimalPoint
	sep := f.cfg.ThousandSep

	if o != nil {
		if o.DecimalPoint != nil {
			point = *o.DecimalPoint
		}
		if o.ThousandSep != nil {
			sep = *o.ThousandSep
		}
	}

	return Parse(s, point, sep)
}

func Parse(s, point, sep string) (float64, error) {
	normalized := s
	if sep != "" {
		normalized = strings.ReplaceAll(normalized, sep, "")
	}
	if point != "" && point != "." {
		normalized = strings.ReplaceAll(normalized, point, ".")
	}
	normalized = strings.TrimSpace(normalized)

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("money: cannot parse %q: %w", s, err)
	}
	return v, nil
}

func groupThousands(digits, sep string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	var b strings.Builder
	first := n % 3
	if first > 0 {
		b.WriteString(digits[:first])
	}
	for i := first; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
