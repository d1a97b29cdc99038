package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidMoney = errors.New("invalid money amount")
)

// maxKobo keeps kobo values well inside int64.
var maxKobo = decimal.New(9, 16)

// Amount is a naira value. It travels as a bare JSON number and is stored as
// integer kobo.
type Amount struct {
	decimal.Decimal
}

var Zero = Amount{decimal.Zero}

func FromInt(naira int64) Amount {
	return Amount{decimal.NewFromInt(naira)}
}

func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d}
}

// FromInput converts raw form input the way a number field does: blank is
// zero and the sign is kept. Only text that is not a number fails.
func FromInput(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₦")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return Amount{d}, nil
}

// ToKobo converts to integer kobo, rounding half away from zero.
func ToKobo(a Amount) (int64, error) {
	k := a.Decimal.Mul(decimal.NewFromInt(100)).Round(0)
	if k.Abs().GreaterThan(maxKobo) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidMoney)
	}
	return k.IntPart(), nil
}

func FromKobo(kobo int64) Amount {
	return Amount{decimal.New(kobo, -2)}
}

func (a Amount) Add(b Amount) Amount { return Amount{a.Decimal.Add(b.Decimal)} }

func (a Amount) Sub(b Amount) Amount { return Amount{a.Decimal.Sub(b.Decimal)} }

func (a Amount) Eq(b Amount) bool { return a.Decimal.Equal(b.Decimal) }

// Format renders "₦1,500" or "₦1,500.50"; whole amounts drop the kobo.
func Format(a Amount) string {
	sign := ""
	d := a.Decimal
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	d = d.Round(2)
	whole := d.Truncate(0)
	frac := d.Sub(whole)

	out := sign + "₦" + withCommas(whole.String())
	if !frac.IsZero() {
		out += fmt.Sprintf(".%02d", frac.Shift(2).IntPart())
	}
	return out
}

func withCommas(digits string) string {
	var b strings.Builder
	l := len(digits)
	for i := 0; i < l; i++ {
		b.WriteByte(digits[i])
		rem := l - i - 1
		if rem > 0 && rem%3 == 0 {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

func (a Amount) String() string { return a.Decimal.String() }
