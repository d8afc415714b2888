package money

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// RateScale is the number of Rate units in 1.0.
const RateScale = 1_000_000

var ErrInvalidRate = errors.New("money: invalid rate")

// Rate is a non-negative decimal fraction held in millionths, so 0.05 is Rate(50000).
type Rate int64

// ParseRate accepts decimal strings with up to six fractional digits ("0.05", "0.125", "1").
func ParseRate(value string) (Rate, error) {
	raw := strings.TrimSpace(value)
	if raw == "" || strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if strings.Trim(frac, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	if len(frac) > 6 {
		return 0, fmt.Errorf("%w: %q has more than 6 decimals", ErrInvalidRate, value)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", 6-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
		}
	}
	if w > (math.MaxInt64-f)/RateScale {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidRate, value)
	}
	return Rate(w*RateScale + f), nil
}

// MustRate is ParseRate for fixtures and tests.
func MustRate(value string) Rate {
	r, err := ParseRate(value)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rate) String() string {
	whole := int64(r) / RateScale
	frac := int64(r) % RateScale
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.String())), nil
}

// UnmarshalJSON accepts both "0.05" and 0.05.
func (r *Rate) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	parsed, err := ParseRate(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MulRate scales m by r, rounding half away from zero to the minor unit.
func (m Money) MulRate(r Rate) Money {
	product := new(big.Int).Mul(big.NewInt(m.Amount), big.NewInt(int64(r)))
	scale := big.NewInt(RateScale)
	quo, rem := new(big.Int).QuoRem(product, scale, new(big.Int))
	twice := new(big.Int).Abs(rem)
	twice.Lsh(twice, 1)
	if twice.Cmp(scale) >= 0 {
		if product.Sign() < 0 {
			quo.Sub(quo, big.NewInt(1))
		} else {
			quo.Add(quo, big.NewInt(1))
		}
	}
	return Money{Amount: quo.Int64(), Currency: m.Currency}
}
