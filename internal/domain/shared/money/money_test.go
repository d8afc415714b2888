package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Must(100, "AED").Add(Must(100, "USD"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := Sum("AED", Must(150, "AED"), Must(250, "AED"))
	require.NoError(t, err)
	assert.Equal(t, int64(400), sum.Amount)
	assert.Equal(t, "4.00 AED", sum.String())
}

func TestParseRate(t *testing.T) {
	cases := map[string]Rate{
		"0.05":     50_000,
		"0.125":    125_000,
		"1":        1_000_000,
		"0.000001": 1,
	}
	for in, want := range cases {
		got, err := ParseRate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "-0.1", "0.1234567", "abc", "1.2.3"} {
		_, err := ParseRate(bad)
		assert.ErrorIs(t, err, ErrInvalidRate, bad)
	}
}

func TestParseRateRejectsOverflow(t *testing.T) {
	got, err := ParseRate("9223372036854.775807")
	require.NoError(t, err)
	assert.Equal(t, Rate(math.MaxInt64), got)

	for _, raw := range []string{"9223372036854.775808", "9223372036855", "10000000000000", "9223372036854775807"} {
		_, err := ParseRate(raw)
		assert.ErrorIs(t, err, ErrInvalidRate, raw)
	}
}

func TestMulRateRoundsHalfAwayFromZero(t *testing.T) {
	fivePct := MustRate("0.05")
	assert.Equal(t, int64(5), Must(90, "AED").MulRate(fivePct).Amount)   // 4.5 -> 5
	assert.Equal(t, int64(4), Must(89, "AED").MulRate(fivePct).Amount)   // 4.45 -> 4
	assert.Equal(t, int64(-5), Must(-90, "AED").MulRate(fivePct).Amount) // -4.5 -> -5
	assert.Equal(t, int64(0), Must(0, "AED").MulRate(fivePct).Amount)
}

func TestRateJSON(t *testing.T) {
	var cfg struct {
		Fee Rate `json:"fee"`
		Tax Rate `json:"tax"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"fee":"0.12","tax":0.05}`), &cfg))
	assert.Equal(t, MustRate("0.12"), cfg.Fee)
	assert.Equal(t, MustRate("0.05"), cfg.Tax)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fee":"0.12","tax":"0.05"}`, string(out))
}
