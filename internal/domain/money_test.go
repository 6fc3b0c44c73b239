package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "10000", want: "10000.00"},
		{in: "9500.5", want: "9500.50"},
		{in: "0.07", want: "0.07"},
		{in: " 42.10 ", want: "42.10"},
		{in: "1.230", want: "1.23"},
		{in: "-3", want: "-3.00"},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1e3", wantErr: true},
		{in: "+5", wantErr: true},
		{in: "1,000", wantErr: true},
		{in: "0.001", wantErr: true},
		{in: "NaN", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInputValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	// 0.10 added a thousand times drifts in binary floating point
	total := ZeroMoney
	dime := MustParseMoney("0.10")
	for i := 0; i < 1000; i++ {
		total = total.Add(dime)
	}
	assert.Equal(t, "100.00", total.String())
	cents, err := total.Cents()
	require.NoError(t, err)
	assert.Equal(t, int64(10000), cents)

	cost := MustParseMoney("50.00").MulInt(10)
	assert.Equal(t, "500.00", cost.String())
	assert.Equal(t, "9500.00", MustParseMoney("10000").Sub(cost).String())
	assert.True(t, MustParseMoney("1000000.00").GreaterThan(MustParseMoney("100")))
	assert.True(t, MoneyFromCents(950000).Equal(MustParseMoney("9500")))
}

func TestNewMoneyRoundsHalfUp(t *testing.T) {
	assert.Equal(t, "12.35", NewMoney(decimal.RequireFromString("12.345")).String())
	assert.Equal(t, "12.34", NewMoney(decimal.RequireFromString("12.3449")).String())
	assert.Equal(t, "7.00", NewMoney(decimal.NewFromInt(7)).String())
}

func TestMoneyFormat(t *testing.T) {
	assert.Equal(t, "$9,500.00", MustParseMoney("9500").Format())
	assert.Equal(t, "$0.07", MustParseMoney("0.07").Format())
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Cash Money `json:"cash"`
	}{Cash: MustParseMoney("10050")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cash":"10050.00"}`, string(b))

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.5","b":7}`), &in))
	assert.Equal(t, "12.50", in.A.String())
	assert.Equal(t, "7.00", in.B.String())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"1.005"}`), &in))
}

func TestMoneyIsBounded(t *testing.T) {
	m, err := ParseMoney("9999999999999999.99")
	require.NoError(t, err)
	assert.True(t, m.Equal(MaxMoney))

	cents, err := MaxMoney.Cents()
	require.NoError(t, err)
	assert.Equal(t, int64(999999999999999999), cents)

	for _, in := range []string{"10000000000000000", "184467440737095517.16", "-10000000000000000.00"} {
		_, err := ParseMoney(in)
		assert.ErrorIs(t, err, ErrInputValidation, in)
	}

	// arithmetic can leave the range; Cents refuses instead of wrapping
	huge := MaxMoney.MulInt(1000)
	assert.False(t, huge.InRange())
	_, err = huge.Cents()
	assert.ErrorIs(t, err, ErrInputValidation)
	assert.Equal(t, "$"+huge.String(), huge.Format())
}
