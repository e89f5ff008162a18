package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bark-bank/bark/internal/bankerr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "integer", in: "100", want: "100.0000"},
		{name: "four digits", in: "30.1234", want: "30.1234"},
		{name: "padded", in: " 0.5 ", want: "0.5000"},
		{name: "negative", in: "-12.25", want: "-12.2500"},
		{name: "trailing zeros beyond scale", in: "1.000000", want: "1.0000"},
		{name: "too precise", in: "0.00001", wantErr: true},
		{name: "garbage", in: "ten", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, bankerr.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestArithmeticIsExact(t *testing.T) {
	a := MustParse("0.1")
	b := MustParse("0.2")
	assert.True(t, a.Add(b).Equal(MustParse("0.3")))

	balance := MustParse("100")
	assert.Equal(t, "70.0000", balance.Sub(MustParse("30")).String())
	assert.True(t, MustParse("10").Sub(MustParse("10.0001")).IsNegative())
	assert.Equal(t, "-5.0000", FromInt(5).Neg().String())
	assert.Equal(t, "0.0003", MustParse("0.0001").Mul(3).String())
}

func TestComparisons(t *testing.T) {
	assert.Equal(t, -1, MustParse("1").Cmp(MustParse("2")))
	assert.True(t, MustParse("1").LessThan(MustParse("1.0001")))
	assert.True(t, MustParse("0.0001").IsPositive())
	assert.False(t, Zero.IsPositive())
	assert.True(t, Zero.IsZero())
	assert.Equal(t, "6.0000", Sum(FromInt(1), FromInt(2), FromInt(3)).String())
}

func TestJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: MustParse("30")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"30.0000"}`, string(payload))

	var fromString, fromNumber Money
	require.NoError(t, json.Unmarshal([]byte(`"12.5"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &fromNumber))
	assert.True(t, fromString.Equal(fromNumber))

	var bad Money
	assert.ErrorIs(t, json.Unmarshal([]byte(`"1.23456"`), &bad), bankerr.ErrInvalidAmount)
}
