package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnstrctnetwork/cnstrct/internal/money"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1234.56", want: 123456},
		{in: "1,234.56", want: 123456},
		{in: "$60000", want: 6000000},
		{in: " 10 ", want: 1000},
		{in: "0.005", want: 1},
		{in: "-12.30", want: -1230},
		{in: "", wantErr: true},
		{in: "twelve", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := money.ParseCents(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, money.ErrInvalidAmount)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEuropeanCents(t *testing.T) {
	got, err := money.ParseEuropeanCents("1.234,56")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), got)

	got, err = money.ParseEuropeanCents("-588,74")
	require.NoError(t, err)
	assert.Equal(t, int64(-58874), got)

	_, err = money.ParseEuropeanCents("abc")
	assert.Error(t, err)
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "49.99", money.Compact(4999))
	assert.Equal(t, "50", money.Compact(5000))
	assert.Equal(t, "49.9", money.Compact(4990))
	assert.Equal(t, "0", money.Compact(0))
}

func TestFormat(t *testing.T) {
	assert.Contains(t, money.Format(4999, "usd"), "49.99")
	assert.Contains(t, money.Format(4999, "usd"), "$")
	assert.Contains(t, money.Format(100, ""), "1.00")
}
