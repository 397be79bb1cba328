package shared

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps four places", "8987.0000", "8987.0000"},
		{"rounds half away from zero", "1.23455", "1.2346"},
		{"rounds negative half away from zero", "-1.23455", "-1.2346"},
		{"truncates below half", "83.333333", "83.3333"},
		{"pads integers", "5", "5.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundMoney(decimal.RequireFromString(tt.in))
			assert.Equal(t, tt.want, got.StringFixed(MoneyPlaces))
		})
	}
}

func TestMoneyFromFloat(t *testing.T) {
	t.Run("uses shortest decimal representation", func(t *testing.T) {
		assert.Equal(t, "8987.0000", MoneyFromFloat(8987.0).StringFixed(MoneyPlaces))
		assert.Equal(t, "0.3000", MoneyFromFloat(0.1+0.2).StringFixed(MoneyPlaces))
	})

	t.Run("rounds excess digits", func(t *testing.T) {
		assert.True(t, MoneyFromFloat(83.33333333).Equal(decimal.RequireFromString("83.3333")))
	})
}

func TestMoneyFromString(t *testing.T) {
	t.Run("parses and rounds", func(t *testing.T) {
		d, err := MoneyFromString(" 12.34567 ")
		require.NoError(t, err)
		assert.Equal(t, "12.3457", d.StringFixed(MoneyPlaces))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := MoneyFromString("abc")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestPositiveOrNull(t *testing.T) {
	assert.False(t, PositiveOrNull(decimal.Zero).Valid)
	assert.False(t, PositiveOrNull(decimal.NewFromInt(-5)).Valid)

	v := PositiveOrNull(decimal.RequireFromString("10.00004"))
	assert.True(t, v.Valid)
	assert.Equal(t, "10.0000", v.Decimal.StringFixed(MoneyPlaces))
}

func TestRatio(t *testing.T) {
	assert.True(t, Ratio(decimal.NewFromInt(400), decimal.NewFromInt(800)).Equal(decimal.RequireFromString("0.5")))
	assert.True(t, Ratio(decimal.NewFromInt(400), decimal.Zero).IsZero())
}

func TestParseBusinessDate(t *testing.T) {
	t.Run("maps to noon UTC", func(t *testing.T) {
		d, err := ParseBusinessDate("2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), d)
		assert.Equal(t, "2024-03-15", FormatBusinessDate(d))
	})

	t.Run("survives timezone shifts", func(t *testing.T) {
		d, err := ParseBusinessDate("2024-03-15")
		require.NoError(t, err)
		east := time.FixedZone("IST", 5*3600+1800)
		west := time.FixedZone("PST", -8*3600)
		assert.Equal(t, 15, d.In(east).Day())
		assert.Equal(t, 15, d.In(west).Day())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseBusinessDate("15/03/2024")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestSameDayOrLater(t *testing.T) {
	day := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, SameDayOrLater(day, day))
	assert.True(t, SameDayOrLater(time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), day))
	assert.True(t, SameDayOrLater(day.AddDate(0, 0, 1), day))
	assert.False(t, SameDayOrLater(day.AddDate(0, 0, -1), day))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsValidation(NewDomainError(CodeInsufficientStock, "short")))
	assert.True(t, IsNotFound(NewNotFoundError("Purchase", "abc")))
	assert.True(t, IsConflict(NewConflictError(CodeDuplicateReportDate, "dup")))
	assert.True(t, IsConflict(ErrConcurrencyConflict))
	assert.False(t, IsValidation(assert.AnError))
	assert.True(t, HasCode(NewDomainError(CodeEmptyLines, "x"), CodeEmptyLines))
}
