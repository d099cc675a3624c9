package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompute(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name      string
		date      time.Time
		shelfLife string
		want      time.Time
		ok        bool
	}{
		{"months", date(2025, 6, 1), "3 months", date(2025, 9, 1), true},
		{"days", date(2025, 6, 1), "30 days", date(2025, 7, 1), true},
		{"years", date(2024, 2, 29), "1 year", date(2025, 3, 1), true},
		{"upper case unit", date(2025, 1, 15), "6 MONTHS", date(2025, 7, 15), true},
		{"no unit means months", date(2025, 1, 15), "2", date(2025, 3, 15), true},
		{"thai days", date(2025, 1, 1), "10 วัน", date(2025, 1, 11), true},
		{"thai months", date(2025, 1, 1), "6 เดือน", date(2025, 7, 1), true},
		{"thai years", date(2025, 1, 1), "2 ปี", date(2027, 1, 1), true},
		{"short year", date(2025, 1, 1), "1 yr", date(2026, 1, 1), true},
		{"end of month overflows forward", date(2025, 1, 31), "1 months", date(2025, 3, 3), true},
		{"leading integer", date(2025, 1, 1), "12m", date(2026, 1, 1), true},
		{"surrounding spaces", date(2025, 1, 1), "  5 days  ", date(2025, 1, 6), true},
		{"empty", date(2025, 1, 1), "", time.Time{}, false},
		{"not a number", date(2025, 1, 1), "abc", time.Time{}, false},
		{"zero", date(2025, 1, 1), "0 days", time.Time{}, false},
		{"negative", date(2025, 1, 1), "-3 months", time.Time{}, false},
		{"zero date", time.Time{}, "3 months", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := calc.Compute(tt.date, tt.shelfLife)
			require.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestComputeDropsTimeOfDay(t *testing.T) {
	calc := NewCalculator(nil)

	got, ok := calc.Compute(time.Date(2025, 3, 10, 17, 45, 12, 0, time.UTC), "30 days")
	require.True(t, ok)
	assert.Equal(t, date(2025, 4, 9), got)
}

func TestDaysAreExact(t *testing.T) {
	calc := NewCalculator(nil)

	for d := date(2024, 1, 1); d.Year() == 2024; d = d.AddDate(0, 0, 17) {
		got, ok := calc.Compute(d, "30 days")
		require.True(t, ok)
		assert.Equal(t, d.AddDate(0, 0, 30), got)
	}
}

func TestUnknownUnitWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calc := NewCalculator(zap.New(core))

	got, ok := calc.Compute(date(2025, 1, 1), "4 fortnights")
	require.True(t, ok)
	assert.Equal(t, date(2025, 5, 1), got)
	assert.Equal(t, 1, logs.FilterMessage("unknown shelf life unit, falling back to months").Len())
}

func TestComputeDate(t *testing.T) {
	calc := NewCalculator(nil)

	assert.Equal(t, "2025-09-01", calc.ComputeDate("2025-06-01", "3 months"))
	assert.Equal(t, "", calc.ComputeDate("", "3 months"))
	assert.Equal(t, "", calc.ComputeDate("2025-06-01", ""))
	assert.Equal(t, "", calc.ComputeDate("01/06/2025", "3 months"))
	assert.Equal(t, "", calc.ComputeDate("2025-06-01", "abc"))
}

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry string
		state  State
		days   int
	}{
		{"expired", "2025-05-20", StateExpired, -12},
		{"near", "2025-06-20", StateNearExpiry, 19},
		{"threshold", "2025-07-01", StateNearExpiry, 30},
		{"normal", "2025-12-01", StateNormal, 183},
		{"empty", "", StateUnknown, 0},
		{"garbage", "soon", StateUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ClassifyDate(tt.expiry, now)
			assert.Equal(t, tt.state, st.State)
			assert.Equal(t, tt.days, st.DaysLeft)
		})
	}
}
