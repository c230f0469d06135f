package loancalc

import (
	"testing"
	"time"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, timeutil.IST)
}

func sums(items []models.Installment) (principal, interest decimal.Decimal) {
	principal, interest = decimal.Zero, decimal.Zero
	for _, it := range items {
		principal = principal.Add(it.PrincipalAmount)
		interest = interest.Add(it.InterestAmount)
	}
	return
}

func TestGenerate_MonthlyExample(t *testing.T) {
	s, err := Generate(Params{
		Principal:      d("50000"),
		InterestRate:   d("2"),
		DurationMonths: 6,
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2024, time.January, 15),
	})
	require.NoError(t, err)

	assert.Equal(t, 6, s.Periods)
	assert.Equal(t, "6000.00", s.TotalInterest.StringFixed(2))
	assert.Equal(t, "56000.00", s.TotalPayable.StringFixed(2))
	require.Len(t, s.Installments, 6)

	for i, it := range s.Installments[:5] {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, "8333.33", it.PrincipalAmount.StringFixed(2))
		assert.Equal(t, "8333.33", it.InstallmentAmount.StringFixed(2))
		assert.Equal(t, "1000.00", it.InterestAmount.StringFixed(2))
		assert.Equal(t, "9333.33", it.Amount.StringFixed(2))
		assert.Equal(t, models.InstallmentPending, it.Status)
	}
	last := s.Installments[5]
	assert.Equal(t, "8333.35", last.PrincipalAmount.StringFixed(2))
	assert.Equal(t, "1000.00", last.InterestAmount.StringFixed(2))

	assert.Equal(t, date(2024, time.February, 15), s.Installments[0].DueDate)
	assert.Equal(t, date(2024, time.July, 15), last.DueDate)

	p, in := sums(s.Installments)
	assert.True(t, p.Equal(d("50000")))
	assert.True(t, in.Equal(d("6000")))
}

func TestGenerate_SumsAreExact(t *testing.T) {
	cases := []Params{
		{Principal: d("10000"), InterestRate: d("3"), DurationMonths: 3, Frequency: models.FrequencyWeekly},
		{Principal: d("100"), InterestRate: d("1.5"), DurationMonths: 6, Frequency: models.FrequencyDaily},
		{Principal: d("777.77"), InterestRate: d("0"), DurationMonths: 7, Frequency: models.FrequencyMonthly},
		{Principal: d("1"), InterestRate: d("12.5"), DurationMonths: 2, Frequency: models.FrequencyDaily},
	}
	for _, c := range cases {
		c.StartDate = date(2024, time.March, 1)
		s, err := Generate(c)
		require.NoError(t, err)
		require.Len(t, s.Installments, Periods(c.Frequency, c.DurationMonths))

		p, in := sums(s.Installments)
		assert.True(t, p.Equal(c.Principal), "principal %s != %s", p, c.Principal)
		assert.True(t, in.Equal(s.TotalInterest), "interest %s != %s", in, s.TotalInterest)

		last := s.Installments[len(s.Installments)-1]
		assert.False(t, last.PrincipalAmount.IsNegative())
		assert.True(t, last.PrincipalAmount.GreaterThanOrEqual(s.Installments[0].PrincipalAmount))
	}
}

func TestGenerate_Periods(t *testing.T) {
	assert.Equal(t, 3, Periods(models.FrequencyMonthly, 3))
	assert.Equal(t, 12, Periods(models.FrequencyWeekly, 3))
	assert.Equal(t, 90, Periods(models.FrequencyDaily, 3))
}

func TestGenerate_DueDates(t *testing.T) {
	start := date(2024, time.March, 1)

	weekly, err := Generate(Params{Principal: d("400"), InterestRate: d("1"), DurationMonths: 1, Frequency: models.FrequencyWeekly, StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 8), weekly.Installments[0].DueDate)
	assert.Equal(t, date(2024, time.March, 29), weekly.Installments[3].DueDate)

	daily, err := Generate(Params{Principal: d("300"), InterestRate: d("1"), DurationMonths: 1, Frequency: models.FrequencyDaily, StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 2), daily.Installments[0].DueDate)
	assert.Equal(t, date(2024, time.March, 31), daily.Installments[29].DueDate)
}

func TestAddMonthsClamped(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 29), AddMonthsClamped(date(2024, time.January, 31), 1))
	assert.Equal(t, date(2023, time.February, 28), AddMonthsClamped(date(2023, time.January, 31), 1))
	assert.Equal(t, date(2024, time.March, 31), AddMonthsClamped(date(2024, time.January, 31), 2))
	assert.Equal(t, date(2025, time.January, 15), AddMonthsClamped(date(2024, time.December, 15), 1))
}

func TestGenerate_InvalidParameters(t *testing.T) {
	base := Params{Principal: d("1000"), InterestRate: d("2"), DurationMonths: 1, Frequency: models.FrequencyMonthly}

	zero := base
	zero.Principal = decimal.Zero
	negRate := base
	negRate.InterestRate = d("-1")
	noMonths := base
	noMonths.DurationMonths = 0
	badFreq := base
	badFreq.Frequency = "YEARLY"
	longDaily := base
	longDaily.Frequency = models.FrequencyDaily
	longDaily.DurationMonths = MaxDurationMonths + 1
	overflow := base
	overflow.Frequency = models.FrequencyDaily
	overflow.DurationMonths = 1 << 62
	highRate := base
	highRate.InterestRate = d("100.5")
	hugePrincipal := base
	hugePrincipal.Principal = d("1000000000000")

	for name, p := range map[string]Params{
		"zero principal":    zero,
		"negative rate":     negRate,
		"zero duration":     noMonths,
		"frequency":         badFreq,
		"too long":          longDaily,
		"duration overflow": overflow,
		"rate too high":     highRate,
		"principal too big": hugePrincipal,
	} {
		_, err := Generate(p)
		assert.ErrorIs(t, err, apperrors.ErrInvalidLoanParameters, name)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest, name)
	}
}

func TestPreview(t *testing.T) {
	p, err := Preview(Params{Principal: d("1200"), InterestRate: d("1"), DurationMonths: 12, Frequency: models.FrequencyMonthly, StartDate: date(2024, time.May, 10)})
	require.NoError(t, err)
	assert.Equal(t, 12, p.Periods)
	assert.Equal(t, "144.00", p.TotalInterest.StringFixed(2))
	assert.Equal(t, "1344.00", p.TotalPayable.StringFixed(2))
	assert.Len(t, p.Installments, 12)
}

func TestGenerate_LongestDailyLoan(t *testing.T) {
	s, err := Generate(Params{Principal: d("360000"), InterestRate: d("1"), DurationMonths: MaxDurationMonths, Frequency: models.FrequencyDaily, StartDate: date(2024, time.January, 1)})
	require.NoError(t, err)
	assert.Equal(t, 3600, s.Periods)
	assert.Len(t, s.Installments, 3600)
}
