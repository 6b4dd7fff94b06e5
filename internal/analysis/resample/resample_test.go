package resample

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// elevenBit is a slice of 11BIT daily quotes around the end of May 2022.
var elevenBit = []models.Candle{
	{Date: "20220527", Open: 480, High: 492, Low: 476, Close: 489, Volume: 2100},
	{Date: "20220530", Open: 489, High: 500, Low: 481.5, Close: 498, Volume: 2500},
	{Date: "20220531", Open: 498, High: 515, Low: 495, Close: 512, Volume: 3100},
	{Date: "20220601", Open: 512, High: 543, Low: 508, Close: 530, Volume: 4200},
	{Date: "20220602", Open: 530, High: 535, Low: 515, Close: 518, Volume: 2349},
	{Date: "20220603", Open: 518, High: 526, Low: 512, Close: 522, Volume: 1900},
	{Date: "20220606", Open: 520, High: 531, Low: 510, Close: 518, Volume: 1885},
}

func TestDailyIsIdentity(t *testing.T) {
	out, err := Resample(elevenBit, models.Daily)
	require.NoError(t, err)
	assert.Equal(t, elevenBit, out)

	out[0].Close = 0
	assert.Equal(t, 489.0, elevenBit[0].Close, "daily resample must copy")
}

func TestWeeklyElevenBit(t *testing.T) {
	weeks, err := Resample(elevenBit, models.Weekly)
	require.NoError(t, err)
	require.Len(t, weeks, 3)

	assert.Equal(t, elevenBit[0], weeks[0])
	assert.Equal(t, models.Candle{
		Date:   "20220603",
		Open:   489,
		High:   543,
		Low:    481.5,
		Close:  522,
		Volume: 14049,
	}, weeks[1])
	assert.Equal(t, elevenBit[6], weeks[2])
}

func TestWeeklyAcrossYearBoundary(t *testing.T) {
	days := []models.Candle{
		{Date: "20141229", Open: 64.58, High: 66, Low: 64.05, Close: 65.9, Volume: 20000},
		{Date: "20141230", Open: 66, High: 70, Low: 65.5, Close: 69.8, Volume: 25000},
		{Date: "20141231", Open: 70, High: 76.6, Low: 69, Close: 74, Volume: 22512},
		{Date: "20150102", Open: 74, High: 75, Low: 71, Close: 72, Volume: 15000},
	}

	weeks, err := Weekly(days)
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Equal(t, models.Candle{
		Date:   "20150102",
		Open:   64.58,
		High:   76.6,
		Low:    64.05,
		Close:  72,
		Volume: 82512,
	}, weeks[0])
}

func TestWeeklyDoesNotMutateInput(t *testing.T) {
	in := make([]models.Candle, len(elevenBit))
	copy(in, elevenBit)

	_, err := Weekly(in)
	require.NoError(t, err)
	assert.Equal(t, elevenBit, in)
}

func TestWeeklyEmptyAndSingle(t *testing.T) {
	weeks, err := Weekly(nil)
	require.NoError(t, err)
	assert.Empty(t, weeks)

	weeks, err = Weekly(elevenBit[:1])
	require.NoError(t, err)
	assert.Equal(t, elevenBit[:1], weeks)
}

func TestUnknownGranularity(t *testing.T) {
	_, err := Resample(elevenBit, models.Granularity("monthly"))
	assert.ErrorIs(t, err, errors.ErrUnknownGranularity)
}

func TestWeekStart(t *testing.T) {
	tests := map[string]string{
		"20220530": "20220530", // Monday
		"20220603": "20220530", // Friday
		"20220605": "20220530", // Sunday
		"20150102": "20141229",
		"20160101": "20151228",
	}
	for in, want := range tests {
		got, err := WeekStart(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := WeekStart("2022-06-03")
	assert.Error(t, err)

	same, err := SameWeek("20141229", "20150102")
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameWeek("20220603", "20220606")
	require.NoError(t, err)
	assert.False(t, same)
}

// dailySeriesGen generates consecutive trading days with well-formed bars.
func dailySeriesGen() gopter.Gen {
	start := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
	return gen.SliceOfN(60, gen.Float64Range(1, 500)).Map(func(prices []float64) []models.Candle {
		out := make([]models.Candle, 0, len(prices))
		day := start
		for i, p := range prices {
			for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				day = day.AddDate(0, 0, 1)
			}
			out = append(out, models.Candle{
				Date:   day.Format(models.DateLayout),
				Open:   p,
				High:   p * 1.05,
				Low:    p * 0.95,
				Close:  p * (1 + float64(i%3-1)/100),
				Volume: float64(100 + i),
			})
			day = day.AddDate(0, 0, 1)
		}
		return out
	})
}

func TestProperty_WeeklyConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("weekly buckets conserve volume and extremes", prop.ForAll(
		func(days []models.Candle) bool {
			weeks, err := Weekly(days)
			if err != nil {
				return false
			}

			var dayVol, weekVol float64
			dayHigh, dayLow := math.Inf(-1), math.Inf(1)
			weekHigh, weekLow := math.Inf(-1), math.Inf(1)
			for _, d := range days {
				dayVol += d.Volume
				dayHigh = math.Max(dayHigh, d.High)
				dayLow = math.Min(dayLow, d.Low)
			}
			for _, w := range weeks {
				weekVol += w.Volume
				weekHigh = math.Max(weekHigh, w.High)
				weekLow = math.Min(weekLow, w.Low)
			}
			return math.Abs(dayVol-weekVol) < 1e-6 && dayHigh == weekHigh && dayLow == weekLow
		},
		dailySeriesGen(),
	))

	properties.Property("weekly buckets end on the last day of their week", prop.ForAll(
		func(days []models.Candle) bool {
			weeks, err := Weekly(days)
			if err != nil || len(weeks) == 0 {
				return false
			}
			if weeks[len(weeks)-1].Date != days[len(days)-1].Date {
				return false
			}
			for i := 1; i < len(weeks); i++ {
				same, err := SameWeek(weeks[i-1].Date, weeks[i].Date)
				if err != nil || same {
					return false
				}
			}
			return models.ValidateSeries("GEN", weeks) == nil
		},
		dailySeriesGen(),
	))

	properties.TestingRun(t)
}
