package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSeries() InstrumentSeries {
	s := InstrumentSeries{Key: "SX50E", Entry: 5010}
	d := day(2024, 11, 1)
	moms := []float64{0.45, -0.2, -0.8, 1.1, 0.05, -0.35, 0.9, 0.31, -0.31, 0.6}
	vols := []float64{18, 19, 33, 21, 17, 24, 26, 22, 31, 15}
	price := 5000.0
	for i := 0; i < 60; i++ {
		next := price + float64((i*37)%23-11)
		s.Bars = append(s.Bars, bar(d, price, next, moms[i%len(moms)], vols[i%len(vols)]))
		price = next
		d = d.AddDate(0, 0, 1)
	}
	return s
}

func TestRun_IsPure(t *testing.T) {
	s := sampleSeries()
	p := testParams()

	first := Run(s, p, Window{})
	second := Run(s, p, Window{})

	assert.Equal(t, first, second)
}

func TestRun_ExcludesLiveBar(t *testing.T) {
	s := sampleSeries()
	live := s.Bars[len(s.Bars)-1]
	// La última barra califica para LONG: no debe aparecer como trade
	s.Bars[len(s.Bars)-1] = bar(live.Date, 100, 200, 2.0, 10)

	bt := Run(s, testParams(), Window{})

	for _, tr := range bt.Journal.Trades {
		assert.NotEqual(t, live.Date, tr.Date)
	}
	assert.Len(t, bt.Journal.Equity, len(s.Bars)-1)
	assert.True(t, bt.HasLive)
	assert.Equal(t, SignalLong, bt.Signal)
}

func TestRun_WindowSlicesHistory(t *testing.T) {
	s := sampleSeries()

	bt := Run(s, testParams(), Window{Days: 22})

	require.Len(t, bt.Journal.Equity, 22)
	hist := s.Historical()
	assert.Equal(t, hist[len(hist)-22].Date, bt.Journal.Equity[0].Date)
}

func TestRun_SummaryMatchesJournal(t *testing.T) {
	bt := Run(sampleSeries(), testParams(), Window{})

	total := 0.0
	for _, y := range bt.Yearly {
		total += y.TotalPnL
	}
	assert.InDelta(t, bt.Summary.TotalPnL, total, 1e-9)
	assert.InDelta(t, bt.Journal.FinalEquity-20000, bt.Summary.TotalPnL, 1e-9)
	assert.Equal(t, len(bt.Journal.Trades), bt.Summary.Trades)
}

// --- Window ---

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0}, {"MAX", 0}, {"all", 0}, {"1M", 22}, {"3m", 66}, {"1Y", 252}, {"10", 10},
	}
	for _, tt := range tests {
		w, err := ParseWindow(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, w.Days, tt.in)
	}

	_, err := ParseWindow("2W")
	assert.Error(t, err)
	_, err = ParseWindow("-4")
	assert.Error(t, err)
}

func TestWindow_Apply(t *testing.T) {
	bars := make([]Bar, 5)
	assert.Len(t, Window{Days: 2}.Apply(bars), 2)
	assert.Len(t, Window{Days: 9}.Apply(bars), 5)
	assert.Len(t, Window{}.Apply(bars), 5)
	assert.Equal(t, "MAX", Window{}.String())
	assert.Equal(t, "22d", Window{Days: 22}.String())
}

// --- Errors ---

func TestInputError_IsKindAndCause(t *testing.T) {
	cause := errors.New("bad json")
	err := fmt.Errorf("load: %w", MalformedInput("DAX", cause))

	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMissingInput)
	assert.Equal(t, "MALFORMED_INPUT", ErrorCode(err))
	assert.Contains(t, err.Error(), "malformed input (DAX): bad json")

	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "DAX", ie.Instrument)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "MISSING_INPUT", ErrorCode(MissingInput("", "no file")))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(errors.New("boom")))
}

// --- Params ---

func TestParams_MapsAreCopied(t *testing.T) {
	mults := map[string]float64{"DAX": 25}
	p := NewParams(0.3, VolatilityCaps{25, 32}, 2, 20000, mults, nil)
	mults["DAX"] = 1

	assert.Equal(t, 25.0, p.Multiplier("DAX"))
	assert.Equal(t, 1.0, p.Multiplier("CAC"))
	assert.Equal(t, "CAC", p.DisplayName("CAC"))

	out := p.Multipliers()
	out["DAX"] = 99
	assert.Equal(t, 25.0, p.Multiplier("DAX"))
}

func TestDefaultParams_Multipliers(t *testing.T) {
	p := DefaultParams()
	for key, want := range map[string]float64{"SX50E": 10, "DAX": 25, "FTSEMIB": 5, "CAC": 10, "IBEX": 10} {
		assert.Equal(t, want, p.Multiplier(key), key)
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	bad := NewParams(-1, VolatilityCaps{0, 32}, -2, 0, map[string]float64{"DAX": 0}, nil)
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "caps")
	assert.Contains(t, err.Error(), "multiplier for DAX")
}
