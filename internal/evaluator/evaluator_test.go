package evaluator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/thresholds"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

// window builds one reading per value of field f, 15 minutes apart.
func window(f entities.Field, values ...float64) []entities.Reading {
	out := make([]entities.Reading, len(values))
	for i, v := range values {
		out[i] = entities.Reading{
			Timestamp: t0.Add(time.Duration(i) * 15 * time.Minute),
			Values:    map[entities.Field]float64{f: v},
		}
	}
	return out
}

func fullReading(ts time.Time) entities.Reading {
	return entities.Reading{
		Timestamp: ts,
		GPS:       &entities.GPS{Latitude: 6.6018, Longitude: 3.3515},
		Values: map[entities.Field]float64{
			entities.FieldTemperature:  25,
			entities.FieldHumidity:     55,
			entities.FieldPH:           6.5,
			entities.FieldNitrogen:     30,
			entities.FieldPhosphorus:   20,
			entities.FieldPotassium:    30,
			entities.FieldConductivity: 150,
			entities.FieldTDS:          100,
		},
	}
}

// phTable is the general table with the pH band used in the tiering examples.
func phTable() thresholds.Table {
	table := thresholds.Default()
	p := table["general"]
	p.PH = &entities.ThresholdBand{CriticalLow: 5.5, OptimalLow: 6.0, OptimalHigh: 7.0, CriticalHigh: 7.5}
	table["general"] = p
	return table
}

func general() Options { return Options{Profile: "general"} }

func TestEvaluate_PHTiering(t *testing.T) {
	cases := []struct {
		value float64
		tier  entities.Tier
		dir   entities.Direction
	}{
		{7.6, entities.TierCritical, entities.DirectionHigh},
		{6.5, entities.TierNormal, entities.DirectionNone},
		{7.2, entities.TierWarning, entities.DirectionHigh},
		{5.8, entities.TierWarning, entities.DirectionLow},
		{5.4, entities.TierCritical, entities.DirectionLow},
		{7.5, entities.TierWarning, entities.DirectionHigh},
		{6.0, entities.TierNormal, entities.DirectionNone},
	}
	for _, tc := range cases {
		res, err := Evaluate(window(entities.FieldPH, tc.value), phTable(), general())
		require.NoError(t, err)

		if tc.tier == entities.TierNormal {
			assert.Empty(t, res.Alerts, "pH %.1f", tc.value)
			continue
		}
		require.Len(t, res.Alerts, 1, "pH %.1f", tc.value)
		a := res.Alerts[0]
		assert.Equal(t, entities.FieldPH, a.Field)
		assert.Equal(t, tc.tier, a.Tier, "pH %.1f", tc.value)
		assert.Equal(t, tc.dir, a.Direction, "pH %.1f", tc.value)
		require.NotNil(t, a.Value)
		assert.Equal(t, tc.value, *a.Value)
		assert.Equal(t, 7.5, a.Band.CriticalHigh)
		assert.Equal(t, t0, a.Timestamp)
	}
}

func TestEvaluate_AlertsUseLatestReadingOnly(t *testing.T) {
	// an old breach followed by a normal value raises nothing
	res, err := Evaluate(window(entities.FieldPH, 8.5, 9.0, 6.5), phTable(), general())
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)

	// every evaluation re-emits the breach of the latest reading
	res, err = Evaluate(window(entities.FieldPH, 7.6, 7.6), phTable(), general())
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, entities.TierCritical, res.Alerts[0].Tier)
}

func TestEvaluate_AlertsCanonicalOrder(t *testing.T) {
	r := fullReading(t0)
	r.Values[entities.FieldTDS] = 500       // critical high
	r.Values[entities.FieldTemperature] = 5 // critical low
	r.Values[entities.FieldNitrogen] = 10   // warning low
	res, err := Evaluate([]entities.Reading{r}, thresholds.Default(), general())
	require.NoError(t, err)

	require.Len(t, res.Alerts, 3)
	assert.Equal(t, entities.FieldTemperature, res.Alerts[0].Field)
	assert.Equal(t, entities.FieldNitrogen, res.Alerts[1].Field)
	assert.Equal(t, entities.FieldTDS, res.Alerts[2].Field)
	assert.Equal(t, entities.TierCritical, res.StrongestTier())
	assert.Equal(t, entities.TierWarning, res.StrongestTier(entities.FieldNitrogen, entities.FieldPH))
	assert.Equal(t, entities.TierNormal, res.StrongestTier(entities.FieldPH))

	a, ok := res.AlertFor(entities.FieldNitrogen)
	require.True(t, ok)
	assert.Equal(t, entities.DirectionLow, a.Direction)
	assert.Contains(t, a.Message, "nitrogen warning low at 10.00 ppm")
}

func TestEvaluate_AlertOnMissing(t *testing.T) {
	opts := general()
	opts.AlertOnMissing = true
	res, err := Evaluate(window(entities.FieldPH, 6.5), phTable(), opts)
	require.NoError(t, err)

	require.Len(t, res.Alerts, len(entities.AllFields)-1)
	for _, a := range res.Alerts {
		assert.Equal(t, entities.TierInfo, a.Tier)
		assert.Nil(t, a.Value)
		assert.NotEqual(t, entities.FieldPH, a.Field)
	}
	_, ok := res.AlertFor(entities.FieldTemperature)
	assert.False(t, ok, "info alerts are not threshold breaches")

	res, err = Evaluate(window(entities.FieldPH, 6.5), phTable(), general())
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)
}

func TestEvaluate_QualityScore(t *testing.T) {
	table := thresholds.Default()

	t.Run("complete and plausible", func(t *testing.T) {
		res, err := Evaluate([]entities.Reading{fullReading(t0), fullReading(t0.Add(time.Minute))}, table, general())
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.QualityScore)
		assert.Equal(t, 2, res.Quality.ReadingCount)
	})

	t.Run("all null", func(t *testing.T) {
		w := []entities.Reading{{Timestamp: t0}, {Timestamp: t0.Add(time.Minute), Values: map[entities.Field]float64{}}}
		res, err := Evaluate(w, table, general())
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.QualityScore)
		assert.Empty(t, res.Alerts)
	})

	t.Run("half the fields", func(t *testing.T) {
		r := fullReading(t0)
		for _, f := range entities.AllFields[4:] {
			delete(r.Values, f)
		}
		res, err := Evaluate([]entities.Reading{r}, table, general())
		require.NoError(t, err)
		assert.InDelta(t, 0.5, res.QualityScore, 1e-9)
		assert.InDelta(t, 0.5, res.Quality.Completeness, 1e-9)
	})

	t.Run("implausible reading", func(t *testing.T) {
		bad := fullReading(t0.Add(time.Minute))
		bad.Values[entities.FieldPH] = 15 // outside [0,14]
		res, err := Evaluate([]entities.Reading{fullReading(t0), bad}, table, general())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Quality.ImplausibleCount)
		assert.InDelta(t, 0.5, res.Quality.ImplausibleRatio, 1e-9)
		assert.InDelta(t, 0.5, res.QualityScore, 1e-9)
	})

	t.Run("always within bounds", func(t *testing.T) {
		w := window(entities.FieldHumidity, -10, 150, 50, 101)
		res, err := Evaluate(w, table, general())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.QualityScore, 0.0)
		assert.LessOrEqual(t, res.QualityScore, 1.0)
	})
}

func TestEvaluate_Stats(t *testing.T) {
	res, err := Evaluate(window(entities.FieldNitrogen, 1, 2, 3, 4), thresholds.Default(), general())
	require.NoError(t, err)

	st := res.Stats[entities.FieldNitrogen]
	assert.True(t, st.Available)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 4.0, st.Max)
	assert.Equal(t, 2.5, st.Mean)
	assert.InDelta(t, math.Sqrt(1.25), st.StdDev, 1e-12)

	// one value is not enough
	res, err = Evaluate(window(entities.FieldNitrogen, 7), thresholds.Default(), general())
	require.NoError(t, err)
	assert.False(t, res.Stats[entities.FieldNitrogen].Available)
	assert.Equal(t, 1, res.Stats[entities.FieldNitrogen].Count)
	assert.False(t, res.Stats[entities.FieldPH].Available)
}

func TestEvaluate_Trends(t *testing.T) {
	table := thresholds.Default()
	cases := []struct {
		name   string
		values []float64
		want   Direction
	}{
		{"rising", []float64{20, 21, 22, 23, 24}, Rising},
		{"flat", []float64{20, 20, 20, 20, 20}, Stable},
		{"falling", []float64{24, 23, 22, 21, 20}, Falling},
		{"noise below epsilon", []float64{20, 20.01, 20, 20.01, 20}, Stable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Evaluate(window(entities.FieldTemperature, tc.values...), table, general())
			require.NoError(t, err)
			tr := res.Trends[entities.FieldTemperature]
			assert.True(t, tr.Available)
			assert.Equal(t, tc.want, tr.Direction)
		})
	}

	res, err := Evaluate(window(entities.FieldTemperature, 20, 21, 22, 23, 24), table, general())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Trends[entities.FieldTemperature].Slope, 1e-12)
}

func TestEvaluate_TrendSkipsNullsButKeepsIndex(t *testing.T) {
	w := window(entities.FieldHumidity, 40, 0, 44, 0, 48)
	delete(w[1].Values, entities.FieldHumidity)
	delete(w[3].Values, entities.FieldHumidity)

	res, err := Evaluate(w, thresholds.Default(), general())
	require.NoError(t, err)
	tr := res.Trends[entities.FieldHumidity]
	assert.Equal(t, Rising, tr.Direction)
	assert.InDelta(t, 2.0, tr.Slope, 1e-12)
	assert.Equal(t, 3, res.Stats[entities.FieldHumidity].Count)
}

func TestDeviates(t *testing.T) {
	assert.True(t, deviates(30, 25, 1, 2))
	assert.False(t, deviates(26, 25, 1, 2))
	assert.False(t, deviates(25, 25, 0, 2))
}

func TestEvaluate_Anomaly(t *testing.T) {
	table := thresholds.Default()
	var base []float64
	for i := 0; i < 10; i++ {
		base = append(base, 24, 26) // mean 25, stdev 1
	}

	res, err := Evaluate(window(entities.FieldTemperature, base...), table, general())
	require.NoError(t, err)
	st := res.Stats[entities.FieldTemperature]
	assert.InDelta(t, 25.0, st.Mean, 1e-12)
	assert.InDelta(t, 1.0, st.StdDev, 1e-12)
	assert.False(t, res.Trends[entities.FieldTemperature].Anomaly, "latest 26 is within 2 sigma")

	res, err = Evaluate(window(entities.FieldTemperature, append(base, 40)...), table, general())
	require.NoError(t, err)
	assert.True(t, res.Trends[entities.FieldTemperature].Anomaly)
	assert.Equal(t, []entities.Field{entities.FieldTemperature}, res.Anomalies())

	opts := general()
	opts.AnomalyK = 5
	res, err = Evaluate(window(entities.FieldTemperature, append(base, 40)...), table, opts)
	require.NoError(t, err)
	assert.False(t, res.Trends[entities.FieldTemperature].Anomaly)

	// stdev unavailable
	res, err = Evaluate(window(entities.FieldTemperature, 99), table, general())
	require.NoError(t, err)
	assert.False(t, res.Trends[entities.FieldTemperature].Anomaly)
}

func TestEvaluate_EmptyWindow(t *testing.T) {
	res, err := Evaluate(nil, thresholds.Default(), general())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.QualityScore)
	assert.NotNil(t, res.Alerts)
	assert.Empty(t, res.Alerts)
	assert.Nil(t, res.Latest)
	for _, f := range entities.AllFields {
		assert.Equal(t, Stable, res.Trends[f].Direction)
		assert.False(t, res.Trends[f].Available)
		assert.False(t, res.Stats[f].Available)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	w := []entities.Reading{fullReading(t0), fullReading(t0.Add(time.Hour))}
	w[1].Values[entities.FieldPH] = 7.3
	w[1].Values[entities.FieldHumidity] = 15
	table := thresholds.Default()

	a, err := Evaluate(w, table, general())
	require.NoError(t, err)
	b, err := Evaluate(w, table, general())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEvaluate_DoesNotAliasInput(t *testing.T) {
	w := []entities.Reading{fullReading(t0)}
	res, err := Evaluate(w, thresholds.Default(), general())
	require.NoError(t, err)

	res.Latest.Values[entities.FieldPH] = 1
	assert.Equal(t, 6.5, w[0].Values[entities.FieldPH])
}

func TestEvaluate_MissingGPS(t *testing.T) {
	r := fullReading(t0)
	r.GPS = nil
	res, err := Evaluate([]entities.Reading{r}, thresholds.Default(), general())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.QualityScore)
}

func TestEvaluate_UnknownProfile(t *testing.T) {
	_, err := Evaluate(window(entities.FieldPH, 6.5), thresholds.Default(), Options{Profile: "cassava"})
	require.Error(t, err)
	var cfgErr *thresholds.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestEvaluate_MalformedBandIsConfigurationError(t *testing.T) {
	cases := []struct {
		name  string
		patch func(p *thresholds.Profile)
		field entities.Field
		value float64
	}{
		{"band out of order", func(p *thresholds.Profile) {
			p.PH = &entities.ThresholdBand{CriticalLow: 7, OptimalLow: 6, OptimalHigh: 5, CriticalHigh: 4}
		}, entities.FieldPH, 6.5},
		{"missing band", func(p *thresholds.Profile) { p.Humidity = nil }, entities.FieldHumidity, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := thresholds.Default()
			p := table["general"]
			tc.patch(&p)
			table["general"] = p

			res, err := Evaluate(window(tc.field, tc.value), table, Options{Profile: "general"})
			require.Error(t, err)
			assert.Nil(t, res)
			var cfgErr *thresholds.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "general", cfgErr.Profile)
			assert.Equal(t, string(tc.field), cfgErr.Field)
		})
	}
}

func TestEvaluate_Indices(t *testing.T) {
	r := entities.Reading{
		Timestamp: t0,
		Values: map[entities.Field]float64{
			entities.FieldNitrogen:     25,
			entities.FieldPhosphorus:   20,
			entities.FieldPotassium:    25,
			entities.FieldPH:           6.8,
			entities.FieldConductivity: 100,
			entities.FieldTemperature:  30,
			entities.FieldHumidity:     60,
		},
	}
	res, err := Evaluate([]entities.Reading{r}, thresholds.Default(), general())
	require.NoError(t, err)
	require.NotNil(t, res.Indices.Fertility)
	require.NotNil(t, res.Indices.SoilHealth)
	require.NotNil(t, res.Indices.WaterStress)
	assert.InDelta(t, 50.0, *res.Indices.Fertility, 1e-9)
	assert.InDelta(t, 100.0, *res.Indices.SoilHealth, 1e-9)
	assert.InDelta(t, 0.0, *res.Indices.WaterStress, 1e-9)

	res, err = Evaluate(window(entities.FieldPH, 6.8), thresholds.Default(), general())
	require.NoError(t, err)
	assert.Nil(t, res.Indices.Fertility)
	assert.Nil(t, res.Indices.SoilHealth)
	assert.Nil(t, res.Indices.WaterStress)
}
