package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisense/internal/evaluator"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

func resultAt(ts time.Time, completeness, soilTemp float64) *evaluator.Result {
	return &evaluator.Result{
		Quality: evaluator.Quality{Completeness: completeness, ReadingCount: 1},
		Latest: &entities.Reading{Timestamp: ts, Values: map[entities.Field]float64{
			entities.FieldTemperature: soilTemp,
		}},
	}
}

type alertKey struct {
	Kind entities.AlertKind
	Tier entities.Tier
}

func keys(as []entities.Alert) []alertKey {
	out := []alertKey{}
	for _, a := range as {
		out = append(out, alertKey{a.Kind, a.Tier})
	}
	return out
}

func TestSystemAlerts(t *testing.T) {
	calm := &entities.WeatherSnapshot{Temperature: 22, WindSpeed: 2}
	cases := []struct {
		name    string
		res     *evaluator.Result
		weather *entities.WeatherSnapshot
		fresh   Freshness
		want    []alertKey
	}{
		{"all clear", resultAt(base, 1, 24), calm, FreshnessExcellent, []alertKey{}},
		{"no evaluation", nil, calm, FreshnessNoData, []alertKey{}},
		{"empty window", &evaluator.Result{}, calm, FreshnessNoData, []alertKey{}},
		{"completeness 0.79", resultAt(base, 0.79, 24), nil, FreshnessExcellent,
			[]alertKey{{entities.AlertDataQuality, entities.TierWarning}}},
		{"completeness 0.8", resultAt(base, 0.8, 24), nil, FreshnessExcellent, []alertKey{}},
		{"completeness 0.49", resultAt(base, 0.49, 24), nil, FreshnessExcellent,
			[]alertKey{{entities.AlertDataQuality, entities.TierCritical}}},
		{"freshness fair", resultAt(base, 1, 24), nil, FreshnessFair,
			[]alertKey{{entities.AlertDataQuality, entities.TierWarning}}},
		{"freshness poor", resultAt(base, 1, 24), nil, FreshnessPoor,
			[]alertKey{{entities.AlertDataQuality, entities.TierCritical}}},
		{"wind 10 m/s", resultAt(base, 1, 24), &entities.WeatherSnapshot{Temperature: 22, WindSpeed: 10}, FreshnessGood, []alertKey{}},
		{"wind 12 m/s", resultAt(base, 1, 24), &entities.WeatherSnapshot{Temperature: 22, WindSpeed: 12}, FreshnessGood,
			[]alertKey{{entities.AlertWeather, entities.TierWarning}}},
		{"wind 21 m/s", resultAt(base, 1, 24), &entities.WeatherSnapshot{Temperature: 22, WindSpeed: 21}, FreshnessGood,
			[]alertKey{{entities.AlertWeather, entities.TierCritical}}},
		{"heavy rain", resultAt(base, 1, 24), &entities.WeatherSnapshot{Temperature: 22, Rain1h: 12}, FreshnessGood,
			[]alertKey{{entities.AlertWeather, entities.TierInfo}}},
		{"air soil gap", resultAt(base, 1, 10), &entities.WeatherSnapshot{Temperature: 30}, FreshnessGood,
			[]alertKey{{entities.AlertWeather, entities.TierInfo}}},
		{"gap of exactly 15", resultAt(base, 1, 15), &entities.WeatherSnapshot{Temperature: 30}, FreshnessGood, []alertKey{}},
		{"stopped reporting", resultAt(base.Add(-3*time.Hour), 1, 24), nil, FreshnessPoor, []alertKey{
			{entities.AlertDataQuality, entities.TierCritical},
			{entities.AlertSystem, entities.TierWarning},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SystemAlerts(tc.res, tc.weather, tc.fresh, base)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, keys(got))
			for _, a := range got {
				assert.Equal(t, base, a.Timestamp)
				assert.NotEmpty(t, a.Message)
				assert.NotEmpty(t, a.Action)
			}
		})
	}
}

func TestSystemAlerts_Values(t *testing.T) {
	got := SystemAlerts(resultAt(base, 0.4, 10), &entities.WeatherSnapshot{Temperature: 30, WindSpeed: 25}, FreshnessGood, base)
	require.Len(t, got, 3)

	require.NotNil(t, got[0].Value)
	assert.InDelta(t, 40.0, *got[0].Value, 1e-9)
	assert.Contains(t, got[0].Message, "40%")

	assert.Equal(t, 25.0, *got[1].Value)
	assert.Equal(t, entities.FieldTemperature, got[2].Field)
	assert.Equal(t, 20.0, *got[2].Value)
}

func TestRunCycle_SystemAlertsReachEventAndAPI(t *testing.T) {
	rg, h := newAPI(t)
	rg.weather.w = &entities.WeatherSnapshot{Temperature: 22, WindSpeed: 24}

	snap, err := rg.refresher.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.SystemAlerts, 1)
	assert.Equal(t, entities.AlertWeather, snap.SystemAlerts[0].Kind)
	assert.Len(t, snap.Result.Alerts, 2)
	assert.Len(t, snap.Alerts(), 3)

	pubs := rg.client.Published()
	require.Len(t, pubs, 1)
	var ev messages.EvaluationEvent
	require.NoError(t, json.Unmarshal(pubs[0].Payload, &ev))
	require.Len(t, ev.Alerts, 3)
	assert.Equal(t, entities.AlertField, ev.Alerts[0].Kind)
	assert.Equal(t, entities.AlertWeather, ev.Alerts[2].Kind)

	var crit struct {
		Alerts []entities.Alert `json:"alerts"`
	}
	decode(t, serve(t, h, http.MethodGet, "/api/alerts?tier=critical"), &crit)
	require.Len(t, crit.Alerts, 2)
	assert.Equal(t, entities.FieldNitrogen, crit.Alerts[0].Field)
	assert.Equal(t, entities.AlertWeather, crit.Alerts[1].Kind)

	assert.Equal(t, 2.0, testutil.ToFloat64(rg.metrics.alerts.WithLabelValues("critical")))
}
