package sensor_simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

const (
	// gainPerMin is the moisture gain, in percentage points, while irrigating.
	gainPerMin = 0.6

	// defaultMoisture is used when SoilGrids is not reachable.
	defaultMoisture = 30.0

	// SoilGridsURL is fetched once at startup, never per tick.
	SoilGridsURL = "https://rest.isric.org/soilgrids/v2.0"

	// faultCode is what a failing probe reports; it is outside every
	// plausible range.
	faultCode = -999.0

	// tdsPerEC converts conductivity (µS/cm) to dissolved solids (ppm).
	tdsPerEC = 0.64
)

// walk describes the mean-reverting random walk of one field.
type walk struct {
	centre, jitter, min, max float64
}

var walks = map[entities.Field]walk{
	entities.FieldTemperature:  {24, 0.4, 5, 45},
	entities.FieldPH:           {6.6, 0.03, 4, 9},
	entities.FieldNitrogen:     {30, 1, 0, 120},
	entities.FieldPhosphorus:   {20, 0.8, 0, 100},
	entities.FieldPotassium:    {30, 1, 0, 120},
	entities.FieldConductivity: {120, 5, 0, 800},
}

type GeneratorConfig struct {
	// DecayPerMin is the moisture loss, in percentage points, while not
	// irrigating.
	DecayPerMin float64
	Seed        int64
	// SoilGridsURL overrides the SoilGrids API root.
	SoilGridsURL string
	// FaultRate is the probability that a field is dropped or garbled while
	// the probe is faulty.
	FaultRate float64
}

// DataGenerator keeps the state of one simulated probe. Moisture follows
// irrigation; the other quantities wander around their centre.
type DataGenerator struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	seeded      bool
	last        time.Time
	moisture    float64 // percent
	decayPerMin float64
	faultRate   float64
	values      map[entities.Field]float64
	http        *resty.Client
}

func NewDataGenerator(cfg GeneratorConfig) *DataGenerator {
	if cfg.SoilGridsURL == "" {
		cfg.SoilGridsURL = SoilGridsURL
	}
	if cfg.FaultRate <= 0 || cfg.FaultRate > 1 {
		cfg.FaultRate = 0.3
	}
	values := make(map[entities.Field]float64, len(walks))
	for f, w := range walks {
		values[f] = w.centre
	}
	return &DataGenerator{
		rnd:         rand.New(rand.NewSource(cfg.Seed)),
		decayPerMin: math.Max(0, cfg.DecayPerMin),
		faultRate:   cfg.FaultRate,
		values:      values,
		http: resty.New().
			SetBaseURL(cfg.SoilGridsURL).
			SetTimeout(8*time.Second).
			SetHeader("User-Agent", "agrisense-simulator/1.0").
			SetRetryCount(1).
			SetRetryWaitTime(600 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
			}),
	}
}

// SeedFromSoilGrids runs at most one SoilGrids lookup and falls back to
// defaultMoisture. It returns the seeded moisture.
func (g *DataGenerator) SeedFromSoilGrids(ctx context.Context, lat, lon float64) (float64, error) {
	seed := defaultMoisture
	var err error
	if lat != 0 || lon != 0 {
		var m float64
		if m, err = g.fetchSoilMoisture(ctx, lat, lon); err == nil {
			seed = m * 100
		}
	}
	g.Seed(seed)
	return seed, err
}

// Seed sets the moisture, in percent, and starts the clock.
func (g *DataGenerator) Seed(moisture float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moisture = clamp(moisture, 0, 100)
	g.seeded = true
	g.last = time.Time{}
}

// Next advances the state to now and returns the probe values. A faulty
// probe drops some fields (nil) and garbles others.
func (g *DataGenerator) Next(now time.Time, irrigating, faulty bool) map[model.Field]*float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seeded {
		g.moisture = defaultMoisture
		g.seeded = true
	}
	dtMin := 0.0
	if !g.last.IsZero() {
		dtMin = math.Max(0, now.Sub(g.last).Minutes())
	}
	g.last = now

	if irrigating {
		g.moisture = clamp(g.moisture+gainPerMin*dtMin, 0, 100)
	} else {
		g.moisture = clamp(g.moisture-g.decayPerMin*dtMin, 0, 100)
	}

	// draws follow AllFields so a seed replays the same series
	for _, f := range entities.AllFields {
		w, ok := walks[f]
		if !ok {
			continue
		}
		v := g.values[f]
		v += (w.centre-v)*0.1 + g.rnd.NormFloat64()*w.jitter
		g.values[f] = clamp(v, w.min, w.max)
	}

	out := make(map[model.Field]*float64, len(entities.AllFields))
	for _, f := range entities.AllFields {
		var v float64
		switch f {
		case entities.FieldHumidity:
			v = g.moisture
		case entities.FieldTDS:
			v = g.values[entities.FieldConductivity] * tdsPerEC
		default:
			v = g.values[f]
		}
		v = round2(v)
		if faulty {
			switch r := g.rnd.Float64(); {
			case r < g.faultRate/2:
				out[f] = nil
				continue
			case r < g.faultRate:
				v = faultCode
			}
		}
		out[f] = &v
	}
	return out
}

// Moisture returns the current soil moisture in percent.
func (g *DataGenerator) Moisture() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moisture
}

type soilGridsResponse struct {
	Properties struct {
		Layers []struct {
			Name   string `json:"name"`
			Depths []struct {
				Values map[string]json.RawMessage `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}

// fetchSoilMoisture returns the volumetric water content of the top layer
// in [0,1].
func (g *DataGenerator) fetchSoilMoisture(ctx context.Context, lat, lon float64) (float64, error) {
	var body soilGridsResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":      strconv.FormatFloat(lat, 'f', 5, 64),
			"lon":      strconv.FormatFloat(lon, 'f', 5, 64),
			"property": "wv0010",
		}).
		SetResult(&body).
		Get("/properties/query")
	if err != nil {
		return -1, fmt.Errorf("soilgrids: %w", err)
	}
	if resp.IsError() {
		return -1, fmt.Errorf("soilgrids HTTP %d", resp.StatusCode())
	}
	for _, l := range body.Properties.Layers {
		if len(l.Depths) == 0 {
			continue
		}
		for _, k := range []string{"Q0.5", "mean", "Q0.95", "Q0.05"} {
			raw, ok := l.Depths[0].Values[k]
			if !ok {
				continue
			}
			var x float64
			if err := json.Unmarshal(raw, &x); err == nil {
				return normalizeWV(x), nil
			}
		}
	}
	return -1, errors.New("soilgrids: moisture value not found")
}

// normalizeWV maps SoilGrids wv values to [0,1]. Most layers are integers in
// thousandths of m3/m3 (420 means 0.420).
func normalizeWV(x float64) float64 {
	if x > 1.5 {
		x /= 1000
	}
	return clamp(x, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
