// Package dashboard runs the refresh loop (fetch, evaluate, recommend,
// publish) and serves the latest outcome over HTTP and gRPC health.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/evaluator"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/recommend"
	"github.com/LeonardoBeccarini/agrisense/internal/sources"
	"github.com/LeonardoBeccarini/agrisense/internal/thresholds"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/resilience"
)

type Config struct {
	Profile string
	// FallbackProfile replaces an unknown Profile; empty disables the retry.
	FallbackProfile string
	WindowSize      int
	AnomalyK        float64
	TrendEpsilon    float64
	AlertOnMissing  bool
	// Latitude and Longitude locate the weather lookup when the readings
	// carry no GPS.
	Latitude     float64
	Longitude    float64
	FetchTimeout time.Duration
	Interval     time.Duration
}

// Deps are the collaborators of a Refresher. Only Readings is required.
type Deps struct {
	Readings  sources.ReadingSource
	Weather   sources.WeatherSource
	Publisher broker.IPublisher
	Metrics   *Metrics
	Health    *Health
	Breakers  []*resilience.Guard
	Logger    *zap.Logger
	Now       func() time.Time
}

type Refresher struct {
	cfg   Config
	table thresholds.Table
	deps  Deps
	log   *zap.Logger
	now   func() time.Time

	cycleMu sync.Mutex

	mu      sync.RWMutex
	latest  *Snapshot
	lastRun time.Time
	lastErr error
}

func NewRefresher(cfg Config, table thresholds.Table, deps Deps) *Refresher {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Refresher{cfg: cfg, table: table, deps: deps, log: log.Named("refresher"), now: now}
}

// Start runs a cycle immediately, then one per interval until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresh loop stopped")
			return
		case <-ticker.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Refresher) runLogged(ctx context.Context) {
	if _, err := r.RunCycle(ctx); err != nil {
		r.log.Error("refresh cycle failed", zap.Error(err))
	}
}

// RunCycle performs one full refresh. Cycles are serialised: a call made
// while another runs waits for it. The only error is a configuration error
// the fallback profile could not recover; the previous snapshot is kept.
func (r *Refresher) RunCycle(ctx context.Context) (*Snapshot, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	start := r.now()
	snap := &Snapshot{
		CycleID:          uuid.NewString(),
		RequestedProfile: r.cfg.Profile,
		GeneratedAt:      start.UTC(),
	}
	log := r.log.With(zap.String("cycle_id", snap.CycleID))

	readings, err := r.fetchReadings(ctx)
	if err != nil {
		snap.DataUnavailable = true
		snap.SourceError = err.Error()
		readings = nil
		r.deps.Metrics.SourceFailure("sensor")
		log.Warn("sensor data unavailable, evaluating an empty window", zap.Error(err))
	}
	if readings == nil {
		readings = []entities.Reading{}
	}
	snap.Readings = readings

	snap.Weather = r.fetchWeather(ctx, readings, log)
	snap.WeatherUnavailable = snap.Weather == nil

	res, err := r.evaluate(readings, snap, log)
	if err != nil {
		r.fail(err, start)
		return nil, err
	}
	snap.Result = res
	snap.Profile = res.Profile
	snap.Recommendations = recommend.Recommend(res, snap.Weather)
	r.stampFreshness(snap, start)
	snap.SystemAlerts = SystemAlerts(res, snap.Weather, snap.Freshness, start)
	snap.DurationMS = r.now().Sub(start).Milliseconds()

	r.mu.Lock()
	r.latest = snap
	r.lastRun = start
	r.lastErr = nil
	r.mu.Unlock()

	r.deps.Health.SetServing(true)
	r.deps.Metrics.Evaluation(snap)
	r.deps.Metrics.Cycle(outcome(snap), r.now().Sub(start))
	r.observeBreakers()
	r.publish(snap, log)

	log.Info("refresh cycle done",
		zap.String("profile", snap.Profile),
		zap.Int("readings", len(readings)),
		zap.Float64("quality", res.QualityScore),
		zap.Int("alerts", len(res.Alerts)),
		zap.Int("system_alerts", len(snap.SystemAlerts)),
		zap.String("freshness", string(snap.Freshness)),
		zap.Bool("data_unavailable", snap.DataUnavailable))
	return snap, nil
}

func (r *Refresher) fetchReadings(ctx context.Context) ([]entities.Reading, error) {
	if r.deps.Readings == nil {
		return nil, sources.Unavailable("sensor", errors.New("no reading source configured"))
	}
	fctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	return r.deps.Readings.FetchReadings(fctx, r.cfg.WindowSize)
}

// fetchWeather prefers the GPS of the newest reading over the configured
// coordinate. A failure yields nil.
func (r *Refresher) fetchWeather(ctx context.Context, readings []entities.Reading, log *zap.Logger) *entities.WeatherSnapshot {
	if r.deps.Weather == nil {
		return nil
	}
	lat, lon := r.cfg.Latitude, r.cfg.Longitude
	if n := len(readings); n > 0 && readings[n-1].GPS != nil {
		lat, lon = readings[n-1].GPS.Latitude, readings[n-1].GPS.Longitude
	}
	fctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	w, err := r.deps.Weather.Snapshot(fctx, lat, lon)
	if err != nil {
		r.deps.Metrics.SourceFailure("weather")
		log.Warn("weather unavailable", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return nil
	}
	return w
}

func (r *Refresher) options(profile string) evaluator.Options {
	return evaluator.Options{
		Profile:        profile,
		AnomalyK:       r.cfg.AnomalyK,
		TrendEpsilon:   r.cfg.TrendEpsilon,
		AlertOnMissing: r.cfg.AlertOnMissing,
	}
}

func (r *Refresher) evaluate(readings []entities.Reading, snap *Snapshot, log *zap.Logger) (*evaluator.Result, error) {
	res, err := evaluator.Evaluate(readings, r.table, r.options(r.cfg.Profile))
	if err == nil {
		return res, nil
	}
	var cfgErr *thresholds.ConfigurationError
	fb := r.cfg.FallbackProfile
	if !errors.As(err, &cfgErr) || fb == "" || fb == r.cfg.Profile {
		return nil, err
	}
	log.Error("crop profile rejected, using fallback",
		zap.String("profile", r.cfg.Profile), zap.String("fallback", fb), zap.Error(err))
	res, fbErr := evaluator.Evaluate(readings, r.table, r.options(fb))
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	snap.FallbackUsed = true
	return res, nil
}

func (r *Refresher) stampFreshness(snap *Snapshot, now time.Time) {
	n := len(snap.Readings)
	if n == 0 {
		snap.Freshness = FreshnessNoData
		return
	}
	at := snap.Readings[n-1].Timestamp
	age := now.Sub(at)
	minutes := age.Minutes()
	snap.LatestAt = &at
	snap.AgeMinutes = &minutes
	snap.Freshness = ClassifyFreshness(age)
}

func (r *Refresher) publish(snap *Snapshot, log *zap.Logger) {
	if r.deps.Publisher == nil {
		return
	}
	topic := broker.TopicEvaluation + "/" + snap.Profile
	if err := r.deps.Publisher.PublishJSON(topic, broker.QoSFor(topic), snap.Event()); err != nil {
		r.deps.Metrics.PublishFailure()
		log.Warn("publish evaluation", zap.String("topic", topic), zap.Error(err))
	}
}

func (r *Refresher) fail(err error, start time.Time) {
	r.mu.Lock()
	r.lastRun = start
	r.lastErr = err
	r.mu.Unlock()
	r.deps.Health.SetServing(false)
	r.deps.Metrics.Cycle(OutcomeError, r.now().Sub(start))
	r.observeBreakers()
}

func (r *Refresher) observeBreakers() {
	for _, g := range r.deps.Breakers {
		r.deps.Metrics.SetCircuitBreakerState(g.Name(), g.State())
	}
}

func outcome(s *Snapshot) string {
	switch {
	case s.FallbackUsed:
		return OutcomeFallback
	case s.DataUnavailable:
		return OutcomeDataUnavailable
	}
	return OutcomeOK
}

// Latest returns the last stored snapshot, nil before the first success.
func (r *Refresher) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Status summarises the last cycle for the health endpoints.
type Status struct {
	LastRun   time.Time
	LastError error
	HasData   bool
}

func (r *Refresher) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{LastRun: r.lastRun, LastError: r.lastErr, HasData: r.latest != nil}
}

// Ready is true once a cycle succeeded and the last one did not fail.
func (r *Refresher) Ready() bool {
	st := r.Status()
	return st.HasData && st.LastError == nil
}

// Profiles returns the loaded threshold table.
func (r *Refresher) Profiles() thresholds.Table { return r.table }

// ActiveProfile is the configured crop profile.
func (r *Refresher) ActiveProfile() string { return r.cfg.Profile }

// Breakers lists the guards watched by the refresher.
func (r *Refresher) Breakers() []*resilience.Guard { return r.deps.Breakers }
