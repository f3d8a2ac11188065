package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/thresholds"
)

type API struct {
	refresher *Refresher
	metrics   *Metrics
	mqtt      mqtt.Client
	log       *zap.Logger
}

// NewAPI builds the HTTP surface. metrics and m may be nil.
func NewAPI(r *Refresher, metrics *Metrics, m mqtt.Client, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{refresher: r, metrics: metrics, mqtt: m, log: log.Named("http")}
}

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	route := func(path, method string, h http.Handler) {
		r.Handle(path, a.metrics.WrapHandler(path, h)).Methods(method)
	}

	route("/healthz", http.MethodGet, NewHealthHandler(a.refresher, a.mqtt))
	route("/readyz", http.MethodGet, NewReadyHandler(a.refresher))
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	}

	route("/api/dashboard", http.MethodGet, http.HandlerFunc(a.dashboard))
	route("/api/alerts", http.MethodGet, http.HandlerFunc(a.alerts))
	route("/api/recommendations", http.MethodGet, http.HandlerFunc(a.recommendations))
	route("/api/profiles", http.MethodGet, http.HandlerFunc(a.profiles))
	route("/api/refresh", http.MethodPost, http.HandlerFunc(a.refresh))
	route("/api/export/readings.csv", http.MethodGet, http.HandlerFunc(a.exportCSV))
	route("/api/export/report.json", http.MethodGet, http.HandlerFunc(a.exportJSON))
	route("/api/export/report.xlsx", http.MethodGet, http.HandlerFunc(a.exportXLSX))
	return r
}

// Handler is the router behind access logging, panic recovery, CORS and
// compression.
func (a *API) Handler() http.Handler {
	stdlog := zap.NewStdLog(a.log)
	var h http.Handler = a.Router()
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdlog), handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(stdlog.Writer(), h)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// latest writes 503 and returns nil before the first successful cycle.
func (a *API) latest(w http.ResponseWriter) *Snapshot {
	s := a.refresher.Latest()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "no evaluation yet")
	}
	return s
}

func (a *API) dashboard(w http.ResponseWriter, _ *http.Request) {
	if s := a.latest(w); s != nil {
		writeJSON(w, http.StatusOK, s)
	}
}

func (a *API) alerts(w http.ResponseWriter, r *http.Request) {
	var tier entities.Tier
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tier"))); q != "" {
		tier = entities.Tier(q)
		if tier.Rank() == 0 {
			writeError(w, http.StatusBadRequest, "tier must be one of critical, warning, info")
			return
		}
	}
	s := a.latest(w)
	if s == nil {
		return
	}
	out := []entities.Alert{}
	for _, al := range s.Alerts() {
		if tier == "" || al.Tier == tier {
			out = append(out, al)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id":     s.CycleID,
		"profile":      s.Profile,
		"generated_at": s.GeneratedAt,
		"alerts":       out,
	})
}

func (a *API) recommendations(w http.ResponseWriter, _ *http.Request) {
	s := a.latest(w)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id":        s.CycleID,
		"profile":         s.Profile,
		"generated_at":    s.GeneratedAt,
		"weather_state":   s.Recommendations.Weather,
		"recommendations": s.Recommendations.All(),
	})
}

func (a *API) profiles(w http.ResponseWriter, _ *http.Request) {
	type profile struct {
		ID    string                                    `json:"id"`
		Name  string                                    `json:"name"`
		Bands map[entities.Field]entities.ThresholdBand `json:"bands"`
	}
	table := a.refresher.Profiles()
	out := make([]profile, 0, len(table))
	for _, id := range table.IDs() {
		p, err := table.Lookup(id)
		if err != nil {
			continue
		}
		bands := make(map[entities.Field]entities.ThresholdBand, len(entities.AllFields))
		for _, f := range entities.AllFields {
			if b, ok := p.Band(f); ok {
				bands[f] = b
			}
		}
		out = append(out, profile{ID: id, Name: p.Name, Bands: bands})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   a.refresher.ActiveProfile(),
		"profiles": out,
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	s, err := a.refresher.RunCycle(r.Context())
	if err != nil {
		var cfgErr *thresholds.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *API) exportCSV(w http.ResponseWriter, _ *http.Request) {
	s := a.latest(w)
	if s == nil {
		return
	}
	var buf bytes.Buffer
	if err := WriteReadingsCSV(&buf, s.Readings); err != nil {
		a.log.Error("csv export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	attach(w, "text/csv", exportName("sensor_data", "csv", s.GeneratedAt), buf.Bytes())
}

func (a *API) exportJSON(w http.ResponseWriter, _ *http.Request) {
	s := a.latest(w)
	if s == nil {
		return
	}
	body, err := json.MarshalIndent(BuildReport(s), "", "  ")
	if err != nil {
		a.log.Error("json export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	attach(w, "application/json", exportName("agricultural_report", "json", s.GeneratedAt), body)
}

func (a *API) exportXLSX(w http.ResponseWriter, _ *http.Request) {
	s := a.latest(w)
	if s == nil {
		return
	}
	var buf bytes.Buffer
	if err := WriteReportXLSX(&buf, s); err != nil {
		a.log.Error("xlsx export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		exportName("agricultural_report", "xlsx", s.GeneratedAt), buf.Bytes())
}

// attach sends a fully rendered export as a download.
func attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
