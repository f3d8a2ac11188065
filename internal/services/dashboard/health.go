package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name of the dashboard. The empty
// name reports the same status for the whole server.
const HealthService = "agrisense.Dashboard"

// Health wraps the gRPC health server. It reports NOT_SERVING until the first
// successful cycle and after any failed one.
type Health struct {
	srv *health.Server
}

func NewHealth() *Health {
	h := &Health{srv: health.NewServer()}
	h.SetServing(false)
	return h
}

func (h *Health) SetServing(ok bool) {
	if h == nil {
		return
	}
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(HealthService, st)
}

// Register adds the health service to a gRPC server.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Shutdown flips every service to NOT_SERVING for good.
func (h *Health) Shutdown() {
	if h == nil {
		return
	}
	h.srv.Shutdown()
}

func (h *Health) Server() healthpb.HealthServer { return h.srv }

type healthHandler struct {
	refresher *Refresher
	mqtt      mqtt.Client
	staleness time.Duration
	now       func() time.Time
}

// NewHealthHandler serves /healthz. It always answers 200; the status field
// is ok, degraded or down. mqtt may be nil when publishing is disabled.
func NewHealthHandler(r *Refresher, m mqtt.Client) http.Handler {
	return &healthHandler{refresher: r, mqtt: m, staleness: 3 * r.cfg.Interval, now: r.now}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status         string            `json:"status"`
		MQTTConnected  *bool             `json:"mqtt_connected,omitempty"`
		HasData        bool              `json:"has_data"`
		LastCycleAgeS  float64           `json:"last_cycle_age_sec"`
		LastCycleError string            `json:"last_cycle_error,omitempty"`
		Breakers       map[string]string `json:"breakers"`
	}
	cyc := h.refresher.Status()
	st := status{HasData: cyc.HasData, Breakers: map[string]string{}}
	if !cyc.LastRun.IsZero() {
		st.LastCycleAgeS = h.now().Sub(cyc.LastRun).Seconds()
	}
	if cyc.LastError != nil {
		st.LastCycleError = cyc.LastError.Error()
	}
	mqttOK := true
	if h.mqtt != nil {
		mqttOK = h.mqtt.IsConnectionOpen()
		st.MQTTConnected = &mqttOK
	}
	anyOpen := false
	for _, g := range h.refresher.Breakers() {
		st.Breakers[g.Name()] = g.State()
		anyOpen = anyOpen || g.Open()
	}
	fresh := !cyc.LastRun.IsZero() && h.now().Sub(cyc.LastRun) <= h.staleness

	switch {
	case cyc.HasData && cyc.LastError == nil && fresh && mqttOK && !anyOpen:
		st.Status = "ok"
	case cyc.HasData:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	writeJSON(w, http.StatusOK, st)
}

type readyHandler struct {
	refresher *Refresher
}

// NewReadyHandler serves /readyz: 200 once a cycle succeeded and the last
// one did not fail, 503 otherwise.
func NewReadyHandler(r *Refresher) http.Handler {
	return &readyHandler{refresher: r}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.refresher.Ready()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	writeJSON(w, code, resp{Ready: ready})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
