// Package debughttp serves a world's diagnostics over HTTP: roll call and
// counters on /stats, health status on /health and Prometheus on /metrics.
package debughttp

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xframe"
)

// WorldInterface is the slice of *xframe.World the router reads.
// Tests may supply a stub.
type WorldInterface interface {
	Health() xframe.HealthStatus
	SetPaused(paused bool) bool
	Paused() bool
	Config() xframe.Config
}

// RollCaller lists pools; *xframe.Pools satisfies it.
type RollCaller interface {
	RollCall() []xframe.PoolStats
}

// RouterConfig contains everything needed to construct the router.
type RouterConfig struct {
	// World is required.
	World WorldInterface

	// Pools feeds the roll call on /stats; optional.
	Pools RollCaller

	// Gatherer backs /metrics (prometheus.DefaultGatherer when nil).
	Gatherer prometheus.Gatherer

	// CORSOrigins allowed to read the endpoints (localhost when nil).
	CORSOrigins []string

	// AllowControl enables POST /pause and POST /resume.
	AllowControl bool

	// Logger logs requests at Debug; nil disables request logging.
	Logger *xlog.Logger
}

type routerHandlers struct {
	world WorldInterface
	pools RollCaller
}

// NewRouter builds the router. It starts no goroutines and opens no listeners,
// so it can be served with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &routerHandlers{world: cfg.World, pools: cfg.Pools}

	r.Get("/stats", h.handleStats)
	r.Get("/health", h.handleHealth)
	r.Get("/config", h.handleConfig)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if cfg.AllowControl {
		r.Post("/pause", h.handlePause(true))
		r.Post("/resume", h.handlePause(false))
	}
	return r
}

type statsResponse struct {
	Bus       xframe.BusMetrics       `json:"bus"`
	Scheduler xframe.SchedulerMetrics `json:"scheduler"`
	Pools     xframe.PoolMetrics      `json:"pools"`
	Journal   xframe.JournalStats     `json:"journal"`
	RollCall  []xframe.PoolStats      `json:"roll_call"`
}

func (h *routerHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	health := h.world.Health()
	resp := statsResponse{
		Bus:       health.Bus,
		Scheduler: health.Scheduler,
		Pools:     health.Pools,
		Journal:   health.Journal,
		RollCall:  []xframe.PoolStats{},
	}
	if h.pools != nil {
		resp.RollCall = h.pools.RollCall()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.world.Health()
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (h *routerHandlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.world.Config()
	// Journal settings may carry credentials.
	cfg.JournalConfig = nil
	writeJSON(w, http.StatusOK, cfg)
}

func (h *routerHandlers) handlePause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		changed := h.world.SetPaused(paused)
		writeJSON(w, http.StatusOK, map[string]bool{
			"paused":  h.world.Paused(),
			"changed": changed,
		})
	}
}

func requestLogger(l *xlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			l.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("status", strconv.Itoa(ww.Status())).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("dur", time.Since(start)).
				Msg("debughttp request")
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
