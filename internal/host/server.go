package host

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"waterbill/internal/poller"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ReadingResponse struct {
	Title      string                    `json:"title"`
	Account    string                    `json:"account_number"`
	Reading    *poller.AggregatedReading `json:"reading"`
	Stale      bool                      `json:"stale"`
	ErrorCode  string                    `json:"error_code,omitempty"`
	Error      string                    `json:"error,omitempty"`
	LastUpdate string                    `json:"last_update,omitempty"`
}

type SensorsResponse struct {
	Title   string   `json:"title"`
	Sensors []Sensor `json:"sensors"`
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Warn("write response", "err", err)
	}
}

// NewRouter serves the state of one account, `gatherer` backs /metrics.
func NewRouter(account string, store *Store, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/reading", func(w http.ResponseWriter, r *http.Request) {
			state := store.State()
			res := ReadingResponse{
				Title:      Title(account),
				Account:    account,
				Stale:      state.Stale,
				ErrorCode:  state.ErrorCode,
				Error:      state.Error,
				LastUpdate: formatLastUpdate(state.LastSuccess),
			}
			if state.HasReading {
				reading := state.Reading
				res.Reading = &reading
			}
			status := http.StatusOK
			if !state.HasReading {
				status = http.StatusServiceUnavailable
			}
			sendJSON(w, status, res)
		})
		r.Get("/sensors", func(w http.ResponseWriter, r *http.Request) {
			sendJSON(w, http.StatusOK, SensorsResponse{
				Title:   Title(account),
				Sensors: Sensors(account, store.State()),
			})
		})
	})

	return r
}
