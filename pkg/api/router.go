package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Handler *Handler
	// Websocket event stream, optional
	Events  http.Handler
	Metrics prometheus.Gatherer
}

func (rt Router) Setup() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", rt.Handler.GetStatus)
	r.Get("/machines", rt.Handler.GetMachines)
	r.Get("/machines/{machineId}/shifts", rt.Handler.GetMachineShifts)
	r.Get("/shifts/active", rt.Handler.GetActiveShifts)
	r.Get("/shifts/{shiftKey}", rt.Handler.GetShift)

	if rt.Events != nil {
		r.Handle("/ws", rt.Events)
	}
	if rt.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{}))
	}
	return r
}
