package webserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/race"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type Manager struct {
	r     *mux.Router
	races *race.Manager
	hub   *docstore.Hub
}

// NewManager wires the session API, the plan stream and the document hub
// serving store.
func NewManager(races *race.Manager, store docstore.Store) *Manager {
	m := &Manager{
		r:     mux.NewRouter(),
		races: races,
		hub:   docstore.NewHub(store),
	}

	m.rootHandlers()
	return m
}

func (m *Manager) Handler() http.Handler {
	return m.r
}

func (m *Manager) rootHandlers() {
	api := m.r.PathPrefix("/api/sessions/{id}").Subrouter()
	api.HandleFunc("/plan", m.getPlan).Methods(http.MethodGet)
	api.HandleFunc("/state", m.getState).Methods(http.MethodGet)
	api.HandleFunc("/pit", m.confirmPit).Methods(http.MethodPost)
	api.HandleFunc("/pit/undo", m.undoPit).Methods(http.MethodPost)
	api.HandleFunc("/assignments/{stint:[0-9]+}", m.assignDriver).Methods(http.MethodPut)
	api.HandleFunc("/assignments/{stint:[0-9]+}", m.clearAssignment).Methods(http.MethodDelete)
	api.HandleFunc("/notes/{stop:[0-9]+}", m.setNote).Methods(http.MethodPut)
	api.HandleFunc("/drivers", m.addDriver).Methods(http.MethodPost)
	api.HandleFunc("/drivers/{driverId}", m.updateDriver).Methods(http.MethodPut)
	api.HandleFunc("/drivers/{driverId}", m.removeDriver).Methods(http.MethodDelete)
	api.HandleFunc("/race", m.setRaceRunning).Methods(http.MethodPut)
	api.HandleFunc("/telemetry", m.updateTelemetry).Methods(http.MethodPut)
	api.HandleFunc("/config", m.updateConfig).Methods(http.MethodPut)

	m.r.HandleFunc("/ws/sessions/{id}", m.streamPlan)
	m.r.Handle("/ws/docs", m.hub)
}

// Routes lists "METHODS path" for every registered route.
func (m *Manager) Routes() []string {
	routes := []string{}
	_ = m.r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			// subrouter prefixes carry no handler
			if route.GetHandler() == nil {
				return nil
			}
			methods = []string{"ANY"}
		}
		routes = append(routes, strings.Join(methods, ",")+" "+pathTemplate)
		return nil
	})
	return routes
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
func (m *Manager) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      m.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("webserver listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "webserver")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("webserver shutting down")
	return errors.Wrap(srv.Shutdown(shutdownCtx), "webserver shutdown")
}
