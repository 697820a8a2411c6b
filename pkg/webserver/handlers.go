package webserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/race"
	"lemansstrat/pkg/render"
	"lemansstrat/pkg/strategy"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

type assignmentRequest struct {
	DriverID string `json:"driverId"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type driverRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type raceRequest struct {
	Running bool `json:"running"`
}

func statusFor(err error) int {
	var cfgErr *strategy.ConfigurationError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, strategy.ErrInvalidStint),
		errors.Is(err, strategy.ErrInvalidStop):
		return http.StatusBadRequest
	case errors.Is(err, strategy.ErrUnknownDriver),
		errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr),
		errors.Is(err, strategy.ErrNothingToUndo),
		errors.Is(err, strategy.ErrLastDriver):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrapf(errBadRequest, "decoding body: %s", err)
	}
	return nil
}

func intVar(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "%s: %s", name, err)
	}
	return n, nil
}

func (m *Manager) session(r *http.Request) (*race.Session, error) {
	return m.races.Open(r.Context(), mux.Vars(r)["id"])
}

// withSession resolves the session of the request and answers with the
// game state f returns.
func (m *Manager) withSession(f func(*http.Request, *race.Session) (model.GameState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.session(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		gs, err := f(r, s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func (m *Manager) getPlan(w http.ResponseWriter, r *http.Request) {
	s, err := m.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.Plan()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(render.Summary(plan, s.State()) + render.PlanTable(plan)))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (m *Manager) getState(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(_ *http.Request, s *race.Session) (model.GameState, error) {
		return s.State(), nil
	})(w, r)
}

func (m *Manager) confirmPit(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		return s.ConfirmPit(r.Context())
	})(w, r)
}

func (m *Manager) undoPit(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		return s.UndoPit(r.Context())
	})(w, r)
}

func (m *Manager) assignDriver(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		stint, err := intVar(r, "stint")
		if err != nil {
			return model.GameState{}, err
		}
		var req assignmentRequest
		if err := decode(r, &req); err != nil {
			return model.GameState{}, err
		}
		return s.AssignDriver(r.Context(), stint, req.DriverID)
	})(w, r)
}

func (m *Manager) clearAssignment(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		stint, err := intVar(r, "stint")
		if err != nil {
			return model.GameState{}, err
		}
		return s.ClearAssignment(r.Context(), stint)
	})(w, r)
}

func (m *Manager) setNote(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		stop, err := intVar(r, "stop")
		if err != nil {
			return model.GameState{}, err
		}
		var req noteRequest
		if err := decode(r, &req); err != nil {
			return model.GameState{}, err
		}
		return s.SetNote(r.Context(), stop, req.Note)
	})(w, r)
}

func (m *Manager) addDriver(w http.ResponseWriter, r *http.Request) {
	s, err := m.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req driverRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, errors.Wrap(errBadRequest, "driver name is required"))
		return
	}
	d, err := s.AddDriver(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (m *Manager) updateDriver(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		var req driverRequest
		if err := decode(r, &req); err != nil {
			return model.GameState{}, err
		}
		return s.UpdateDriver(r.Context(), mux.Vars(r)["driverId"], req.Name, req.Color)
	})(w, r)
}

func (m *Manager) removeDriver(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		return s.RemoveDriver(r.Context(), mux.Vars(r)["driverId"])
	})(w, r)
}

func (m *Manager) setRaceRunning(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		var req raceRequest
		if err := decode(r, &req); err != nil {
			return model.GameState{}, err
		}
		return s.SetRaceRunning(r.Context(), req.Running)
	})(w, r)
}

func (m *Manager) updateTelemetry(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		var tel model.LiveTelemetrySnapshot
		if err := decode(r, &tel); err != nil {
			return model.GameState{}, err
		}
		return s.UpdateTelemetry(r.Context(), tel)
	})(w, r)
}

func (m *Manager) updateConfig(w http.ResponseWriter, r *http.Request) {
	m.withSession(func(r *http.Request, s *race.Session) (model.GameState, error) {
		var cfg model.RaceConfiguration
		if err := decode(r, &cfg); err != nil {
			return model.GameState{}, err
		}
		return s.UpdateConfig(r.Context(), cfg)
	})(w, r)
}
