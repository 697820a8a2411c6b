package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/race"
	"lemansstrat/pkg/strategy"
)

var testConfig = model.RaceConfiguration{
	FuelConsumptionPerLap: 3.5,
	TankCapacity:          100,
	RaceDurationSeconds:   3600,
	DefaultLapTimeSeconds: 100,
}

func newTestServer(t *testing.T) (*httptest.Server, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	races := race.NewManager(store, strategy.New(), testConfig)
	srv := httptest.NewServer(NewManager(races, store).Handler())
	t.Cleanup(func() {
		srv.Close()
		races.Close()
		store.Close()
	})
	return srv, store
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func addDriver(t *testing.T, base, name string) model.Driver {
	t.Helper()
	resp, body := do(t, http.MethodPost, base+"/drivers", map[string]string{"name": name, "color": "#ffffff"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var d model.Driver
	require.NoError(t, json.Unmarshal(body, &d))
	return d
}

func errorOf(t *testing.T, body []byte) string {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Error
}

func TestPlan_EmptyRosterConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/sessions/car-7/plan", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, errorOf(t, body), "configuration error")
}

func TestPlanWorkflow(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/sessions/car-7"

	alice := addDriver(t, base, "Alice")
	bob := addDriver(t, base, "Bob")

	resp, body := do(t, http.MethodGet, base+"/plan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan model.Plan
	require.NoError(t, json.Unmarshal(body, &plan))
	require.NotEmpty(t, plan.Stints)
	assert.Equal(t, alice.ID, plan.Stints[0].Driver.ID)
	assert.Equal(t, 36, plan.TotalLapsProjected)

	resp, body = do(t, http.MethodPost, base+"/pit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gs model.GameState
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.Equal(t, 1, gs.CurrentStint)
	assert.Equal(t, bob.ID, gs.ActiveDriverID)

	resp, _ = do(t, http.MethodPost, base+"/pit/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPut, base+"/assignments/1", map[string]string{"driverId": alice.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.Equal(t, alice.ID, gs.StintAssignments[1])

	resp, _ = do(t, http.MethodDelete, base+"/assignments/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPut, base+"/notes/2", map[string]string{"note": "refuel only"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.Equal(t, "refuel only", gs.StopNotes[2])

	resp, body = do(t, http.MethodGet, base+"/plan?format=text", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "Alice")
	assert.Contains(t, string(body), "refuel only")
}

func TestEditors(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/sessions/car-7"
	alice := addDriver(t, base, "Alice")

	resp, body := do(t, http.MethodPut, base+"/drivers/"+alice.ID, map[string]string{"name": "Alicia"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gs model.GameState
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.Equal(t, "Alicia", gs.Drivers[0].Name)

	resp, body = do(t, http.MethodPut, base+"/race", map[string]bool{"running": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.True(t, gs.IsRaceRunning)

	resp, body = do(t, http.MethodPut, base+"/telemetry", model.LiveTelemetrySnapshot{CurrentLap: 5, LastThreeLapsAverageSeconds: 90})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.Equal(t, 5, gs.Telemetry.CurrentLap)

	cfg := testConfig
	cfg.UsesVirtualEnergy = true
	cfg.EnergyConsumptionPerLap = 10
	resp, body = do(t, http.MethodPut, base+"/config", cfg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.True(t, gs.Config.UsesVirtualEnergy)

	resp, body = do(t, http.MethodGet, base+"/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &gs))
	assert.Equal(t, 5, gs.Telemetry.CurrentLap)
}

func TestErrorStatuses(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/sessions/car-7"
	alice := addDriver(t, base, "Alice")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "nothing to undo", method: http.MethodPost, path: "/pit/undo", want: http.StatusConflict},
		{name: "unknown driver assignment", method: http.MethodPut, path: "/assignments/2", body: map[string]string{"driverId": "ghost"}, want: http.StatusNotFound},
		{name: "bad body", method: http.MethodPut, path: "/assignments/2", body: "nope", want: http.StatusBadRequest},
		{name: "stop zero", method: http.MethodPut, path: "/notes/0", body: map[string]string{"note": "x"}, want: http.StatusBadRequest},
		{name: "last driver", method: http.MethodDelete, path: "/drivers/" + alice.ID, want: http.StatusConflict},
		{name: "unknown driver update", method: http.MethodPut, path: "/drivers/ghost", body: map[string]string{"name": "x"}, want: http.StatusNotFound},
		{name: "driver without name", method: http.MethodPost, path: "/drivers", body: map[string]string{}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, base+tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
			assert.NotEmpty(t, errorOf(t, body))
		})
	}
}

func TestStreamPlan(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/sessions/car-7"
	addDriver(t, base, "Alice")
	addDriver(t, base, "Bob")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/car-7"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))

	var u model.PlanUpdate
	require.NoError(t, c.ReadJSON(&u))
	assert.Equal(t, "car-7", u.SessionID)
	assert.Empty(t, u.Err)

	resp, _ := do(t, http.MethodPost, base+"/pit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		require.NoError(t, c.ReadJSON(&u))
		if current, ok := u.Plan.CurrentStint(); ok && current.Index == 1 {
			break
		}
	}
}

func TestDocHub(t *testing.T) {
	srv, store := newTestServer(t)

	ws := docstore.NewWebSocketStore("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/docs",
		docstore.WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	defer ws.Close()

	require.NoError(t, ws.Update(context.Background(), "car-9", map[string]any{"currentStint": 2}))
	require.Eventually(t, func() bool {
		body, err := store.Get(context.Background(), "car-9")
		return err == nil && strings.Contains(body, `"currentStint":2`)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoutes(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	m := NewManager(race.NewManager(store, strategy.New(), testConfig), store)

	routes := m.Routes()
	assert.Contains(t, routes, "GET /api/sessions/{id}/plan")
	assert.Contains(t, routes, "PUT /api/sessions/{id}/assignments/{stint:[0-9]+}")
	assert.Contains(t, routes, "ANY /ws/docs")
}
