package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efrecon/machinery/pkg/types"
)

type fixedSource struct {
	cluster *types.Cluster
}

func (f *fixedSource) Cluster() *types.Cluster { return f.cluster }

func testCluster() *types.Cluster {
	return &types.Cluster{
		Name:       "proj",
		Clustering: types.ClusteringSwarmMode,
		Machines: []*types.Machine{
			{
				Spec:  &types.MachineSpec{ShortName: "m1", Name: "proj-m1", Aliases: []string{"primary"}},
				State: &types.MachineState{State: types.StateRunning, URL: "tcp://10.0.0.1:2376"},
			},
		},
		Networks:     []*types.Network{{Name: "proj-net", Driver: "overlay"}},
		Applications: []*types.Application{{Name: "web", File: "docker-compose.yml"}},
	}
}

func TestHealthHandlerMethods(t *testing.T) {
	s := NewServer(&fixedSource{cluster: testCluster()})

	tests := []struct {
		method string
		status int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/health", nil)
		w := httptest.NewRecorder()
		s.healthHandler(w, req)
		assert.Equal(t, tt.status, w.Code)
	}
}

func TestClusterHandler(t *testing.T) {
	s := NewServer(&fixedSource{cluster: testCluster()})

	req := httptest.NewRequest(http.MethodGet, "/cluster", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "proj", body["name"])
	assert.Equal(t, float64(1), body["machines"])
}

func TestMachineHandlerFindsByAlias(t *testing.T) {
	s := NewServer(&fixedSource{cluster: testCluster()})

	req := httptest.NewRequest(http.MethodGet, "/machines/primary", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var machine types.Machine
	require.NoError(t, json.NewDecoder(w.Body).Decode(&machine))
	assert.Equal(t, "proj-m1", machine.Spec.Name)
}

func TestMachineHandlerNotFound(t *testing.T) {
	s := NewServer(&fixedSource{cluster: testCluster()})

	req := httptest.NewRequest(http.MethodGet, "/machines/missing", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMachinesHandlerListsAll(t *testing.T) {
	s := NewServer(&fixedSource{cluster: testCluster()})

	req := httptest.NewRequest(http.MethodGet, "/machines", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var machines []*types.Machine
	require.NoError(t, json.NewDecoder(w.Body).Decode(&machines))
	require.Len(t, machines, 1)
	assert.Equal(t, "proj-m1", machines[0].Spec.Name)
}

func TestNetworksAndApplicationsHandlers(t *testing.T) {
	s := NewServer(&fixedSource{cluster: testCluster()})

	for _, path := range []string{"/networks", "/applications"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "path %s", path)
	}
}
