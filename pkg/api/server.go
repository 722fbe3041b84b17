// Package api is a thin read-only REST facade mirroring machinery's
// lifecycle operations: cluster/machine listing, state, and discovery.
// Routes are registered in the constructor exactly the way warren's own
// HTTP-facing server does (DESIGN.md); write operations and gRPC are out of
// scope here (§1's Non-goals) -- everything is a GET.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/efrecon/machinery/pkg/types"
)

// ClusterSource supplies the current cluster model, already bound against
// live machine state by the caller.
type ClusterSource interface {
	Cluster() *types.Cluster
}

// Server serves read-only cluster/machine views over HTTP.
type Server struct {
	source ClusterSource
	mux    *http.ServeMux
}

// NewServer builds a Server with every route registered up front.
func NewServer(source ClusterSource) *Server {
	mux := http.NewServeMux()
	s := &Server{source: source, mux: mux}

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/cluster", s.clusterHandler)
	mux.HandleFunc("/machines", s.machinesHandler)
	mux.HandleFunc("/machines/", s.machineHandler)
	mux.HandleFunc("/networks", s.networksHandler)
	mux.HandleFunc("/applications", s.applicationsHandler)

	return s
}

// Start runs the HTTP server until the process is killed or ListenAndServe
// returns an error.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	requireGet(w, r, func() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

func (s *Server) clusterHandler(w http.ResponseWriter, r *http.Request) {
	requireGet(w, r, func() {
		cluster := s.source.Cluster()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"name":       cluster.Name,
			"clustering": cluster.Clustering,
			"machines":   len(cluster.Machines),
		})
	})
}

func (s *Server) machinesHandler(w http.ResponseWriter, r *http.Request) {
	requireGet(w, r, func() {
		cluster := s.source.Cluster()
		writeJSON(w, http.StatusOK, cluster.Machines)
	})
}

func (s *Server) machineHandler(w http.ResponseWriter, r *http.Request) {
	requireGet(w, r, func() {
		name := r.URL.Path[len("/machines/"):]
		if name == "" {
			http.Error(w, "machine name required", http.StatusBadRequest)
			return
		}
		machine := findMachine(s.source.Cluster(), name)
		if machine == nil {
			http.Error(w, "machine not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, machine)
	})
}

func (s *Server) networksHandler(w http.ResponseWriter, r *http.Request) {
	requireGet(w, r, func() {
		writeJSON(w, http.StatusOK, s.source.Cluster().Networks)
	})
}

func (s *Server) applicationsHandler(w http.ResponseWriter, r *http.Request) {
	requireGet(w, r, func() {
		writeJSON(w, http.StatusOK, s.source.Cluster().Applications)
	})
}

func findMachine(cluster *types.Cluster, name string) *types.Machine {
	for _, m := range cluster.Machines {
		if nameMatches(m, name) {
			return m
		}
	}
	return nil
}

func nameMatches(m *types.Machine, name string) bool {
	if m.Spec.Name == name || m.Spec.ShortName == name {
		return true
	}
	for _, alias := range m.Spec.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}

func requireGet(w http.ResponseWriter, r *http.Request, handler func()) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
