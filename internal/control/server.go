// Package control implements the plain JSON HTTP control surface netsimd
// exposes for the boundary operations internal/sim.Simulation defines.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/sim"
)

// errBadKind indicates an unrecognized device kind in a create request.
var errBadKind = errors.New("unknown device kind, expected switch, router, or desktop")

// Server is a thin HTTP adapter between the control API and a Simulation.
// Each handler delegates to Simulation for the actual domain operation; the
// server itself holds no simulation state of its own beyond a mutex, since
// Simulation is not safe for concurrent use and Step() runs on its own
// goroutine in the daemon's tick loop.
type Server struct {
	mu     *sync.Mutex
	sim    *sim.Simulation
	logger *slog.Logger
}

// New creates a Server backed by sim, serialized against mu so the daemon's
// tick loop and inbound HTTP requests never touch the Simulation at once.
func New(s *sim.Simulation, mu *sync.Mutex, logger *slog.Logger) *Server {
	return &Server{sim: s, mu: mu, logger: logger.With(slog.String("component", "control"))}
}

// Handler returns the routed HTTP handler for the control API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /devices", s.createDevice)
	mux.HandleFunc("DELETE /devices/{handle}", s.deleteDevice)
	mux.HandleFunc("GET /devices", s.listDevices)
	mux.HandleFunc("POST /devices/{handle}/connect", s.connect)
	mux.HandleFunc("POST /devices/{handle}/ports/{idx}/rip", s.enableRIP)
	mux.HandleFunc("GET /devices/{handle}/routes", s.routes)
	mux.HandleFunc("GET /devices/{handle}/ports/{idx}/sniff", s.sniffPort)
	return mux
}

type deviceRequest struct {
	Kind     string `json:"kind"`
	MAC      string `json:"mac"`
	IP       string `json:"ip,omitempty"`
	Mask     string `json:"mask,omitempty"`
	Priority uint16 `json:"priority,omitempty"`
}

type deviceResponse struct {
	Handle int    `json:"handle"`
	Kind   string `json:"kind"`
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mac, err := frame.ParseMAC(req.MAC)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var h sim.DeviceHandle
	switch req.Kind {
	case "switch":
		h = s.sim.NewSwitch(mac, req.Priority)
	case "router":
		h = s.sim.NewRouter(mac)
	case "desktop":
		ip, mask, perr := parseIPMask(req.IP, req.Mask)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		h = s.sim.NewDesktop(mac, ip, mask)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", errBadKind, req.Kind))
		return
	}

	kind, _ := s.sim.Kind(h)
	writeJSON(w, http.StatusCreated, deviceResponse{Handle: int(h), Kind: kind.String()})
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	h, ok := handleFromPath(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sim.DeleteDevice(h); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]deviceResponse, 0)
	for _, h := range s.sim.Devices() {
		kind, err := s.sim.Kind(h)
		if err != nil {
			continue
		}
		out = append(out, deviceResponse{Handle: int(h), Kind: kind.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

type connectRequest struct {
	FromPort int `json:"from_port"`
	ToHandle int `json:"to_handle"`
	ToPort   int `json:"to_port"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	h, ok := handleFromPath(w, r)
	if !ok {
		return
	}
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sim.Connect(h, req.FromPort, sim.DeviceHandle(req.ToHandle), req.ToPort); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) enableRIP(w http.ResponseWriter, r *http.Request) {
	h, ok := handleFromPath(w, r)
	if !ok {
		return
	}
	idx, ok := intFromPath(w, r, "idx")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sim.EnableRIP(h, idx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type routeView struct {
	Network string `json:"network"`
	Mask    string `json:"mask"`
	Metric  uint32 `json:"metric"`
	Port    int    `json:"port"`
}

func (s *Server) routes(w http.ResponseWriter, r *http.Request) {
	h, ok := handleFromPath(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.sim.RouteTable(h)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := make([]routeView, 0, len(table))
	for network, rt := range table {
		out = append(out, routeView{
			Network: network.String(),
			Mask:    rt.Mask.String(),
			Metric:  rt.Metric,
			Port:    rt.Port,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type sniffResponse struct {
	IncomingCount int `json:"incoming_count"`
	OutgoingCount int `json:"outgoing_count"`
}

func (s *Server) sniffPort(w http.ResponseWriter, r *http.Request) {
	h, ok := handleFromPath(w, r)
	if !ok {
		return
	}
	idx, ok := intFromPath(w, r, "idx")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	incoming, outgoing, err := s.sim.SniffPort(h, idx)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, sniffResponse{IncomingCount: len(incoming), OutgoingCount: len(outgoing)})
}

func parseIPMask(ipText, maskText string) (frame.IPv4Address, frame.IPv4Address, error) {
	ip, err := frame.ParseIPv4(ipText)
	if err != nil {
		return frame.IPv4Address{}, frame.IPv4Address{}, err
	}
	mask, err := frame.ParseIPv4(maskText)
	if err != nil {
		return frame.IPv4Address{}, frame.IPv4Address{}, err
	}
	return ip, mask, nil
}

func handleFromPath(w http.ResponseWriter, r *http.Request) (sim.DeviceHandle, bool) {
	n, ok := intFromPath(w, r, "handle")
	if !ok {
		return 0, false
	}
	return sim.DeviceHandle(n), true
}

func intFromPath(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(key))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse %s: %w", key, err))
		return 0, false
	}
	return n, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
