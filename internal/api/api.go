// Package api serves the configuration session over HTTP as JSON
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Server routes HTTP requests into a session loop
type Server struct {
	loop   *session.Loop
	host   session.Host
	model  *device.Model
	status *Status
	router *mux.Router

	Version string
}

// NewServer creates the API. status should be among the session's listeners.
func NewServer(loop *session.Loop, host session.Host, model *device.Model, status *Status) *Server {
	s := &Server{
		loop:   loop,
		host:   host,
		model:  model,
		status: status,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/ports", s.getPorts).Methods("GET")
	s.router.HandleFunc("/ports/refresh", s.refreshPorts).Methods("POST")
	s.router.HandleFunc("/ports/selection", s.selectPorts).Methods("PUT")
	s.router.HandleFunc("/model", s.getModel).Methods("GET")
	s.router.HandleFunc("/config", s.getConfig).Methods("GET")
	s.router.HandleFunc("/config", s.putConfig).Methods("PUT")
	s.router.HandleFunc("/config/request", s.requestConfig).Methods("POST")
	s.router.HandleFunc("/config/defaults", s.restoreDefaults).Methods("POST")
	s.router.HandleFunc("/status", s.getStatus).Methods("GET")
	s.router.HandleFunc("/version", s.versionInfo).Methods("GET")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debugf("%s %s", r.Method, r.URL.Path)
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	e := json.NewEncoder(w)
	e.SetIndent("", "    ")
	if err := e.Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, struct {
		Error string `json:"error"`
	}{err.Error()})
}

// errorCode maps session errors onto HTTP statuses
func errorCode(err error) int {
	switch {
	case errors.Is(err, device.ErrShape), errors.Is(err, device.ErrFieldRange), errors.Is(err, session.ErrPortIndex):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoOutput):
		return http.StatusConflict
	case errors.Is(err, session.ErrLoopClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

type portsResponse struct {
	Inputs         []session.Port `json:"inputs"`
	Outputs        []session.Port `json:"outputs"`
	SelectedInput  int            `json:"selected_input"`
	SelectedOutput int            `json:"selected_output"`
}

func (s *Server) ports(r *http.Request) (portsResponse, error) {
	var resp portsResponse
	err := s.loop.Do(r.Context(), func(ss *session.Session) error {
		resp.Inputs = ss.Inputs()
		resp.Outputs = ss.Outputs()
		resp.SelectedInput, resp.SelectedOutput = ss.Selection()
		return nil
	})
	return resp, err
}

func (s *Server) getPorts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ports(r)
	if err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refreshPorts(w http.ResponseWriter, r *http.Request) {
	if _, err := session.Refresh(r.Context(), s.host, s.loop); err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	s.getPorts(w, r)
}

func (s *Server) selectPorts(w http.ResponseWriter, r *http.Request) {
	var sel struct {
		Input  int `json:"input"`
		Output int `json:"output"`
	}
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := s.loop.Do(r.Context(), func(ss *session.Session) error {
		return ss.SelectPorts(sel.Input, sel.Output)
	})
	if err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	s.getPorts(w, r)
}

type fieldInfo struct {
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Default int    `json:"default"`
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	schema := s.model.Schema()
	fields := make([]fieldInfo, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = fieldInfo{f.Name, f.Width, f.Min, f.Max, f.Default}
	}

	writeJSON(w, http.StatusOK, struct {
		ID              byte        `json:"id"`
		ProtocolVersion byte        `json:"protocol_version"`
		Name            string      `json:"name"`
		PortName        string      `json:"port_name"`
		Knobs           int         `json:"knobs"`
		Keys            int         `json:"keys"`
		PayloadLen      int         `json:"payload_len"`
		Fields          []fieldInfo `json:"fields"`
	}{
		s.model.ID, s.model.ProtocolVersion, s.model.Name, s.model.PortName,
		s.model.Knobs, s.model.Keys, schema.PayloadLen(), fields,
	})
}

type configResponse struct {
	Config   *device.Config `json:"config"`
	Firmware string         `json:"firmware"`
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	var resp configResponse
	err := s.loop.Do(r.Context(), func(ss *session.Session) error {
		resp.Config = ss.Config()
		resp.Firmware = ss.Firmware().String()
		return nil
	})
	if err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg device.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := s.loop.Do(r.Context(), func(ss *session.Session) error {
		return ss.SendConfig(&cfg)
	})
	if err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.status.Last())
}

func (s *Server) requestConfig(w http.ResponseWriter, r *http.Request) {
	err := s.loop.Do(r.Context(), func(ss *session.Session) error {
		return ss.RequestConfig()
	})
	if err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	// the answer arrives later; poll /status
	writeJSON(w, http.StatusAccepted, s.status.Last())
}

func (s *Server) restoreDefaults(w http.ResponseWriter, r *http.Request) {
	var cfg *device.Config
	err := s.loop.Do(r.Context(), func(ss *session.Session) error {
		cfg = ss.RestoreDefaults()
		return nil
	})
	if err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Last())
}

func (s *Server) versionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version string `json:"version"`
		Model   string `json:"model"`
	}{s.Version, s.model.Name})
}
