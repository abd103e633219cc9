package endpoints

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/gate"
	"github.com/dlgate/download-gate/sessions"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/pending_download.json
var pendingDownloadSchema string

const maxHandoffBytes = 64 << 10

// GateFactory opens a gate for a validated hand-off. The gate is not started.
type GateFactory func(download *ads.PendingDownload) *gate.DownloadGate

// GateEndpoints serves the gate lifecycle over HTTP. Every gate lives in the session store between calls.
type GateEndpoints struct {
	store   *sessions.Store
	factory GateFactory
	schema  *gojsonschema.Schema
	now     func() time.Time
}

func NewGateEndpoints(store *sessions.Store, factory GateFactory) (*GateEndpoints, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(pendingDownloadSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile the pending download schema: %v", err)
	}
	return &GateEndpoints{
		store:   store,
		factory: factory,
		schema:  schema,
		now:     time.Now,
	}, nil
}

type createResponse struct {
	ID    string        `json:"id"`
	State gate.Snapshot `json:"state"`
}

type errorResponse struct {
	Error  string         `json:"error"`
	Errors []string       `json:"errors,omitempty"`
	State  *gate.Snapshot `json:"state,omitempty"`
}

// Create handles POST /gates. The body is the hand-off payload.
func (e *GateEndpoints) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxHandoffBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}

	if errs := e.validate(body); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid pending download", Errors: errs})
		return
	}

	download, err := ads.ParsePendingDownload(body, e.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if download.DeviceType == ads.DeviceUnknown {
		download.DeviceType = ads.DeviceTypeFromUserAgent(r.UserAgent())
	}

	g := e.factory(download)
	e.store.Add(g)
	snapshot, err := g.Start()
	if err != nil {
		glog.Errorf("gate %s failed to start: %v", g.ID(), err)
		e.store.Delete(g.ID())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not start gate"})
		return
	}

	w.Header().Set("Location", "/gates/"+g.ID())
	writeJSON(w, http.StatusCreated, createResponse{ID: g.ID(), State: snapshot})
}

func (e *GateEndpoints) validate(body []byte) []string {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []string{"request body is empty"}
	}
	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return errs
}

// Get handles GET /gates/:id.
func (e *GateEndpoints) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, ok := e.lookup(w, ps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.Snapshot())
}

// Surface handles GET /gates/:id/surface. It returns what providers have rendered for the gate.
func (e *GateEndpoints) Surface(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, ok := e.lookup(w, ps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.Surface().View())
}

func (e *GateEndpoints) Skip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e.command(w, ps, (*gate.DownloadGate).Skip)
}

func (e *GateEndpoints) Retry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e.command(w, ps, (*gate.DownloadGate).Retry)
}

func (e *GateEndpoints) Continue(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e.command(w, ps, (*gate.DownloadGate).ContinueAnyway)
}

func (e *GateEndpoints) command(w http.ResponseWriter, ps httprouter.Params, op func(*gate.DownloadGate) (gate.Snapshot, error)) {
	g, ok := e.lookup(w, ps)
	if !ok {
		return
	}
	snapshot, err := op(g)
	if err != nil {
		writeGateError(w, err, snapshot)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Reveal handles POST /gates/:id/reveal. The redirect is handed out once; the session ends with it.
func (e *GateEndpoints) Reveal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, ok := e.lookup(w, ps)
	if !ok {
		return
	}

	_, err := g.Reveal()
	if err != nil && !errors.Is(err, gate.ErrAlreadyRedirected) {
		writeGateError(w, err, g.Snapshot())
		return
	}

	select {
	case redirect := <-g.Redirects():
		e.store.Delete(g.ID())
		writeJSON(w, http.StatusOK, redirect)
	default:
		writeGateError(w, gate.ErrAlreadyRedirected, g.Snapshot())
	}
}

// Delete handles DELETE /gates/:id. Unknown ids are not an error.
func (e *GateEndpoints) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e.store.Delete(ps.ByName("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (e *GateEndpoints) lookup(w http.ResponseWriter, ps httprouter.Params) (*gate.DownloadGate, bool) {
	id := ps.ByName("id")
	g, ok := e.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("gate %q not found", id)})
		return nil, false
	}
	return g, true
}

func writeGateError(w http.ResponseWriter, err error, snapshot gate.Snapshot) {
	status := http.StatusConflict
	if errors.Is(err, gate.ErrDisposed) {
		status = http.StatusGone
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), State: &snapshot})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
