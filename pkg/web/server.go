// Package web serves a local browser front end for one firmware image:
// pick a variant, enter a new axis, review the proposal and download the
// committed image.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pterm/pterm"
	"github.com/samber/lo"

	"github.com/tosih/map-rescaler/pkg/export"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/session"
)

//go:embed templates/*
var templates embed.FS

// TableResponse is a decoded or proposed table.
type TableResponse struct {
	Name    string      `json:"name"`
	Unit    string      `json:"unit"`
	RowAxis []float64   `json:"rowAxis"`
	ColAxis []float64   `json:"colAxis"`
	Data    [][]float64 `json:"data"`
}

// DefinitionResponse describes one table definition of a variant.
type DefinitionResponse struct {
	Name    string `json:"name"`
	Offset  int64  `json:"offset"`
	Size    string `json:"size"`
	Bits    int    `json:"bits"`
	Scaling string `json:"scaling"`
	Layout  string `json:"layout"`
	Unit    string `json:"unit"`
}

// VariantResponse describes a catalog variant.
type VariantResponse struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Primary     string               `json:"primary"`
	Secondary   string               `json:"secondary"`
	Tables      []DefinitionResponse `json:"tables"`
}

// DecodeResponse is a full decode of a variant.
type DecodeResponse struct {
	Variant  string                   `json:"variant"`
	Filename string                   `json:"filename"`
	Tables   map[string]TableResponse `json:"tables"`
	Axes     map[string][]float64     `json:"axes"`
}

// ProposalResponse is a rescale proposal.
type ProposalResponse struct {
	Variant       string         `json:"variant"`
	NewAxis       []float64      `json:"newAxis"`
	Primary       TableResponse  `json:"primary"`
	SuggestedAxis []float64      `json:"suggestedAxis"`
	Secondary     *TableResponse `json:"secondary,omitempty"`
}

// RescaleRequest carries the new axis either as numbers or as text in the
// one-value-per-line form.
type RescaleRequest struct {
	Variant  string    `json:"variant"`
	Axis     []float64 `json:"axis"`
	AxisText string    `json:"axisText"`
}

// CommitRequest selects the commit options.
type CommitRequest struct {
	KeepSecondary     bool `json:"keepSecondary"`
	KeepSecondaryAxis bool `json:"keepSecondaryAxis"`
}

// ErrorResponse reports a failed request. Failures lists the tables of a
// rejected commit.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Kind     string            `json:"kind"`
	Failures []FailureResponse `json:"failures,omitempty"`
}

// FailureResponse is one table failure.
type FailureResponse struct {
	Table  string  `json:"table"`
	Kind   string  `json:"kind"`
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail"`
}

// Server is the HTTP front end for one session. Requests that span several
// session steps are serialized.
type Server struct {
	mu   sync.Mutex
	sess *session.Session
	log  hclog.Logger
	port int
	mux  *http.ServeMux
}

// NewServer wraps sess.
func NewServer(sess *session.Session, port int, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		sess: sess,
		log:  logger.Named("web"),
		port: port,
		mux:  http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("GET /api/variants", s.handleVariants)
	s.mux.HandleFunc("GET /api/decode", s.handleDecode)
	s.mux.HandleFunc("POST /api/rescale", s.handleRescale)
	s.mux.HandleFunc("POST /api/commit", s.handleCommit)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on the configured port, optionally opening a browser.
func (s *Server) Start(open bool) error {
	addr := fmt.Sprintf("localhost:%d", s.port)
	url := "http://" + addr

	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("Map Rescaler Web Interface")

	pterm.Info.Printf("Serving %s at %s\n", s.sess.ImageName(), url)
	pterm.Info.Println("Press Ctrl+C to stop the server")
	pterm.Println()

	if open {
		openBrowser(url, s.log)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := templates.ReadFile("templates/index.html")
	if err != nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	c := s.sess.Catalog()
	out := make([]VariantResponse, 0, c.Len())
	for _, name := range session.ListDefinitions(c) {
		v, err := c.Variant(name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, VariantResponse{
			Name:        v.Name,
			Description: v.Description,
			Primary:     v.Primary,
			Secondary:   v.Secondary,
			Tables: lo.Map(v.TableNames(), func(n string, _ int) DefinitionResponse {
				def := v.Tables[n]
				return DefinitionResponse{
					Name:    n,
					Offset:  def.Offset,
					Size:    def.Shape.String(),
					Bits:    def.BitWidth,
					Scaling: def.Scaling.String(),
					Layout:  def.Layout.String(),
					Unit:    def.Unit,
				}
			}),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"state":    s.sess.State().String(),
		"filename": s.sess.ImageName(),
	}
	if err := s.sess.Err(); err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	variant := r.URL.Query().Get("variant")
	if variant == "" {
		s.writeError(w, fmt.Errorf("%w: variant parameter required", models.ErrUnknownVariant))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dec, err := s.selectVariant(variant, true)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := DecodeResponse{
		Variant:  dec.Variant.Name,
		Filename: s.sess.ImageName(),
		Tables:   make(map[string]TableResponse, len(dec.Tables)),
		Axes:     make(map[string][]float64, len(dec.Axes)),
	}
	for name, t := range dec.Tables {
		resp.Tables[name] = tableResponse(t)
	}
	for name, a := range dec.Axes {
		resp.Axes[name] = a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRescale(w http.ResponseWriter, r *http.Request) {
	var req RescaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error(), Kind: "request"})
		return
	}

	axis := models.Axis(req.Axis)
	if strings.TrimSpace(req.AxisText) != "" {
		parsed, err := export.ParseAxisString(req.AxisText)
		if err != nil {
			s.writeError(w, err)
			return
		}
		axis = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.selectVariant(req.Variant, false); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.sess.Rescale(axis)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := ProposalResponse{
		Variant:       p.Variant,
		NewAxis:       p.NewAxis,
		Primary:       tableResponse(p.Primary),
		SuggestedAxis: p.SuggestedAxis,
	}
	if p.Secondary != nil {
		sec := tableResponse(*p.Secondary)
		resp.Secondary = &sec
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error(), Kind: "request"})
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opts := session.CommitOptions{
		KeepSecondary:     req.KeepSecondary,
		KeepSecondaryAxis: req.KeepSecondaryAxis,
	}
	if _, err := s.sess.Commit(opts); err != nil {
		s.writeError(w, err)
		return
	}

	name := strings.TrimSuffix(s.sess.ImageName(), filepath.Ext(s.sess.ImageName())) + "_rescaled.bin"
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := s.sess.Export(w); err != nil {
		s.log.Error("export failed", "error", err)
		return
	}
	s.log.Info("image exported", "filename", name)
}

// selectVariant makes sure the session holds a decode of variant. With
// fresh set, or when the session cannot select, it restarts first.
func (s *Server) selectVariant(variant string, fresh bool) (*models.Decoded, error) {
	if !fresh {
		if dec := s.sess.Decoded(); dec != nil && dec.Variant.Name == variant {
			switch s.sess.State() {
			case session.Decoded, session.Edited:
				return dec, nil
			}
		}
	}
	switch s.sess.State() {
	case session.Committed, session.Exported, session.Failed:
		s.sess.Restart()
	}
	return s.sess.Select(variant)
}

func tableResponse(t models.Table) TableResponse {
	return TableResponse{
		Name:    t.Name,
		Unit:    t.Unit,
		RowAxis: t.RowAxis,
		ColAxis: t.ColAxis,
		Data:    t.Values,
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	resp := ErrorResponse{Error: err.Error(), Kind: kind}

	var batch *models.BatchError
	var terr *models.TableError
	switch {
	case errors.As(err, &batch):
		resp.Failures = lo.Map(batch.Failures, func(f *models.TableError, _ int) FailureResponse {
			return failure(f)
		})
	case errors.As(err, &terr):
		resp.Failures = []FailureResponse{failure(terr)}
	}

	s.log.Warn("request failed", "status", status, "kind", kind, "error", err)
	writeJSON(w, status, resp)
}

func failure(e *models.TableError) FailureResponse {
	_, kind := classify(e.Kind)
	return FailureResponse{
		Table:  e.Table,
		Kind:   kind,
		Row:    e.Row,
		Col:    e.Col,
		Value:  e.Value,
		Detail: e.Detail,
	}
}

var kinds = []struct {
	err    error
	name   string
	status int
}{
	{models.ErrInvalidState, "invalid_state", http.StatusConflict},
	{models.ErrUnknownVariant, "unknown_variant", http.StatusNotFound},
	{models.ErrInvalidAxis, "invalid_axis", http.StatusBadRequest},
	{models.ErrShapeMismatch, "shape_mismatch", http.StatusBadRequest},
	{models.ErrDivisionByZero, "division_by_zero", http.StatusBadRequest},
	{models.ErrValueEncoding, "value_encoding", http.StatusUnprocessableEntity},
	{models.ErrOutOfBounds, "out_of_bounds", http.StatusUnprocessableEntity},
	{models.ErrUnsupportedBitWidth, "unsupported_bit_width", http.StatusInternalServerError},
	{models.ErrInvalidDefinition, "invalid_definition", http.StatusInternalServerError},
}

func classify(err error) (int, string) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status, k.name
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeJSON encodes v before any header is sent, so a value that cannot be
// encoded becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(ErrorResponse{Error: "could not encode response: " + err.Error(), Kind: "internal"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(raw, '\n'))
}
