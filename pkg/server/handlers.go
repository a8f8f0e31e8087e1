package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/pipeline"
	"github.com/matzehuels/macroviewer/pkg/render"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func newErrorBody(err error) *errorBody {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return &errorBody{Code: code, Message: errors.UserMessage(err)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]*errorBody{"error": newErrorBody(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	d := s.Dataset()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions(),
		"nodes":    len(d.Nodes),
		"links":    len(d.Links),
	})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v.controller().Frame())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var a filter.Action
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessage)).Decode(&a); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidAction, err, "malformed action"))
		return
	}
	frame, err := v.dispatch(r.Context(), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	iso2 := strings.ToUpper(chi.URLParam(r, "iso2"))
	if err := errors.ValidateISO2(iso2); err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := v.controller().Detail(iso2)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleTooltip serves the node tooltip of iso2, or the link tooltip
// when ?to= names the other end.
func (s *Server) handleTooltip(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	iso2 := strings.ToUpper(chi.URLParam(r, "iso2"))
	if err := errors.ValidateISO2(iso2); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctrl := v.controller()
	var tip engine.Tooltip
	if to := strings.ToUpper(r.URL.Query().Get("to")); to != "" {
		if err := errors.ValidateISO2(to); err != nil {
			s.writeError(w, r, err)
			return
		}
		tip, err = ctrl.LinkTooltip(iso2, to)
	} else {
		tip, err = ctrl.NodeTooltip(iso2)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hits := v.controller().Search(r.URL.Query().Get("q"))
	if hits == nil {
		hits = []engine.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": hits})
}

// handleRender draws the session's current frame. Query parameters:
// title, panels, labels, detailed, scale.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewerFor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	formats, err := render.ParseFormats(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(formats) != 1 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidFormat, "render one format at a time"))
		return
	}
	f := formats[0]

	q := r.URL.Query()
	opts := pipeline.Options{
		Title:    q.Get("title"),
		Panels:   queryBool(q.Get("panels"), true),
		Labels:   queryBool(q.Get("labels"), false),
		Detailed: queryBool(q.Get("detailed"), false),
		Formats:  formats,
	}
	if scale, err := strconv.ParseFloat(q.Get("scale"), 64); err == nil && scale > 0 && scale <= 8 {
		opts.Scale = scale
	}
	if err := opts.SetRenderDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}

	artifacts, err := pipeline.Render(r.Context(), v.controller().Frame(), formats, opts)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render %s", f))
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(artifacts[f])
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := requestSessionID(r)
	if err := errors.ValidateSessionID(id); err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeSessionNotFound, "no session"))
		return
	}
	if err := s.endSession(r.Context(), id); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "end session"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func queryBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
