package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/apperr"
	"github.com/tbckr/domainlens/internal/emailpattern"
	"github.com/tbckr/domainlens/internal/engine"
)

// Response formats of /analyze.
const (
	formatJSON = "json"
	formatHTML = "html"
)

// analyzeResponse is the JSON body of a successful /analyze call.
type analyzeResponse struct {
	*analysis.Result
	EmailPatterns []emailpattern.Pattern `json:"emailPatterns,omitempty"`
}

// resultPage is the data of the result template.
type resultPage struct {
	Result        *analysis.Result
	EmailPatterns []emailpattern.Pattern
	Email         string
	EmailMatched  bool
	Timestamp     time.Time
}

type errorPage struct {
	Status  int
	Message string
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	format := responseFormat(r)
	domain := strings.TrimSpace(r.FormValue("domain"))

	res, err := s.analyzer.Analyze(r.Context(), domain, engine.AnalyzeOptions{Format: format})
	if err != nil {
		s.fail(w, r, format, err)
		return
	}

	first := strings.TrimSpace(r.FormValue("first_name"))
	last := strings.TrimSpace(r.FormValue("last_name"))
	email := strings.TrimSpace(r.FormValue("email"))
	var patterns []emailpattern.Pattern
	matched := false
	if first != "" || last != "" {
		patterns = emailpattern.Generate(first, last, res.Domain.String())
		if email != "" {
			matched = emailpattern.MarkMatches(patterns, email)
		}
	}

	if format == formatJSON {
		writeJSON(w, http.StatusOK, analyzeResponse{Result: res, EmailPatterns: patterns})
		return
	}
	s.render(w, http.StatusOK, "result.html", resultPage{
		Result:        res,
		EmailPatterns: patterns,
		Email:         email,
		EmailMatched:  matched,
		Timestamp:     s.now().UTC(),
	})
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := s.analyzer.Invalidate(chi.URLParam(r, "domain")); err != nil {
		s.fail(w, r, formatJSON, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail writes err as the user-facing message. Internal details are only
// logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, format string, err error) {
	status := apperr.HTTPStatus(err)
	msg := apperr.UserMessage(err)
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		s.logger.Debug("rejected input", "error", err)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		s.logger.Debug("client went away", "error", err)
	default:
		s.logger.Error("analysis failed", "error", err)
	}

	if format == formatJSON {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	s.render(w, status, "error.html", errorPage{Status: status, Message: msg})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render template", "template", name, "error", err)
		http.Error(w, apperr.MsgUnexpected, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// responseFormat picks JSON when asked for by the format parameter or, for
// form posts, by the Accept header. HTML is the default.
func responseFormat(r *http.Request) string {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case formatJSON:
		return formatJSON
	case formatHTML:
		return formatHTML
	}
	if r.Method == http.MethodPost {
		if strings.EqualFold(strings.TrimSpace(r.PostFormValue("format")), formatJSON) ||
			strings.Contains(strings.ToLower(r.Header.Get("Accept")), "application/json") {
			return formatJSON
		}
	}
	return formatHTML
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
