package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"cassa/internal/core"
	"cassa/internal/log"
)

// respondJSON writes v as a JSON response with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response", log.FieldError, err)
	}
}

// render executes a template; a render failure is a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// renderStatus is render with an explicit status code, used for
// validation failures that re-show a form.
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
	}
}

// pathID reads the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// mergeFieldErrors folds src into dst, keeping dst's entry on conflicts.
func mergeFieldErrors(dst, src core.FieldErrors) core.FieldErrors {
	for field, msg := range src {
		if _, ok := dst[field]; !ok {
			dst[field] = msg
		}
	}
	return dst
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatEuros renders cents as a currency string, e.g. "€12,34".
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"euros": formatEuros,
		"signedEuros": func(p core.Payment) string {
			cents := p.Amount.Cents
			if !p.Income {
				cents = -cents
			}
			return formatEuros(cents)
		},
		"filterType": func(f core.Filter) string {
			if f.Income == nil {
				return dirAll
			}
			if *f.Income {
				return dirIncome
			}
			return dirExpense
		},
	}
}
