package http

import (
	"errors"
	"net/http"

	"cassa/internal/core"
	"cassa/internal/log"
)

type indexData struct {
	Stats        core.Statistics
	Members      []core.Member
	Filter       core.Filter
	FilterErrors core.FieldErrors
}

type paymentFormData struct {
	Payment core.Payment
	Members []core.Member
	Errors  core.FieldErrors
	IsEdit  bool
}

// handleIndex renders the dashboard: overview, filter form, payment list
// and the chart container. Filter errors keep the page at 200, the bad
// fields are simply reported and skipped.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	filter, fe := parseFilter(r)

	stats, err := s.service.Statistics(r.Context(), filter)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to compute statistics", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	members, err := s.listMembers(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list members", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "index.html", indexData{
		Stats:        stats,
		Members:      members,
		Filter:       filter,
		FilterErrors: fe,
	})
}

func (s *Server) handleNewPaymentForm(w http.ResponseWriter, r *http.Request) {
	members, err := s.listMembers(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list members", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "payment_form.html", paymentFormData{
		Payment: core.Payment{Income: true, Date: core.Today()},
		Members: members,
	})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	p, fe := parsePaymentForm(r)
	if fe.Any() {
		// Merge in the domain and member checks so nothing is reported piecemeal
		fe = mergeFieldErrors(fe, s.service.ValidatePayment(r.Context(), p, true))
		s.renderPaymentForm(w, r, http.StatusUnprocessableEntity, p, fe, false)
		return
	}

	created, err := s.service.CreatePayment(r.Context(), p)
	if err != nil {
		var vfe core.FieldErrors
		if errors.As(err, &vfe) {
			s.renderPaymentForm(w, r, http.StatusUnprocessableEntity, p, vfe, false)
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to create payment", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	paymentsCreatedTotal.Inc()
	s.logger.InfoContext(r.Context(), "payment created",
		log.FieldOperation, log.OpCreate,
		log.FieldPaymentID, created.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditPaymentForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	payment, err := s.service.GetPayment(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load payment", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	members, err := s.listMembers(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list members", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "payment_form.html", paymentFormData{
		Payment: payment,
		Members: members,
		IsEdit:  true,
	})
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	p, fe := parsePaymentForm(r)
	p.ID = id
	if fe.Any() {
		fe = mergeFieldErrors(fe, s.service.ValidatePayment(r.Context(), p, false))
		s.renderPaymentForm(w, r, http.StatusUnprocessableEntity, p, fe, true)
		return
	}

	err = s.service.UpdatePayment(r.Context(), p)
	if err != nil {
		var vfe core.FieldErrors
		switch {
		case errors.As(err, &vfe):
			s.renderPaymentForm(w, r, http.StatusUnprocessableEntity, p, vfe, true)
		case errors.Is(err, core.ErrNotFound):
			http.NotFound(w, r)
		default:
			s.logger.ErrorContext(r.Context(), "failed to update payment", log.FieldError, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	s.logger.InfoContext(r.Context(), "payment updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldPaymentID, id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	err = s.service.DeletePayment(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to delete payment", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.InfoContext(r.Context(), "payment deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldPaymentID, id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderPaymentForm(w http.ResponseWriter, r *http.Request, status int, p core.Payment, fe core.FieldErrors, isEdit bool) {
	members, err := s.listMembers(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list members", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.renderStatus(w, r, status, "payment_form.html", paymentFormData{
		Payment: p,
		Members: members,
		Errors:  fe,
		IsEdit:  isEdit,
	})
}
