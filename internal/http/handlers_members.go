package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"cassa/internal/core"
	"cassa/internal/log"
)

type membersData struct {
	Members []core.Member
	Error   string
}

type memberFormData struct {
	Member core.Member
	Errors core.FieldErrors
	IsEdit bool
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.service.ListMembers(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list members", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "members.html", membersData{Members: members})
}

func (s *Server) handleNewMemberForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "member_form.html", memberFormData{
		Member: core.Member{Active: true},
	})
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	m := parseMemberForm(r)
	created, err := s.service.CreateMember(r.Context(), m)
	if err != nil {
		var fe core.FieldErrors
		if errors.As(err, &fe) {
			s.renderStatus(w, r, http.StatusUnprocessableEntity, "member_form.html", memberFormData{
				Member: m,
				Errors: fe,
			})
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to create member", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateMembers()
	s.logger.InfoContext(r.Context(), "member created",
		log.FieldOperation, log.OpCreate,
		log.FieldMemberID, created.ID)
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

func (s *Server) handleEditMemberForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	member, err := s.service.GetMember(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load member", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "member_form.html", memberFormData{Member: member, IsEdit: true})
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	existing, err := s.service.GetMember(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load member", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	m := parseMemberForm(r)
	m.ID = id
	m.ImagePath = existing.ImagePath

	if err := s.service.UpdateMember(r.Context(), m); err != nil {
		var fe core.FieldErrors
		if errors.As(err, &fe) {
			s.renderStatus(w, r, http.StatusUnprocessableEntity, "member_form.html", memberFormData{
				Member: m,
				Errors: fe,
				IsEdit: true,
			})
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to update member", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateMembers()
	s.logger.InfoContext(r.Context(), "member updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldMemberID, id)
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

// handleDeleteMember refuses members who still own payments; the member
// list re-renders with the reason instead of losing history.
func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	err = s.service.DeleteMember(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, core.ErrMemberHasPayments):
		members, listErr := s.service.ListMembers(r.Context())
		if listErr != nil {
			s.logger.ErrorContext(r.Context(), "failed to list members", log.FieldError, listErr)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.renderStatus(w, r, http.StatusConflict, "members.html", membersData{
			Members: members,
			Error:   "This member still owns payments and cannot be deleted.",
		})
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "failed to delete member", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateMembers()
	s.logger.InfoContext(r.Context(), "member deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldMemberID, id)
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

// handleMemberImageUpload stores a member picture on disk and records
// its serving path on the member.
func (s *Server) handleMemberImageUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if s.uploadDir == "" {
		http.Error(w, "uploads not configured", http.StatusNotImplemented)
		return
	}

	member, err := s.service.GetMember(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load member", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		http.Error(w, "image too large or malformed upload", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		http.Error(w, "unsupported image type", http.StatusUnsupportedMediaType)
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to create upload dir", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("member_%d%s", id, ext)
	dst, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to create image file", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to write image file", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	member.ImagePath = "/uploads/" + name
	if err := s.service.UpdateMember(r.Context(), member); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to record image path", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateMembers()
	http.Redirect(w, r, fmt.Sprintf("/members/%d/edit", id), http.StatusSeeOther)
}
