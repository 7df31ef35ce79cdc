package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vbonduro/canary/internal/domain"
)

func (s *Server) currentUser(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return s.sessions.Lookup(c.Value)
}

// requireAdmin rejects requests without a live admin session.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentUser(r); !ok {
			http.Error(w, "sign in required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r, "admin")
	if signedIn, _ := data["SignedIn"].(bool); !signedIn {
		s.renderLogin(w, data, http.StatusOK)
		return
	}

	ctx := r.Context()
	members, err := s.service.ListMembers(ctx, domain.AllPositions)
	if err != nil {
		http.Error(w, "failed to load members", http.StatusInternalServerError)
		s.logger.Error("list members failed", "error", err)
		return
	}
	gallery, err := s.service.ListGallery(ctx)
	if err != nil {
		http.Error(w, "failed to load gallery", http.StatusInternalServerError)
		s.logger.Error("list gallery failed", "error", err)
		return
	}
	inquiries, err := s.service.ListInquiries(ctx)
	if err != nil {
		http.Error(w, "failed to load inquiries", http.StatusInternalServerError)
		s.logger.Error("list inquiries failed", "error", err)
		return
	}

	// Unknown or stale edit ids fall back to an empty create form.
	var editMember *domain.Member
	if id, err := strconv.ParseInt(r.URL.Query().Get("edit_member"), 10, 64); err == nil {
		if editMember, err = s.service.GetMember(ctx, id); err != nil {
			s.logger.Error("get member failed", "id", id, "error", err)
		}
	}
	var editGallery *domain.GalleryItem
	if id, err := strconv.ParseInt(r.URL.Query().Get("edit_gallery"), 10, 64); err == nil {
		if editGallery, err = s.service.GetGalleryItem(ctx, id); err != nil {
			s.logger.Error("get gallery item failed", "id", id, "error", err)
		}
	}

	data["Members"] = members
	data["Gallery"] = gallery
	data["Inquiries"] = inquiries
	data["EditMember"] = editMember
	data["EditGallery"] = editGallery
	if err := s.renderPage(w, http.StatusOK, data,
		"base.html", "pages/admin.html", "partials/member_form.html", "partials/gallery_form.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, data map[string]any, status int) {
	if err := s.renderPage(w, status, data, "base.html", "pages/login.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	user := r.FormValue("user")
	if err := s.auth.Check(user, r.FormValue("password")); err != nil {
		s.logger.Warn("admin login rejected", "user", user)
		data := s.pageData(r, "admin")
		data["LoginError"] = "IDまたはパスワードが違います"
		s.renderLogin(w, data, http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.sessions.Create(user),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("admin signed in", "user", user)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// editTarget reads the hidden id field: blank creates, a number edits.
func editTarget(r *http.Request) (domain.EditTarget, error) {
	raw := r.FormValue("id")
	if raw == "" {
		return domain.Creating(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.EditTarget{}, err
	}
	return domain.Editing(id), nil
}

func (s *Server) handleSaveMember(w http.ResponseWriter, r *http.Request) {
	target, err := editTarget(r)
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}
	in := domain.MemberInput{
		Number:   r.FormValue("number"),
		Name:     r.FormValue("name"),
		Position: r.FormValue("position"),
		Handed:   r.FormValue("handed"),
		Comment:  r.FormValue("comment"),
		PhotoURL: r.FormValue("photoUrl"),
	}
	if _, err := s.service.SaveMember(r.Context(), target, in); err != nil {
		if errors.Is(err, domain.ErrMemberNumberAndNameRequired) {
			s.renderFormError(w, err)
			return
		}
		http.Error(w, "failed to save member", http.StatusInternalServerError)
		s.logger.Error("save member failed", "error", err)
		return
	}
	http.Redirect(w, r, "/admin#members", http.StatusSeeOther)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}
	if _, err := s.service.DeleteMember(r.Context(), id); err != nil {
		http.Error(w, "failed to delete member", http.StatusInternalServerError)
		s.logger.Error("delete member failed", "id", id, "error", err)
		return
	}
	http.Redirect(w, r, "/admin#members", http.StatusSeeOther)
}

func (s *Server) handleResetMembers(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.ResetMembers(r.Context()); err != nil {
		http.Error(w, "failed to reset members", http.StatusInternalServerError)
		s.logger.Error("reset members failed", "error", err)
		return
	}
	http.Redirect(w, r, "/admin#members", http.StatusSeeOther)
}

func (s *Server) handleDeleteGallery(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid gallery id", http.StatusBadRequest)
		return
	}
	if _, err := s.service.DeleteGalleryItem(r.Context(), id); err != nil {
		http.Error(w, "failed to delete gallery item", http.StatusInternalServerError)
		s.logger.Error("delete gallery item failed", "id", id, "error", err)
		return
	}
	http.Redirect(w, r, "/admin#gallery", http.StatusSeeOther)
}

func (s *Server) handleResetGallery(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.ResetGallery(r.Context()); err != nil {
		http.Error(w, "failed to reset gallery", http.StatusInternalServerError)
		s.logger.Error("reset gallery failed", "error", err)
		return
	}
	http.Redirect(w, r, "/admin#gallery", http.StatusSeeOther)
}

func (s *Server) handleDeleteInquiry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid inquiry id", http.StatusBadRequest)
		return
	}
	if _, err := s.service.DeleteInquiry(r.Context(), id); err != nil {
		http.Error(w, "failed to delete inquiry", http.StatusInternalServerError)
		s.logger.Error("delete inquiry failed", "id", id, "error", err)
		return
	}
	http.Redirect(w, r, "/admin#inquiries", http.StatusSeeOther)
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
