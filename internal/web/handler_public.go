package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/vbonduro/canary/internal/domain"
)

// pageData carries the fields base.html reads on every page.
func (s *Server) pageData(r *http.Request, nav string) map[string]any {
	_, signedIn := s.currentUser(r)
	return map[string]any{
		"ActiveNav": nav,
		"CSRFField": csrf.TemplateField(r),
		"SignedIn":  signedIn,
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	gallery, err := s.service.ListGallery(r.Context())
	if err != nil {
		http.Error(w, "failed to load gallery", http.StatusInternalServerError)
		s.logger.Error("list gallery failed", "error", err)
		return
	}

	data := s.pageData(r, "home")
	data["Gallery"] = gallery
	data["Sent"] = r.URL.Query().Get("sent") == "1"
	if err := s.renderPage(w, http.StatusOK, data,
		"base.html", "pages/home.html", "partials/gallery_card.html", "partials/contact_form.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	in := domain.InquiryInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Message: r.FormValue("message"),
	}
	if _, err := s.service.SubmitInquiry(r.Context(), in); err != nil {
		if errors.Is(err, domain.ErrInquiryFieldsRequired) {
			s.renderFormError(w, err)
			return
		}
		http.Error(w, "failed to submit inquiry", http.StatusInternalServerError)
		s.logger.Error("submit inquiry failed", "error", err)
		return
	}
	http.Redirect(w, r, "/?sent=1#contact", http.StatusSeeOther)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	position := r.URL.Query().Get("position")
	if position == "" {
		position = domain.AllPositions
	}

	members, err := s.service.ListMembers(r.Context(), position)
	if err != nil {
		http.Error(w, "failed to load members", http.StatusInternalServerError)
		s.logger.Error("list members failed", "error", err)
		return
	}
	positions, err := s.service.MemberPositions(r.Context())
	if err != nil {
		http.Error(w, "failed to load members", http.StatusInternalServerError)
		s.logger.Error("list positions failed", "error", err)
		return
	}

	data := s.pageData(r, "members")
	data["Members"] = members
	data["Positions"] = append([]string{domain.AllPositions}, positions...)
	data["Position"] = position
	if err := s.renderPage(w, http.StatusOK, data,
		"base.html", "pages/members.html", "partials/member_card.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// renderFormError answers a rejected form with 400 and the validation message.
func (s *Server) renderFormError(w http.ResponseWriter, err error) {
	if rerr := s.renderPartial(w, http.StatusBadRequest, "partials/form_error.html", err.Error()); rerr != nil {
		s.logger.Error("render partial failed", "error", rerr)
	}
}
