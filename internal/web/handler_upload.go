package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/canary/internal/domain"
)

const maxPhotoSize = 10 * 1024 * 1024 // 10 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// handleSaveGallery accepts a multipart form with an optional "image" file.
// An uploaded file wins over the imageUrl field.
func (s *Server) handleSaveGallery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	target, err := editTarget(r)
	if err != nil {
		http.Error(w, "invalid gallery id", http.StatusBadRequest)
		return
	}
	in := domain.GalleryInput{
		ImageURL: r.FormValue("imageUrl"),
		Caption:  r.FormValue("caption"),
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		http.Error(w, "failed to read image", http.StatusBadRequest)
		return
	default:
		defer closeWithLog(file, "upload file", s.logger)
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			s.logger.Error("read upload failed", "error", err)
			return
		}
		if len(data) > 0 {
			mimeType, ok := allowedImageMIME(data)
			if !ok {
				http.Error(w, "unsupported image format", http.StatusBadRequest)
				return
			}
			in.Upload, in.UploadMIME = data, mimeType
		}
	}

	if _, err := s.service.SaveGalleryItem(r.Context(), target, in); err != nil {
		if errors.Is(err, domain.ErrGalleryImageRequired) {
			s.renderFormError(w, err)
			return
		}
		http.Error(w, "failed to save gallery item", http.StatusInternalServerError)
		s.logger.Error("save gallery item failed", "error", err)
		return
	}
	http.Redirect(w, r, "/admin#gallery", http.StatusSeeOther)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	if s.photoStore == nil {
		http.NotFound(w, r)
		return
	}
	key := r.PathValue("key")

	reader, mimeType, err := s.photoStore.Get(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "key", key, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
