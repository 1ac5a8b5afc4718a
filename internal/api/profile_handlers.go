package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hyperengineering/crm/internal/types"
)

// logoFormField is the multipart field carrying the logo image.
const logoFormField = "logo"

// GetProfile handles GET /api/v1/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch types.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	p, err := h.svc.UpdateProfile(r.Context(), patch)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadLogo handles POST /api/v1/profile/logo (multipart form, field "logo").
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, r, http.StatusRequestEntityTooLarge, "Logo exceeds the upload size limit")
			return
		}
		WriteProblem(w, r, http.StatusBadRequest, "Expected a multipart form with a logo file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(logoFormField)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Missing logo file")
		return
	}
	defer file.Close()

	contentType, err := sniffLogoType(file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Unreadable logo file")
		return
	}

	p, err := h.svc.UploadLogo(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// sniffLogoType detects the media type from the first 512 bytes of the file
// and rewinds it. SVG is text to the sniffer, so a declared image/svg+xml is
// kept only for .svg files that sniff as text.
func sniffLogoType(file multipart.File, filename, declared string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	sniffed := http.DetectContentType(head[:n])
	if strings.EqualFold(filepath.Ext(filename), ".svg") &&
		strings.HasPrefix(strings.ToLower(declared), "image/svg+xml") &&
		(strings.HasPrefix(sniffed, "text/xml") || strings.HasPrefix(sniffed, "text/plain")) {
		return "image/svg+xml", nil
	}
	return sniffed, nil
}
